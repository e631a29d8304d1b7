package snapshot

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/fcsx/internal/config"
)

// Fingerprint hashes every config field that determines what a rebuild
// would index, matching spec §6's "config_fingerprint" field: a
// snapshot taken under a different root set, extension whitelist, or
// include/exclude filter can't be trusted to describe the same corpus,
// so Load rejects a mismatch and falls back to a full rebuild (spec
// §4.J "load... validates... falls back to a full rebuild on
// mismatch"). Grounded on the teacher's xxhash fast-hash idiom, already
// a direct dependency via internal/filestore.
func Fingerprint(cfg config.Index) [fingerprintSize]byte {
	var b strings.Builder
	writeSorted(&b, cfg.Roots)
	writeSorted(&b, cfg.Extensions)
	writeSorted(&b, cfg.Include)
	writeSorted(&b, cfg.Exclude)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(cfg.MaxFileSize, 10))

	sum := xxhash.Sum64String(b.String())

	var out [fingerprintSize]byte
	for i := 0; i < 8; i++ {
		out[i] = byte(sum >> (8 * i))
	}
	return out
}

func writeSorted(b *strings.Builder, values []string) {
	sorted := append([]string(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	for _, v := range sorted {
		b.WriteByte(';')
		b.WriteString(v)
	}
	b.WriteByte('|')
}
