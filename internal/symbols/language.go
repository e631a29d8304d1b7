package symbols

import (
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// DetectLanguage derives a language tag from path per spec §4.D ("a
// language tag derived from the file extension"), grounded on
// sourcegraph-zoekt's languages.GetLanguages
// (languages/languages.go), which wraps
// enry.GetLanguagesByExtension. Only the extension-based strategy is
// used — no content sniffing — since spec §4.D derives the tag from
// the extension alone. An unknown extension yields the empty tag (""
// never matches a registered extractor, which is the "unknown language
// tag" case); an ambiguous extension yields enry's first candidate.
func DetectLanguage(path string) string {
	langs := enry.GetLanguagesByExtension(path, nil, nil)
	if len(langs) == 0 {
		return ""
	}
	return strings.ToLower(langs[0])
}
