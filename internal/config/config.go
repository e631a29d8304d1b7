// Package config holds the plain settings struct the engine is
// constructed with. There is deliberately no TOML or CLI-flag loader
// here — spec §1 places configuration-file and CLI parsing out of
// scope for the core; callers build a Config however they like (flags,
// a config file, hard-coded defaults) and hand it to fcsx.New.
//
// Grounded on the teacher's internal/config.Config, trimmed to the
// fields this engine's components actually consume (the teacher's
// Semantic/SemanticScoring/FeatureFlags sections belong to the
// semantic-search subsystem, a non-goal here).
package config

import "runtime"

// Index controls discovery, size limits, and watch behavior for the
// background indexer (component I).
type Index struct {
	// Roots to walk at startup.
	Roots []string
	// Extensions is the caller-supplied text-file whitelist (e.g.
	// []string{".go", ".rs", ".ts"}); spec §9 Open Questions notes this
	// set is policy, not core behavior.
	Extensions []string
	// Include/Exclude are glob patterns compiled by internal/pathfilter.
	Include []string
	Exclude []string

	// MaxFileSize is the per-file byte cap (§4.F default 10 MiB).
	MaxFileSize int64

	// BatchSize is the number of files an indexing worker drains from
	// the discovery queue per unit of work (§4.I default 500).
	BatchSize int

	// Workers is the indexing worker-pool size; 0 means NumCPU.
	Workers int

	// QueueMultiplier sizes the bounded discovery queue as
	// QueueMultiplier * Workers (§4.I default 4).
	QueueMultiplier int

	// Watch enables fsnotify-driven incremental reindexing.
	Watch bool
	// WatchDebounceMs coalesces bursts of filesystem events.
	WatchDebounceMs int

	// RespectGitignore is carried in the configuration but not consulted:
	// discovery does not read .gitignore files.
	RespectGitignore bool
	// FollowSymlinks is carried in the configuration but not consulted:
	// discovery never descends into symlinked directories.
	FollowSymlinks bool
}

// Snapshot controls persistence (component J).
type Snapshot struct {
	// Path to the snapshot file; empty disables save/load entirely.
	Path string
	// SaveAfterBuild writes a snapshot once the initial index completes.
	SaveAfterBuild bool
	// SaveAfterUpdates is carried in the configuration but not read by
	// the engine: no snapshot is written on an update count, only after
	// the initial build (SaveAfterBuild) or an explicit SaveIndex call.
	SaveAfterUpdates int
}

// Search controls default query behavior (component H).
type Search struct {
	// DefaultMaxResults bounds search() when the caller doesn't specify.
	DefaultMaxResults int
	// FastRankThreshold is the candidate-count above which rank_mode
	// "auto" switches to "fast" (§4.H default 5000).
	FastRankThreshold int
	// FastRankTopN is how many candidates the fast file-level pass
	// shortlists before line-level ranking (§4.H default 2000).
	FastRankTopN int
	// RegexLineBudgetMs bounds a single line's regex match time to
	// defeat catastrophic backtracking (§5 Timeouts).
	RegexLineBudgetMs int
	// PreviewBytes bounds how much of a matching line is copied into a
	// SearchMatch's content field.
	PreviewBytes int
}

// Config is the complete set of knobs the engine is constructed with.
type Config struct {
	Index    Index
	Snapshot Snapshot
	Search   Search
}

// Default returns a Config with the defaults named throughout spec.md.
func Default() Config {
	return Config{
		Index: Index{
			Extensions:      nil,
			MaxFileSize:     10 * 1024 * 1024,
			BatchSize:       500,
			Workers:         runtime.NumCPU(),
			QueueMultiplier: 4,
			WatchDebounceMs: 250,
		},
		Search: Search{
			DefaultMaxResults: 100,
			FastRankThreshold: 5000,
			FastRankTopN:      2000,
			RegexLineBudgetMs: 50,
			PreviewBytes:      300,
		},
	}
}

// Validate replaces zero or negative numeric settings with their
// defaults so they cannot surface as a confusing panic deep in the
// indexer. It reports no errors and always returns nil.
func (c *Config) Validate() error {
	if c.Index.MaxFileSize <= 0 {
		c.Index.MaxFileSize = 10 * 1024 * 1024
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 500
	}
	if c.Index.Workers <= 0 {
		c.Index.Workers = runtime.NumCPU()
	}
	if c.Index.QueueMultiplier <= 0 {
		c.Index.QueueMultiplier = 4
	}
	if c.Search.DefaultMaxResults <= 0 {
		c.Search.DefaultMaxResults = 100
	}
	if c.Search.FastRankThreshold <= 0 {
		c.Search.FastRankThreshold = 5000
	}
	if c.Search.FastRankTopN <= 0 {
		c.Search.FastRankTopN = 2000
	}
	if c.Search.PreviewBytes <= 0 {
		c.Search.PreviewBytes = 300
	}
	return nil
}
