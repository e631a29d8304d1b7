// Package indexer implements the background indexer (spec component I):
// discovery, batched indexing, a resolver worker for dependency edges, an
// optional fsnotify watch mode, and progress publication.
//
// Grounded on the teacher's internal/indexing package (pipeline.go,
// watcher.go, pipeline_progress.go), narrowed to the single engine this
// core builds instead of the teacher's tree-sitter/AST/semantic pipeline.
package indexer

// State is a position in the indexer's boot/run state machine.
type State int

const (
	Idle State = iota
	LoadingSnapshot
	Discovering
	Indexing
	Reconciling
	ResolvingImports
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingSnapshot:
		return "loading-snapshot"
	case Discovering:
		return "discovering"
	case Indexing:
		return "indexing"
	case Reconciling:
		return "reconciling"
	case ResolvingImports:
		return "resolving-imports"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}
