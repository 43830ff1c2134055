package rollup

import "github.com/papercomputeco/memoria/pkg/rawlog"

// Window sizes of the three tiers.
const (
	// EpisodeSize is the number of raw messages one episodic summary covers.
	EpisodeSize = 10

	// EpisodesPerBranch is the number of episodic summaries one branch
	// summary consumes.
	EpisodesPerBranch = 4

	// BranchesPerGlobal is the number of branch summaries one global summary
	// consumes.
	BranchesPerGlobal = 4
)

// EpisodicSummary covers the raw messages StartID through EndID.
type EpisodicSummary struct {
	ID      uint32 `json:"id"`
	StartID uint64 `json:"start_id"`
	EndID   uint64 `json:"end_id"`
	Summary string `json:"summary"`
}

// BranchSummary condenses EpisodesPerBranch episodic summaries.
type BranchSummary struct {
	ID          uint32   `json:"id"`
	EpisodicIDs []uint32 `json:"episodic_ids"`
	Summary     string   `json:"summary"`
}

// GlobalSummary condenses BranchesPerGlobal branch summaries.
type GlobalSummary struct {
	ID        uint32   `json:"id"`
	BranchIDs []uint32 `json:"branch_ids"`
	Summary   string   `json:"summary"`
}

// RangeReader reads raw messages by inclusive id range.
type RangeReader interface {
	ReadRange(start, end uint64) ([]rawlog.Message, error)
}
