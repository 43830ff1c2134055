package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSummaryEmitted is emitted after a rollup tier persists a summary.
	EventTypeSummaryEmitted = "memoria.summary.emitted"
)

// Tier names carried by SummaryEmittedEvent.
const (
	TierEpisodic = "episodic"
	TierBranch   = "branch"
	TierGlobal   = "global"
)

// SummaryEmittedEvent is a transport-neutral event payload for a persisted
// summary.
type SummaryEmittedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Namespace     string    `json:"namespace"`
	Tier          string    `json:"tier"`
	SummaryID     uint32    `json:"summary_id"`
	Coverage      Coverage  `json:"coverage"`
	Summary       string    `json:"summary"`
}

// Coverage names what a summary condenses. Only the fields of its tier are set.
type Coverage struct {
	StartID     uint64   `json:"start_id,omitempty"`
	EndID       uint64   `json:"end_id,omitempty"`
	EpisodicIDs []uint32 `json:"episodic_ids,omitempty"`
	BranchIDs   []uint32 `json:"branch_ids,omitempty"`
}

// NewSummaryEmitted stamps a new event with a fresh id and time.
func NewSummaryEmitted(namespace, tier string, summaryID uint32, summary string, coverage Coverage) *SummaryEmittedEvent {
	return &SummaryEmittedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSummaryEmitted,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Namespace:     namespace,
		Tier:          tier,
		SummaryID:     summaryID,
		Coverage:      coverage,
		Summary:       summary,
	}
}
