package contracts

import "context"

// SnapshotRow is the opaque per-symbol row handed back by the pattern
// detection collaborator. Only CalcSnapshot understands its contents.
type SnapshotRow interface{}

// Snapshot is the typed view of one symbol's qualitative state on a
// date: phase/event labels and component scores. Validated at the
// collaborator boundary so the pipeline never touches untyped maps.
type Snapshot struct {
	EventDates        map[string]string `json:"event_dates"` // event code -> YYYY-MM-DD
	SequenceOK        bool              `json:"sequence_ok"`
	EntryQualityScore float64           `json:"entry_quality_score"`
	Phase             string            `json:"phase"`
	StructureHHH      string            `json:"structure_hhh"`
	TrendScore        float64           `json:"trend_score"`
	VolatilityScore   float64           `json:"volatility_score"`
}

// SnapshotSource is the per-symbol pattern detection collaborator used
// by the fallback candidate path.
type SnapshotSource interface {
	// BuildRow prepares the symbol's row as of a date. A nil row with a
	// nil error means no data is available for that date.
	BuildRow(ctx context.Context, symbol, asOfDate string) (SnapshotRow, error)

	// CalcSnapshot derives the qualitative snapshot from a row.
	CalcSnapshot(ctx context.Context, row SnapshotRow, windowDays int, asOfDate string) (*Snapshot, error)
}
