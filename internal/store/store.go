package store

import (
	"context"
	"time"

	"signalforge/internal/models"
)

// Store is the persistence contract the pipeline consumes. RunRecords are
// written once; only per-tier delivery timestamps are backfilled later, and
// those backfills are eventually consistent with the initial insert.
type Store interface {
	// CreateRun persists a terminal run outcome.
	CreateRun(ctx context.Context, record *models.RunRecord) error

	// RecentSignalCount counts signal runs inside the trailing window,
	// used to throttle signal frequency.
	RecentSignalCount(ctx context.Context, windowHours int) (int, error)

	// ActiveSymbols lists symbols with a recent signal, so the pipeline
	// avoids stacking exposure on the same asset.
	ActiveSymbols(ctx context.Context, windowHours int) (map[string]struct{}, error)

	// MarkDelivered backfills one tier's delivery timestamp.
	MarkDelivered(ctx context.Context, runID string, tier models.Tier, at time.Time) error
}
