package models

import "time"

// RunType is the terminal outcome of one pipeline execution.
type RunType string

const (
	RunSignal   RunType = "signal"
	RunIntel    RunType = "intel"
	RunSkip     RunType = "skip"
	RunDeepDive RunType = "deep_dive"
)

// Tier is an audience segment. Premium receives content immediately;
// the other tiers are delayed relative to generation.
type Tier string

const (
	TierPremium  Tier = "premium"
	TierStandard Tier = "standard"
	TierFree     Tier = "free"
)

// AllTiers in delivery order.
func AllTiers() []Tier {
	return []Tier{TierPremium, TierStandard, TierFree}
}

// RunRecord is persisted exactly once per pipeline execution. Delivery
// timestamps are backfilled asynchronously as each tier's distribution
// completes; everything else is immutable after creation.
type RunRecord struct {
	ID         string        `json:"id" gorm:"primaryKey;column:id"`
	Type       RunType       `json:"type" gorm:"column:run_type"`
	Symbol     string        `json:"symbol" gorm:"column:symbol"`
	Content    string        `json:"content" gorm:"column:content"`
	Confidence *float64      `json:"confidence,omitempty" gorm:"column:confidence"`
	Error      string        `json:"error,omitempty" gorm:"column:error_message"`
	StartedAt  time.Time     `json:"started_at" gorm:"column:started_at"`
	FinishedAt time.Time     `json:"finished_at" gorm:"column:finished_at"`
	Duration   time.Duration `json:"duration" gorm:"column:duration_ns"`

	DeliveredPremium  *time.Time `json:"delivered_premium,omitempty" gorm:"column:delivered_premium"`
	DeliveredStandard *time.Time `json:"delivered_standard,omitempty" gorm:"column:delivered_standard"`
	DeliveredFree     *time.Time `json:"delivered_free,omitempty" gorm:"column:delivered_free"`
}

func (RunRecord) TableName() string {
	return "runs"
}
