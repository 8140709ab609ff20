package gate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalforge/internal/models"
)

func ptr(v float64) *float64 { return &v }

func daySignal(entry, target, stop, confidence float64) *models.ProposedSignal {
	return &models.ProposedSignal{
		Token:       models.Candidate{Symbol: "BTC", Direction: models.DirectionLong},
		Direction:   models.DirectionLong,
		OrderKind:   models.OrderMarket,
		Style:       models.StyleDayTrade,
		EntryPrice:  ptr(entry),
		TargetPrice: ptr(target),
		StopLoss:    ptr(stop),
		Confidence:  confidence,
	}
}

func hasReason(v Verdict, fragment string) bool {
	for _, r := range v.Reasons {
		if strings.Contains(r, fragment) {
			return true
		}
	}
	return false
}

func TestBoundaryRiskRewardIsInclusive(t *testing.T) {
	// risk=3, reward=6, R:R exactly 2.0
	v := Evaluate(daySignal(100, 106, 97, 90), 100)

	require.True(t, v.Valid, "reasons: %v", v.Reasons)
	assert.InDelta(t, 2.0, v.RiskReward, 1e-9)
	assert.InDelta(t, 3.0, v.StopLossPct, 1e-9)
	assert.Equal(t, models.DirectionLong, v.Direction)
}

func TestConfidenceBelowMinimumAlwaysRejects(t *testing.T) {
	v := Evaluate(daySignal(100, 106, 97, 84), 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "confidence"), "reasons: %v", v.Reasons)

	// Confidence reason must appear even when everything else is broken too.
	broken := daySignal(100, 106, 97, 10)
	broken.TargetPrice = nil
	v = Evaluate(broken, 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "confidence"), "reasons: %v", v.Reasons)
}

func TestStopLossTooTight(t *testing.T) {
	// 2% stop distance is under the 3% minimum.
	v := Evaluate(daySignal(100, 106, 98, 90), 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "tighter"), "reasons: %v", v.Reasons)
}

func TestMissingPricesReject(t *testing.T) {
	sig := daySignal(100, 106, 97, 90)
	sig.TargetPrice = nil
	v := Evaluate(sig, 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "target price"), "reasons: %v", v.Reasons)

	v = Evaluate(nil, 100)
	assert.False(t, v.Valid)
}

func TestLongOrderingViolations(t *testing.T) {
	// Stop above entry on a LONG.
	v := Evaluate(daySignal(100, 106, 101, 90), 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "strictly below entry"), "reasons: %v", v.Reasons)

	// Stop equal to entry is still invalid (strict inequality).
	v = Evaluate(daySignal(100, 106, 100, 90), 100)
	assert.False(t, v.Valid)
}

func TestShortSignal(t *testing.T) {
	sig := daySignal(100, 94, 103, 90)
	sig.Direction = models.DirectionShort
	sig.Token.Direction = models.DirectionShort

	v := Evaluate(sig, 100)
	require.True(t, v.Valid, "reasons: %v", v.Reasons)
	assert.Equal(t, models.DirectionShort, v.Direction)
	assert.InDelta(t, 2.0, v.RiskReward, 1e-9)

	// SHORT with stop below entry violates ordering.
	sig = daySignal(100, 94, 98, 90)
	sig.Direction = models.DirectionShort
	v = Evaluate(sig, 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "strictly above entry"), "reasons: %v", v.Reasons)
}

func TestRiskRewardInvariantUnderScaling(t *testing.T) {
	base := Evaluate(daySignal(100, 108, 96, 90), 100)
	scaled := Evaluate(daySignal(100_000, 108_000, 96_000, 90), 100_000)

	assert.Equal(t, base.Valid, scaled.Valid)
	assert.InDelta(t, base.RiskReward, scaled.RiskReward, 1e-9)
	assert.InDelta(t, base.StopLossPct, scaled.StopLossPct, 1e-9)
	assert.InDelta(t, base.TargetPct, scaled.TargetPct, 1e-9)
}

func TestStyleDependentStopCeiling(t *testing.T) {
	// 18% stop distance: too wide for a day trade, fine for a swing trade.
	day := daySignal(100, 140, 82, 90)
	v := Evaluate(day, 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "ceiling"), "reasons: %v", v.Reasons)

	swing := daySignal(100, 140, 82, 90)
	swing.Style = models.StyleSwingTrade
	v = Evaluate(swing, 100)
	assert.True(t, v.Valid, "reasons: %v", v.Reasons)
}

func TestTargetCeiling(t *testing.T) {
	// 60% target is an unrealistic projection for a day trade.
	v := Evaluate(daySignal(100, 160, 90, 90), 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "target"), "reasons: %v", v.Reasons)
}

func TestEntryMayNotRequireStopOrderSemantics(t *testing.T) {
	// Explicit LONG with entry above the live price would need a stop order.
	sig := daySignal(105, 112, 101, 90)
	v := Evaluate(sig, 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "stop order"), "reasons: %v", v.Reasons)

	// With no explicit direction a 2% drift is tolerated.
	inferred := daySignal(101, 108, 97.9, 90)
	inferred.Direction = ""
	v = Evaluate(inferred, 100)
	assert.True(t, v.Valid, "reasons: %v", v.Reasons)

	inferred = daySignal(103, 110, 99.9, 90)
	inferred.Direction = ""
	v = Evaluate(inferred, 100)
	assert.False(t, v.Valid)
	assert.True(t, hasReason(v, "stop order"), "reasons: %v", v.Reasons)
}

func TestNoReferencePriceSkipsOrderSemanticsOnly(t *testing.T) {
	v := Evaluate(daySignal(105, 115, 101, 90), 0)
	assert.True(t, v.Valid, "reasons: %v", v.Reasons)
}
