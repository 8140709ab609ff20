package gate

import (
	"fmt"
	"math"

	"signalforge/internal/models"
)

// Gate thresholds. These are the strict primary-path values; call sites
// must not carry their own copies.
const (
	MinConfidence = 85.0
	MinRiskReward = 2.0

	MinStopLossPct      = 3.0
	MaxStopLossPctDay   = 15.0
	MaxStopLossPctSwing = 20.0

	MaxTargetPctDay   = 50.0
	MaxTargetPctSwing = 100.0

	// Allowed entry drift past the reference price when the direction had
	// to be inferred rather than given explicitly.
	inferredEntryTolerance = 0.02
)

// Verdict is the quality gate's output. Valid only when Reasons is empty.
type Verdict struct {
	Valid       bool             `json:"valid"`
	Reasons     []string         `json:"reasons,omitempty"`
	RiskReward  float64          `json:"risk_reward"`
	StopLossPct float64          `json:"stop_loss_pct"`
	TargetPct   float64          `json:"target_pct"`
	Direction   models.Direction `json:"direction"`
}

// Evaluate applies the trading-safety rules to a proposed signal. Pure and
// deterministic: the same signal and reference price always yield the same
// verdict. referencePrice <= 0 means no live price was available, which
// skips only the order-semantics rule (the price oracle rejects that case
// separately).
func Evaluate(sig *models.ProposedSignal, referencePrice float64) Verdict {
	v := Verdict{}

	if sig == nil {
		v.Reasons = append(v.Reasons, "no signal proposed")
		return v
	}

	if sig.Confidence < MinConfidence {
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("confidence %.0f is below the %.0f minimum", sig.Confidence, MinConfidence))
	}

	entry, target, stop, ok := prices(sig, &v)
	if !ok {
		return v
	}

	inferred := models.DirectionShort
	if target > entry {
		inferred = models.DirectionLong
	}
	direction := sig.Direction
	if direction == "" {
		direction = inferred
	}
	v.Direction = direction

	maxStopPct, maxTargetPct := MaxStopLossPctDay, MaxTargetPctDay
	if sig.Style == models.StyleSwingTrade {
		maxStopPct, maxTargetPct = MaxStopLossPctSwing, MaxTargetPctSwing
	}

	// Directional consistency: the stop must sit on the losing side.
	switch direction {
	case models.DirectionLong:
		if stop >= entry {
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("LONG stop-loss %.6g must be strictly below entry %.6g", stop, entry))
		}
		if target <= entry {
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("LONG target %.6g must be above entry %.6g", target, entry))
		}
	case models.DirectionShort:
		if stop <= entry {
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("SHORT stop-loss %.6g must be strictly above entry %.6g", stop, entry))
		}
		if target >= entry {
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("SHORT target %.6g must be below entry %.6g", target, entry))
		}
	}

	risk := math.Abs(entry - stop)
	reward := math.Abs(target - entry)
	if risk > 0 {
		v.RiskReward = reward / risk
		if v.RiskReward < MinRiskReward {
			v.Reasons = append(v.Reasons,
				fmt.Sprintf("risk:reward %.2f is below the %.1f minimum", v.RiskReward, MinRiskReward))
		}
	}

	v.StopLossPct = risk / entry * 100
	if v.StopLossPct < MinStopLossPct {
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("stop-loss %.2f%% from entry is tighter than the %.0f%% minimum", v.StopLossPct, MinStopLossPct))
	}
	if v.StopLossPct > maxStopPct {
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("stop-loss %.2f%% from entry exceeds the %.0f%% ceiling for %s", v.StopLossPct, maxStopPct, sig.Style))
	}

	v.TargetPct = reward / entry * 100
	if v.TargetPct > maxTargetPct {
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("target %.2f%% from entry exceeds the %.0f%% ceiling for %s", v.TargetPct, maxTargetPct, sig.Style))
	}

	// Order-type consistency: only market and limit orders exist, so the
	// entry may not sit on the stop-order side of the live price.
	if referencePrice > 0 {
		tolerance := 0.0
		if sig.Direction == "" {
			tolerance = inferredEntryTolerance
		}
		switch direction {
		case models.DirectionLong:
			if entry > referencePrice*(1+tolerance) {
				v.Reasons = append(v.Reasons,
					fmt.Sprintf("LONG entry %.6g above the current price %.6g would require a stop order", entry, referencePrice))
			}
		case models.DirectionShort:
			if entry < referencePrice*(1-tolerance) {
				v.Reasons = append(v.Reasons,
					fmt.Sprintf("SHORT entry %.6g below the current price %.6g would require a stop order", entry, referencePrice))
			}
		}
	}

	v.Valid = len(v.Reasons) == 0
	return v
}

// prices checks rule 1 (entry, target and stop all present and positive)
// and unwraps the pointers. Returns ok=false when the signal cannot be
// scored further.
func prices(sig *models.ProposedSignal, v *Verdict) (entry, target, stop float64, ok bool) {
	missing := false
	if sig.EntryPrice == nil || *sig.EntryPrice <= 0 {
		v.Reasons = append(v.Reasons, "entry price is missing or not a positive number")
		missing = true
	}
	if sig.TargetPrice == nil || *sig.TargetPrice <= 0 {
		v.Reasons = append(v.Reasons, "target price is missing or not a positive number")
		missing = true
	}
	if sig.StopLoss == nil || *sig.StopLoss <= 0 {
		v.Reasons = append(v.Reasons, "stop-loss is missing or not a positive number")
		missing = true
	}
	if missing {
		return 0, 0, 0, false
	}
	return *sig.EntryPrice, *sig.TargetPrice, *sig.StopLoss, true
}
