package agents

import (
	"encoding/json"
	"fmt"
	"strings"

	"signalforge/internal/models"
)

// AnalysisResult is the analyzer agent's contract. Action "no_trade" routes
// the run down the informational path; "signal" must carry a full proposal.
type AnalysisResult struct {
	Action     string                 `json:"action" validate:"required,oneof=signal no_trade"`
	Signal     *models.ProposedSignal `json:"signal,omitempty" validate:"required_if=Action signal"`
	Commentary string                 `json:"commentary"`
}

const analyzerSystem = `You are a crypto trade analyst. You receive candidate tokens
with recent OHLCV history and must either propose exactly one trade or decline.

Hard requirements for a proposal:
- entry_price, target_price and stop_loss must all be present and positive
- confidence is 0-100; anything below 85 will be discarded
- reward must be at least twice the risk
- stop_loss must sit 3-15% from entry for day trades, 3-20% for swing trades
- order_kind is "market" or "limit"; stop orders do not exist here

Reply with a single JSON object:
{
  "action": "signal" | "no_trade",
  "commentary": "...",
  "signal": {
    "token": {"symbol": "...", "name": "...", "chain": "...", "address": "...",
              "direction": "LONG" | "SHORT", "rationale": "..."},
    "direction": "LONG" | "SHORT",
    "order_kind": "market" | "limit",
    "style": "day_trade" | "swing_trade",
    "entry_price": 0.0, "target_price": 0.0, "stop_loss": 0.0,
    "confidence": 0,
    "analysis": "...",
    "trigger": {"kind": "...", "description": "..."},
    "confluence": {"factors": ["..."], "alignment": 0.0}
  }
}
Omit "signal" entirely when action is "no_trade".`

// CandidateChart pairs a candidate with its fetched price history.
type CandidateChart struct {
	Candidate models.Candidate
	Interval  string
	Candles   []models.Candle
}

// AnalyzeInput builds the analyzer request from the scan output and the
// per-candidate chart data fetched by the coordinator.
func AnalyzeInput(snap *models.MarketSnapshot, bias string, charts []CandidateChart) Input {
	var b strings.Builder
	fmt.Fprintf(&b, "Scanner market bias: %s\n\n", bias)
	if snap.Global != nil {
		global, _ := json.Marshal(snap.Global)
		fmt.Fprintf(&b, "Global context: %s\n\n", global)
	}
	if snap.Reference != nil {
		ref, _ := json.Marshal(snap.Reference)
		fmt.Fprintf(&b, "Reference asset technicals: %s\n\n", ref)
	}
	for _, ch := range charts {
		meta, _ := json.Marshal(ch.Candidate)
		fmt.Fprintf(&b, "Candidate %s (%s candles, %d bars): %s\n", ch.Candidate.Symbol, ch.Interval, len(ch.Candles), meta)
		if len(ch.Candles) > 0 {
			bars, _ := json.Marshal(ch.Candles)
			b.Write(bars)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return Input{System: analyzerSystem, User: b.String()}
}
