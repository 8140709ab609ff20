package agents

import (
	"encoding/json"
	"fmt"

	"signalforge/internal/models"
)

// ScanResult is the scanner agent's contract: a market bias plus zero or
// more candidates worth deeper analysis.
type ScanResult struct {
	MarketBias string             `json:"market_bias" validate:"required,oneof=bullish bearish neutral"`
	Commentary string             `json:"commentary"`
	Candidates []models.Candidate `json:"candidates" validate:"dive"`
}

const scannerSystem = `You are a crypto market scanner. You receive a consolidated
market snapshot (trending tokens, top movers, global context, reference-asset
technicals) and pick at most three tokens that deserve a deeper trade analysis.

Reply with a single JSON object:
{
  "market_bias": "bullish" | "bearish" | "neutral",
  "commentary": "one paragraph on overall conditions",
  "candidates": [
    {"symbol": "...", "name": "...", "chain": "...", "address": "...",
     "direction": "LONG" | "SHORT", "rationale": "..."}
  ]
}
Return an empty candidates array when nothing stands out. Never invent tokens
that are absent from the snapshot.`

// ScanInput builds the scanner request from a market snapshot.
func ScanInput(snap *models.MarketSnapshot, exclude []string) Input {
	digest, _ := json.MarshalIndent(snap, "", "  ")
	user := fmt.Sprintf("Market snapshot collected at %s:\n%s", snap.CollectedAt.Format("2006-01-02 15:04 MST"), digest)
	if len(exclude) > 0 {
		user += fmt.Sprintf("\n\nDo not propose these symbols, they already have open exposure: %v", exclude)
	}
	return Input{System: scannerSystem, User: user}
}
