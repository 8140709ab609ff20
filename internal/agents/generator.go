package agents

import (
	"encoding/json"
	"fmt"

	"signalforge/internal/models"
)

// ContentResult is the generator agent's contract: the formatted message
// that will be distributed to subscribers.
type ContentResult struct {
	Title string `json:"title" validate:"required"`
	Body  string `json:"body" validate:"required,min=40"`
}

const generatorSystem = `You are the publication writer for a trading signal
service. Format the supplied material into a clear subscriber message.
Plain text only, no markdown tables, no financial-advice disclaimers beyond
one closing line.

Reply with a single JSON object: {"title": "...", "body": "..."}`

// SignalContentInput asks the generator to format a validated trade signal.
func SignalContentInput(sig *models.ProposedSignal) Input {
	payload, _ := json.MarshalIndent(sig, "", "  ")
	return Input{
		System: generatorSystem,
		User:   fmt.Sprintf("Write the subscriber message for this validated trade signal:\n%s", payload),
	}
}

// IntelContentInput asks the generator for a non-actionable market update,
// used whenever no trade qualifies.
func IntelContentInput(snap *models.MarketSnapshot, reason string) Input {
	digest, _ := json.MarshalIndent(snap, "", "  ")
	return Input{
		System: generatorSystem,
		User: fmt.Sprintf(
			"No trade qualified this run (%s). Write a short market intel update for subscribers based on this snapshot:\n%s",
			reason, digest),
	}
}
