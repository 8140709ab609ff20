package agents

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromFencedReply(t *testing.T) {
	raw, err := ExtractJSON("Here is my analysis:\n```json\n{\"action\": \"no_trade\"}\n```\nLet me know if you need more.")
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "no_trade"}`, string(raw))
}

func TestExtractJSONFromProse(t *testing.T) {
	raw, err := ExtractJSON(`Sure! {"market_bias": "neutral", "commentary": "quiet", "candidates": []} hope that helps`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"market_bias": "neutral", "commentary": "quiet", "candidates": []}`, string(raw))
}

func TestExtractJSONRejectsNonJSONReply(t *testing.T) {
	_, err := ExtractJSON("I cannot answer that in JSON form.")
	assert.Error(t, err)

	_, err = ExtractJSON("```json\n{broken\n```")
	assert.Error(t, err)
}

func TestDecodeReportsMissingFieldByJSONName(t *testing.T) {
	_, err := Decode[ScanResult](RoleScanner, json.RawMessage(`{"commentary": "looks flat"}`))
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, RoleScanner, serr.Role)
	require.Len(t, serr.Violations, 1)
	assert.Contains(t, serr.Violations[0], "market_bias")
	assert.Contains(t, serr.Violations[0], "missing")
}

func TestDecodeReportsOneofViolation(t *testing.T) {
	_, err := Decode[ScanResult](RoleScanner, json.RawMessage(`{"market_bias": "sideways", "candidates": []}`))
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Violations, 1)
	assert.Contains(t, serr.Violations[0], "market_bias")
	assert.Contains(t, serr.Violations[0], "bullish")
}

func TestDecodeRequiresSignalWhenActionIsSignal(t *testing.T) {
	_, err := Decode[AnalysisResult](RoleAnalyzer, json.RawMessage(`{"action": "signal", "commentary": "setup found"}`))
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Violations, 1)
	assert.Contains(t, serr.Violations[0], "signal")

	out, err := Decode[AnalysisResult](RoleAnalyzer, json.RawMessage(`{"action": "no_trade", "commentary": "nothing"}`))
	require.NoError(t, err)
	assert.Equal(t, "no_trade", out.Action)
}

func TestDecodeRequiresTargetAndStopWithEntry(t *testing.T) {
	raw := json.RawMessage(`{
		"action": "signal",
		"signal": {
			"token": {"symbol": "SOL", "direction": "LONG"},
			"order_kind": "market",
			"style": "day_trade",
			"entry_price": 100,
			"confidence": 90
		}
	}`)

	_, err := Decode[AnalysisResult](RoleAnalyzer, raw)
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Violations, 2)
	assert.Contains(t, serr.Violations[0], "target_price")
	assert.Contains(t, serr.Violations[1], "stop_loss")
}

func TestDecodeRejectsMalformedShape(t *testing.T) {
	_, err := Decode[ContentResult](RoleGenerator, json.RawMessage(`{"title": 42, "body": "..."}`))
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Violations[0], "expected shape")
}

func TestDecodeEnforcesMinimumBodyLength(t *testing.T) {
	_, err := Decode[ContentResult](RoleGenerator, json.RawMessage(`{"title": "Update", "body": "too short"}`))
	var serr *SchemaError
	require.ErrorAs(t, err, &serr)
	require.Len(t, serr.Violations, 1)
	assert.Contains(t, serr.Violations[0], "body")
}

func TestInputMessagesRenderCorrections(t *testing.T) {
	in := Input{
		System:      "be precise",
		User:        "analyze this",
		Corrections: []string{`field "confidence" is missing`, `field "style" must be one of [day_trade swing_trade]`},
	}

	msgs := in.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "be precise", msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "analyze this")
	assert.Contains(t, msgs[1].Content, "previous reply was rejected")
	assert.Contains(t, msgs[1].Content, `field "confidence" is missing`)

	clean := Input{System: "s", User: "u"}
	assert.Equal(t, "u", clean.Messages()[1].Content)
}

func TestSchemaErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := error(&SchemaError{Role: RoleScanner, Violations: []string{"v"}, Err: inner})
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "scanner")
}
