package models

// Direction of a proposed trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// OrderKind is how the entry should execute. Stop orders are deliberately
// unsupported.
type OrderKind string

const (
	OrderMarket OrderKind = "market"
	OrderLimit  OrderKind = "limit"
)

// TradeStyle controls the stop-loss and target ceilings applied by the
// quality gate.
type TradeStyle string

const (
	StyleDayTrade   TradeStyle = "day_trade"
	StyleSwingTrade TradeStyle = "swing_trade"
)

// Candidate is a token the scanner flags for deeper analysis.
type Candidate struct {
	Symbol    string    `json:"symbol" validate:"required"`
	Name      string    `json:"name"`
	Chain     string    `json:"chain,omitempty"`
	Address   string    `json:"address,omitempty"`
	Direction Direction `json:"direction" validate:"required,oneof=LONG SHORT"`
	Rationale string    `json:"rationale"`
}

// TriggerEvent describes the catalyst behind a signal, when the analyzer
// identified one.
type TriggerEvent struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// ConfluenceMetrics captures how many independent factors line up behind
// the trade.
type ConfluenceMetrics struct {
	Factors   []string `json:"factors"`
	Alignment float64  `json:"alignment"` // 0..1
}

// ProposedSignal is the analyzer's output and the value the quality gate
// judges. Nil prices mean the analyzer declined to trade. If EntryPrice is
// set, TargetPrice and StopLoss must also be set before the signal may pass
// validation.
type ProposedSignal struct {
	Token       Candidate          `json:"token"`
	Direction   Direction          `json:"direction,omitempty" validate:"omitempty,oneof=LONG SHORT"`
	OrderKind   OrderKind          `json:"order_kind" validate:"required,oneof=market limit"`
	Style       TradeStyle         `json:"style" validate:"required,oneof=day_trade swing_trade"`
	EntryPrice  *float64           `json:"entry_price,omitempty" validate:"omitempty,gt=0"`
	TargetPrice *float64           `json:"target_price,omitempty" validate:"required_with=EntryPrice,omitempty,gt=0"`
	StopLoss    *float64           `json:"stop_loss,omitempty" validate:"required_with=EntryPrice,omitempty,gt=0"`
	Confidence  float64            `json:"confidence" validate:"gte=0,lte=100"`
	Analysis    string             `json:"analysis"`
	Trigger     *TriggerEvent      `json:"trigger,omitempty"`
	Confluence  *ConfluenceMetrics `json:"confluence,omitempty"`
}

// Actionable reports whether the analyzer actually proposed a trade.
func (s *ProposedSignal) Actionable() bool {
	return s != nil && s.EntryPrice != nil
}
