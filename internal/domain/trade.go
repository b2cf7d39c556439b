package domain

import "time"

// TradeStatus is the lifecycle state of an order attempt. A trade is created
// pending and transitions exactly once to confirmed or failed.
type TradeStatus string

const (
	TradeStatusPending   TradeStatus = "pending"
	TradeStatusConfirmed TradeStatus = "confirmed"
	TradeStatusFailed    TradeStatus = "failed"
)

// TradeExecution records the outcome of attempting to place one order on the
// venue. A failed execution is a valid terminal outcome, not a pipeline
// defect; the error field carries the venue's reason.
type TradeExecution struct {
	ID        string      `json:"id"`
	MarketID  string      `json:"marketId"`
	Side      string      `json:"side"`
	Amount    float64     `json:"amount"`
	Price     float64     `json:"price"`
	Status    TradeStatus `json:"status"`
	Error     string      `json:"error,omitempty"`
	TxHash    string      `json:"txHash,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
