package domain

import (
	"strings"
	"time"
)

// MarketStatus represents the lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusActive   MarketStatus = "active"
	MarketStatusResolved MarketStatus = "resolved"
	MarketStatusPending  MarketStatus = "pending"
)

// Outcome is one side of a binary market. Probability is the current price of
// the outcome token in [0,1]; the two outcomes of a market are read
// independently and need not sum to 1.
type Outcome struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"` // e.g. "YES", "NO", "UP", "DOWN"
	Probability float64 `json:"probability"`
	Change24h   float64 `json:"change24h"`
	TokenID     string  `json:"tokenId,omitempty"`
}

// TradeTokens holds the venue token IDs for the two outcomes of a market.
// Both must be present for the market to be tradeable.
type TradeTokens struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Market represents a tradeable binary proposition on the venue. Markets are
// owned by the catalog cache and refreshed wholesale; they are never partially
// mutated.
type Market struct {
	ID        string       `json:"id"`
	Question  string       `json:"question"`
	Category  string       `json:"category"`
	Volume    float64      `json:"volume"`
	Liquidity float64      `json:"liquidity"`
	Outcomes  [2]Outcome   `json:"outcomes"`
	EndDate   time.Time    `json:"endDate"`
	Status    MarketStatus `json:"status"`
	Tokens    *TradeTokens `json:"tradeTokens,omitempty"`
}

// Tradeable reports whether orders can be placed on this market: both outcome
// token IDs must be known and the market must be active.
func (m Market) Tradeable() bool {
	return m.Status == MarketStatusActive &&
		m.Tokens != nil && m.Tokens.Primary != "" && m.Tokens.Secondary != ""
}

// TokenForSide resolves an outcome label (case-insensitive) to the venue
// token ID for that side. The second return is false when the side does not
// match either outcome or the market carries no trade tokens.
func (m Market) TokenForSide(side string) (string, bool) {
	if m.Tokens == nil {
		return "", false
	}
	switch {
	case strings.EqualFold(side, m.Outcomes[0].Label):
		return m.Tokens.Primary, m.Tokens.Primary != ""
	case strings.EqualFold(side, m.Outcomes[1].Label):
		return m.Tokens.Secondary, m.Tokens.Secondary != ""
	}
	return "", false
}
