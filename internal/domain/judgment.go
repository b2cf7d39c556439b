package domain

// Sentiment is the oracle's directional read of an event on a market's
// primary outcome.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
)

// TradeAction is the oracle's proposed action for one market.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
	ActionHold TradeAction = "HOLD"
)

// TradeDecision is the trade proposal attached to an impact judgment. Side is
// an outcome label of the judged market ("" for HOLD). SizeUSDC is advisory
// only: the analyzer always overrides it with the configured fixed size at
// execution time.
type TradeDecision struct {
	Action         TradeAction `json:"action"`
	Side           string      `json:"side,omitempty"`
	SuggestedPrice float64     `json:"suggestedPrice"`
	SizeUSDC       float64     `json:"sizeUsdc"`
}

// ImpactJudgment is the oracle's assessment of how one event affects one
// market, plus the proposed trade. It is immutable once produced. The judged
// Market is embedded so downstream stages (selection, execution, history
// filtering by category) never need a catalog lookup.
type ImpactJudgment struct {
	MarketID       string        `json:"marketId"`
	Market         Market        `json:"market"`
	Sentiment      Sentiment     `json:"sentiment"`
	ImpactScore    float64       `json:"impactScore"`
	Confidence     float64       `json:"confidence"`
	ReasoningSteps []string      `json:"reasoningSteps,omitempty"`
	TradeDecision  TradeDecision `json:"tradeDecision"`
	Reason         string        `json:"humanReadableReason"`
}

// Actionable reports whether the judgment proposes an actual trade.
func (j ImpactJudgment) Actionable() bool {
	return j.TradeDecision.Action == ActionBuy || j.TradeDecision.Action == ActionSell
}

// DefaultJudgment is the safe substitute for a failed per-market analysis:
// neutral, zero impact, zero confidence, HOLD. Downstream selection never has
// to special-case a missing judgment.
func DefaultJudgment(market Market) ImpactJudgment {
	return ImpactJudgment{
		MarketID:  market.ID,
		Market:    market,
		Sentiment: SentimentNeutral,
		TradeDecision: TradeDecision{
			Action:         ActionHold,
			SuggestedPrice: 0.5,
		},
		Reason: "analysis could not be completed",
	}
}

// FilterResult is the outcome of the cheap market-filter stage.
type FilterResult struct {
	IsRelevant        bool     `json:"isRelevant"`
	RelevantMarketIDs []string `json:"relevantMarketIds"`
	Summary           string   `json:"summary"`
}

// MarketSelection is the outcome of the selection stage: exactly one market
// chosen among the actionable candidates.
type MarketSelection struct {
	MarketID    string  `json:"selectedMarketId"`
	Reasoning   string  `json:"selectionReasoning"`
	Comparative string  `json:"comparativeAnalysis,omitempty"`
	Confidence  float64 `json:"confidenceInSelection"`
}
