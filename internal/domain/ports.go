package domain

import "context"

// Oracle is the decision service invoked at the filter, analyze, and select
// stages. Each operation is a single request/response call: no operation
// retries internally, and the analyzer treats one failed call as the terminal
// outcome for that call (safe defaults are substituted immediately).
type Oracle interface {
	// FilterMarkets cheaply narrows the tradeable catalog to at most five
	// markets that the event could plausibly move.
	FilterMarkets(ctx context.Context, event Event, markets []Market) (FilterResult, error)

	// AnalyzeImpact deeply scores one (event, market) pair and proposes a
	// trade.
	AnalyzeImpact(ctx context.Context, event Event, market Market) (ImpactJudgment, error)

	// SelectBestMarket picks exactly one market among two or more actionable
	// candidates.
	SelectBestMarket(ctx context.Context, event Event, impacts []ImpactJudgment) (MarketSelection, error)
}

// Balance is a wallet balance snapshot from the venue.
type Balance struct {
	Available float64 `json:"available"`
	Total     float64 `json:"total"`
	Symbol    string  `json:"symbol"`
}

// Venue places orders against the trading venue. The analyzer calls
// PlaceOrder at most once per session; any adapter-level retry must not
// duplicate orders for one logical call.
type Venue interface {
	PlaceOrder(ctx context.Context, marketID, side string, amount, price float64, tokenID string) (TradeExecution, error)
	GetBalance(ctx context.Context) (Balance, error)
}

// MarketCatalog holds the current set of tradeable markets.
type MarketCatalog interface {
	// Refresh replaces the held set wholesale and returns the new set. On
	// failure the previous set is retained.
	Refresh(ctx context.Context) ([]Market, error)
	// GetAll is a non-blocking read of the last successful refresh.
	GetAll() []Market
}

// SessionStore is the append-only, queryable collection of analysis sessions.
// Append and Update must be atomic with respect to readers: Get, All, and
// Filter return deep copies taken under the store lock, never live references.
type SessionStore interface {
	Append(session AnalysisSession) error
	Update(session AnalysisSession) error
	Get(id string) (AnalysisSession, bool)
	All() []AnalysisSession
	Filter(f SessionFilter) []AnalysisSession
}

// SignalBus fans pipeline events out to push-transport observers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// SessionAuditLog durably records sealed sessions for offline audit.
type SessionAuditLog interface {
	Record(ctx context.Context, session AnalysisSession) error
}

// BlobWriter uploads JSON documents to object storage.
type BlobWriter interface {
	PutJSON(ctx context.Context, key string, v any) error
}
