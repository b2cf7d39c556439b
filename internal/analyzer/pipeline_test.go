package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/seerbot/internal/domain"
	"github.com/alanyoungcy/seerbot/internal/store/memory"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeOracle struct {
	mu sync.Mutex

	filterResult domain.FilterResult
	filterErr    error

	judgments  map[string]domain.ImpactJudgment
	analyzeErr map[string]error
	delays     map[string]time.Duration

	selection   domain.MarketSelection
	selectErr   error
	selectCalls int
}

func (o *fakeOracle) FilterMarkets(ctx context.Context, event domain.Event, markets []domain.Market) (domain.FilterResult, error) {
	if o.filterErr != nil {
		return domain.FilterResult{}, o.filterErr
	}
	return o.filterResult, nil
}

func (o *fakeOracle) AnalyzeImpact(ctx context.Context, event domain.Event, market domain.Market) (domain.ImpactJudgment, error) {
	if d, ok := o.delays[market.ID]; ok {
		time.Sleep(d)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err, ok := o.analyzeErr[market.ID]; ok {
		return domain.ImpactJudgment{}, err
	}
	j, ok := o.judgments[market.ID]
	if !ok {
		return domain.DefaultJudgment(market), nil
	}
	return j, nil
}

func (o *fakeOracle) SelectBestMarket(ctx context.Context, event domain.Event, impacts []domain.ImpactJudgment) (domain.MarketSelection, error) {
	o.mu.Lock()
	o.selectCalls++
	o.mu.Unlock()
	if o.selectErr != nil {
		return domain.MarketSelection{}, o.selectErr
	}
	return o.selection, nil
}

type placedOrder struct {
	marketID string
	side     string
	amount   float64
	price    float64
	tokenID  string
}

type fakeVenue struct {
	mu     sync.Mutex
	orders []placedOrder
	err    error
}

func (v *fakeVenue) PlaceOrder(ctx context.Context, marketID, side string, amount, price float64, tokenID string) (domain.TradeExecution, error) {
	v.mu.Lock()
	v.orders = append(v.orders, placedOrder{marketID, side, amount, price, tokenID})
	v.mu.Unlock()
	if v.err != nil {
		return domain.TradeExecution{}, v.err
	}
	return domain.TradeExecution{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Side:      side,
		Amount:    amount,
		Price:     price,
		Status:    domain.TradeStatusConfirmed,
		TxHash:    "0xabc",
		Timestamp: time.Now().UTC(),
	}, nil
}

func (v *fakeVenue) GetBalance(ctx context.Context) (domain.Balance, error) {
	return domain.Balance{Available: 100, Total: 100, Symbol: "USDT"}, nil
}

type fakeCatalog struct {
	markets []domain.Market
}

func (c *fakeCatalog) Refresh(ctx context.Context) ([]domain.Market, error) { return c.markets, nil }
func (c *fakeCatalog) GetAll() []domain.Market                             { return c.markets }

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func tradeableMarket(id, primary, secondary string) domain.Market {
	return domain.Market{
		ID:       id,
		Question: "Question " + id,
		Category: "Economics",
		Status:   domain.MarketStatusActive,
		Outcomes: [2]domain.Outcome{
			{ID: id + "-p", Label: primary, Probability: 0.5},
			{ID: id + "-s", Label: secondary, Probability: 0.5},
		},
		Tokens: &domain.TradeTokens{Primary: "tok-" + id + "-p", Secondary: "tok-" + id + "-s"},
	}
}

func buyJudgment(m domain.Market, side string, confidence, price float64) domain.ImpactJudgment {
	return domain.ImpactJudgment{
		MarketID:    m.ID,
		Market:      m,
		Sentiment:   domain.SentimentPositive,
		ImpactScore: 0.8,
		Confidence:  confidence,
		TradeDecision: domain.TradeDecision{
			Action:         domain.ActionBuy,
			Side:           side,
			SuggestedPrice: price,
			SizeUSDC:       5,
		},
		Reason: "strong signal",
	}
}

func holdJudgment(m domain.Market) domain.ImpactJudgment {
	j := domain.DefaultJudgment(m)
	j.Confidence = 0.3
	return j
}

func testEvent() domain.Event {
	return domain.Event{
		ID:        "ev1",
		Text:      "Fed announces surprise rate cut",
		Author:    domain.Author{Name: "Reuters", Handle: "Reuters", Verified: true},
		Timestamp: time.Now().UTC(),
	}
}

func newTestPipeline(oracle domain.Oracle, venue domain.Venue, cat domain.MarketCatalog, store domain.SessionStore) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(oracle, venue, cat, store, nil, nil, nil, Config{
		TradeSizeUSDC:      5,
		MaxRelevantMarkets: 5,
		RemoteTimeout:      time.Second,
	}, logger)
}

func stepByType(t *testing.T, s domain.AnalysisSession, typ domain.StepType) domain.AnalysisStep {
	t.Helper()
	for _, st := range s.Steps {
		if st.Type == typ {
			return st
		}
	}
	t.Fatalf("session has no %s step", typ)
	return domain.AnalysisStep{}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestIrrelevantEventCompletesWithoutAnalysis(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	oracle := &fakeOracle{filterResult: domain.FilterResult{IsRelevant: false, Summary: "no connection"}}
	venue := &fakeVenue{}
	store := memory.NewSessionStore()

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1}}, store)
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionComplete, session.Status)
	require.NotNil(t, session.EndTime)
	assert.Empty(t, session.MarketImpacts)
	assert.Empty(t, session.Trades)
	assert.Empty(t, venue.orders)
	require.NotNil(t, session.FilterResult)
	assert.False(t, session.FilterResult.IsRelevant)

	assert.Equal(t, domain.StepStatusComplete, stepByType(t, session, domain.StepFiltering).Status)
	assert.Equal(t, domain.StepStatusComplete, stepByType(t, session, domain.StepComplete).Status)

	stored, ok := store.Get(session.ID)
	require.True(t, ok)
	assert.Equal(t, domain.SessionComplete, stored.Status)
}

func TestFilterFailureDegradesToNotRelevant(t *testing.T) {
	oracle := &fakeOracle{filterErr: errors.New("oracle down")}
	venue := &fakeVenue{}
	store := memory.NewSessionStore()

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{tradeableMarket("m1", "YES", "NO")}}, store)
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionComplete, session.Status, "filter failure never errors the session")
	assert.Empty(t, session.Trades)
	require.NotNil(t, session.FilterResult)
	assert.False(t, session.FilterResult.IsRelevant)
	assert.Equal(t, domain.StepStatusError, stepByType(t, session, domain.StepFiltering).Status)
}

func TestSingleActionableSkipsSelection(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	m2 := tradeableMarket("m2", "UP", "DOWN")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1", "m2"}},
		judgments: map[string]domain.ImpactJudgment{
			"m1": buyJudgment(m1, "YES", 0.9, 0.6),
			"m2": holdJudgment(m2),
		},
	}
	venue := &fakeVenue{}
	store := memory.NewSessionStore()

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1, m2}}, store)
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, 0, oracle.selectCalls, "selection oracle skipped for a single candidate")
	require.Len(t, session.Trades, 1)
	assert.Equal(t, "m1", session.Trades[0].MarketID)
	assert.Equal(t, domain.TradeStatusConfirmed, session.Trades[0].Status)

	deciding := stepByType(t, session, domain.StepDeciding)
	assert.Equal(t, domain.StepStatusComplete, deciding.Status)
	assert.Equal(t, 1.0, deciding.Data["confidence"])
}

func TestMultipleActionableTradesExactlyOnce(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	m2 := tradeableMarket("m2", "UP", "DOWN")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1", "m2"}},
		judgments: map[string]domain.ImpactJudgment{
			"m1": buyJudgment(m1, "YES", 0.7, 0.6),
			"m2": buyJudgment(m2, "DOWN", 0.9, 0.4),
		},
		selection: domain.MarketSelection{MarketID: "m2", Reasoning: "higher confidence", Confidence: 0.85},
	}
	venue := &fakeVenue{}
	store := memory.NewSessionStore()

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1, m2}}, store)
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, 1, oracle.selectCalls)
	require.Len(t, venue.orders, 1)
	assert.Equal(t, "m2", venue.orders[0].marketID)
	assert.Equal(t, "tok-m2-s", venue.orders[0].tokenID, "DOWN side resolves to the secondary token")
	assert.Equal(t, 5.0, venue.orders[0].amount, "fixed size overrides oracle suggestion")

	require.Len(t, session.Trades, 1)
	assert.Equal(t, domain.SessionComplete, session.Status)
}

func TestInvalidSelectionSealsError(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	m2 := tradeableMarket("m2", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1", "m2"}},
		judgments: map[string]domain.ImpactJudgment{
			"m1": buyJudgment(m1, "YES", 0.7, 0.6),
			"m2": buyJudgment(m2, "YES", 0.8, 0.6),
		},
		selection: domain.MarketSelection{MarketID: "ghost", Confidence: 0.9},
	}
	venue := &fakeVenue{}
	store := memory.NewSessionStore()

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1, m2}}, store)
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionError, session.Status)
	assert.Empty(t, session.Trades, "no trade without a validated selection")
	assert.Empty(t, venue.orders)
	assert.Equal(t, domain.StepStatusError, stepByType(t, session, domain.StepDeciding).Status)
}

func TestSelectionErrorSealsError(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	m2 := tradeableMarket("m2", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1", "m2"}},
		judgments: map[string]domain.ImpactJudgment{
			"m1": buyJudgment(m1, "YES", 0.7, 0.6),
			"m2": buyJudgment(m2, "YES", 0.8, 0.6),
		},
		selectErr: errors.New("oracle timeout"),
	}
	venue := &fakeVenue{}

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1, m2}}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionError, session.Status)
	assert.Empty(t, venue.orders)
}

func TestVenueFailureRecordsFailedTrade(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1"}},
		judgments:    map[string]domain.ImpactJudgment{"m1": buyJudgment(m1, "YES", 0.9, 0.6)},
	}
	venue := &fakeVenue{err: errors.New("insufficient balance")}

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1}}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionComplete, session.Status, "order failure is informative, not a pipeline defect")
	require.Len(t, session.Trades, 1)
	assert.Equal(t, domain.TradeStatusFailed, session.Trades[0].Status)
	assert.Contains(t, session.Trades[0].Error, "insufficient balance")
	assert.Equal(t, domain.StepStatusError, stepByType(t, session, domain.StepExecuting).Status)
}

func TestNilVenueRecordsFailedTrade(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1"}},
		judgments:    map[string]domain.ImpactJudgment{"m1": buyJudgment(m1, "YES", 0.9, 0.6)},
	}

	p := newTestPipeline(oracle, nil, &fakeCatalog{markets: []domain.Market{m1}}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionComplete, session.Status)
	require.Len(t, session.Trades, 1)
	assert.Equal(t, domain.TradeStatusFailed, session.Trades[0].Status)
	assert.Contains(t, session.Trades[0].Error, "venue not configured")
}

func TestAnalysisFailureDefaultsJudgment(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	m2 := tradeableMarket("m2", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1", "m2"}},
		judgments:    map[string]domain.ImpactJudgment{"m2": buyJudgment(m2, "YES", 0.8, 0.6)},
		analyzeErr:   map[string]error{"m1": errors.New("rate limited")},
	}
	venue := &fakeVenue{}

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1, m2}}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	require.Len(t, session.MarketImpacts, 2)
	assert.Equal(t, "m1", session.MarketImpacts[0].MarketID)
	assert.Equal(t, domain.ActionHold, session.MarketImpacts[0].TradeDecision.Action)
	assert.Equal(t, domain.SentimentNeutral, session.MarketImpacts[0].Sentiment)

	assert.Equal(t, domain.StepStatusError, stepByType(t, session, domain.StepAnalyzing).Status)

	// The surviving judgment still trades.
	require.Len(t, session.Trades, 1)
	assert.Equal(t, "m2", session.Trades[0].MarketID)
	assert.Equal(t, domain.SessionComplete, session.Status)
}

func TestImpactOrderFollowsFilterOrder(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	m2 := tradeableMarket("m2", "YES", "NO")
	m3 := tradeableMarket("m3", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m3", "m1", "m2"}},
		judgments: map[string]domain.ImpactJudgment{
			"m1": holdJudgment(m1),
			"m2": holdJudgment(m2),
			"m3": holdJudgment(m3),
		},
		// m3 completes last despite being first in the relevant order.
		delays: map[string]time.Duration{"m3": 50 * time.Millisecond, "m1": 10 * time.Millisecond},
	}

	p := newTestPipeline(oracle, &fakeVenue{}, &fakeCatalog{markets: []domain.Market{m1, m2, m3}}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	require.Len(t, session.MarketImpacts, 3)
	assert.Equal(t, "m3", session.MarketImpacts[0].MarketID)
	assert.Equal(t, "m1", session.MarketImpacts[1].MarketID)
	assert.Equal(t, "m2", session.MarketImpacts[2].MarketID)
}

func TestFilterIDsValidatedDedupedCapped(t *testing.T) {
	markets := []domain.Market{
		tradeableMarket("m1", "YES", "NO"),
		tradeableMarket("m2", "YES", "NO"),
		tradeableMarket("m3", "YES", "NO"),
	}
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{
			IsRelevant:        true,
			RelevantMarketIDs: []string{"m2", "ghost", "m2", "m1"},
		},
	}

	p := newTestPipeline(oracle, &fakeVenue{}, &fakeCatalog{markets: markets}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	require.Len(t, session.MarketImpacts, 2)
	assert.Equal(t, "m2", session.MarketImpacts[0].MarketID)
	assert.Equal(t, "m1", session.MarketImpacts[1].MarketID)
}

func TestSuggestedPriceClamped(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1"}},
		judgments:    map[string]domain.ImpactJudgment{"m1": buyJudgment(m1, "YES", 0.9, 1.5)},
	}
	venue := &fakeVenue{}

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1}}, memory.NewSessionStore())
	p.Process(context.Background(), testEvent())

	require.Len(t, venue.orders, 1)
	assert.Equal(t, 0.99, venue.orders[0].price)
}

func TestNoActionableImpactsHolds(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	oracle := &fakeOracle{
		filterResult: domain.FilterResult{IsRelevant: true, RelevantMarketIDs: []string{"m1"}},
		judgments:    map[string]domain.ImpactJudgment{"m1": holdJudgment(m1)},
	}
	venue := &fakeVenue{}

	p := newTestPipeline(oracle, venue, &fakeCatalog{markets: []domain.Market{m1}}, memory.NewSessionStore())
	session := p.Process(context.Background(), testEvent())

	assert.Equal(t, domain.SessionComplete, session.Status)
	assert.Empty(t, session.Trades)
	assert.Empty(t, venue.orders)
	assert.Equal(t, 0, oracle.selectCalls)
	assert.Equal(t, domain.StepStatusComplete, stepByType(t, session, domain.StepDeciding).Status)
}

func TestRunProcessesQueuedEvents(t *testing.T) {
	m1 := tradeableMarket("m1", "YES", "NO")
	oracle := &fakeOracle{filterResult: domain.FilterResult{IsRelevant: false}}
	store := memory.NewSessionStore()

	p := newTestPipeline(oracle, &fakeVenue{}, &fakeCatalog{markets: []domain.Market{m1}}, store)

	events := make(chan domain.Event, 3)
	for i := 0; i < 3; i++ {
		events <- testEvent()
	}
	close(events)

	err := p.Run(context.Background(), events)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())
	for _, s := range store.All() {
		assert.Equal(t, domain.SessionComplete, s.Status)
	}
}
