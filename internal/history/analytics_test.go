package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

func fixtureSessions() []domain.AnalysisSession {
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	return []domain.AnalysisSession{
		{
			ID:        "s1",
			Status:    domain.SessionComplete,
			StartTime: base,
			Event:     domain.Event{Author: domain.Author{Handle: "Reuters"}},
			MarketImpacts: []domain.ImpactJudgment{
				{Market: domain.Market{Category: "Economics"}, Sentiment: domain.SentimentPositive, Confidence: 0.8},
				{Market: domain.Market{Category: "Crypto"}, Sentiment: domain.SentimentNegative, Confidence: 0.6},
			},
			Trades: []domain.TradeExecution{
				{Status: domain.TradeStatusConfirmed, Amount: 5},
			},
		},
		{
			ID:        "s2",
			Status:    domain.SessionComplete,
			StartTime: base.Add(20 * time.Minute),
			Event:     domain.Event{Author: domain.Author{Handle: "Reuters"}},
			MarketImpacts: []domain.ImpactJudgment{
				{Market: domain.Market{Category: "Economics"}, Sentiment: domain.SentimentNeutral, Confidence: 0.4},
			},
			Trades: []domain.TradeExecution{
				{Status: domain.TradeStatusFailed, Amount: 5},
			},
		},
		{
			ID:        "s3",
			Status:    domain.SessionError,
			StartTime: base.Add(2 * time.Hour),
			Event:     domain.Event{Author: domain.Author{Handle: "WSJ"}},
		},
		{
			ID:        "s4",
			Status:    domain.SessionActive,
			StartTime: base.Add(2*time.Hour + 10*time.Minute),
			Event:     domain.Event{Author: domain.Author{Name: "CoinDesk"}},
		},
	}
}

func TestComputeCounts(t *testing.T) {
	a := Compute(fixtureSessions())

	assert.Equal(t, 4, a.TotalSessions)
	assert.Equal(t, 2, a.CompletedSessions)
	assert.Equal(t, 1, a.ErroredSessions)
	assert.Equal(t, 1, a.ActiveSessions)

	assert.Equal(t, 2, a.TotalTrades)
	assert.Equal(t, 1, a.SuccessfulTrades)
	assert.Equal(t, 1, a.FailedTrades)
	assert.InDelta(t, 0.5, a.SuccessRate, 1e-9)
	assert.InDelta(t, 5.0, a.TotalVolume, 1e-9, "only confirmed trades count toward volume")

	assert.InDelta(t, 0.5, a.AvgTradesPerSess, 1e-9)
	assert.InDelta(t, 0.75, a.AvgImpactsPerSess, 1e-9)
	assert.InDelta(t, 0.6, a.AvgConfidence, 1e-9)
}

func TestComputeBreakdowns(t *testing.T) {
	a := Compute(fixtureSessions())

	assert.Equal(t, 2, a.CategoryBreakdown["Economics"])
	assert.Equal(t, 1, a.CategoryBreakdown["Crypto"])

	assert.Equal(t, 1, a.SentimentBreakdown[string(domain.SentimentPositive)])
	assert.Equal(t, 1, a.SentimentBreakdown[string(domain.SentimentNegative)])
	assert.Equal(t, 1, a.SentimentBreakdown[string(domain.SentimentNeutral)])

	require.NotEmpty(t, a.TopAuthors)
	assert.Equal(t, "Reuters", a.TopAuthors[0].Author)
	assert.Equal(t, 2, a.TopAuthors[0].Count)
}

func TestComputeTimeSeries(t *testing.T) {
	a := Compute(fixtureSessions())

	require.Len(t, a.TimeSeries, 2)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), a.TimeSeries[0].Time)
	assert.Equal(t, 2, a.TimeSeries[0].Count)
	assert.Equal(t, time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC), a.TimeSeries[1].Time)
	assert.Equal(t, 2, a.TimeSeries[1].Count)
	assert.True(t, a.TimeSeries[0].Time.Before(a.TimeSeries[1].Time))
}

func TestComputeEmpty(t *testing.T) {
	a := Compute(nil)

	assert.Zero(t, a.TotalSessions)
	assert.Zero(t, a.SuccessRate)
	assert.Zero(t, a.AvgConfidence)
	assert.NotNil(t, a.CategoryBreakdown)
	assert.NotNil(t, a.SentimentBreakdown)
	assert.Empty(t, a.TopAuthors)
	assert.Empty(t, a.TimeSeries)
}

func TestComputeIdempotent(t *testing.T) {
	sessions := fixtureSessions()
	first := Compute(sessions)
	second := Compute(sessions)
	assert.Equal(t, first, second)
}
