// Package history computes aggregate views over the session store and
// handles cold-storage archival of sealed sessions.
package history

import (
	"sort"
	"time"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// topAuthorLimit bounds the per-author breakdown.
const topAuthorLimit = 5

// Compute aggregates the given sessions into a fresh analytics snapshot.
// It is a pure function over its input: no caching, no incremental state.
func Compute(sessions []domain.AnalysisSession) domain.SessionAnalytics {
	a := domain.SessionAnalytics{
		CategoryBreakdown:  make(map[string]int),
		SentimentBreakdown: make(map[string]int),
		TopAuthors:         []domain.AuthorCount{},
		TimeSeries:         []domain.TimeBucket{},
	}
	a.TotalSessions = len(sessions)

	authorCounts := make(map[string]int)
	bucketCounts := make(map[time.Time]int)
	var confidenceSum float64
	var confidenceN int
	var impactsTotal int

	for i := range sessions {
		s := &sessions[i]
		switch s.Status {
		case domain.SessionComplete:
			a.CompletedSessions++
		case domain.SessionError:
			a.ErroredSessions++
		case domain.SessionActive:
			a.ActiveSessions++
		}

		for _, trade := range s.Trades {
			a.TotalTrades++
			if trade.Status == domain.TradeStatusConfirmed {
				a.SuccessfulTrades++
				a.TotalVolume += trade.Amount
			} else if trade.Status == domain.TradeStatusFailed {
				a.FailedTrades++
			}
		}

		impactsTotal += len(s.MarketImpacts)
		for _, imp := range s.MarketImpacts {
			a.CategoryBreakdown[imp.Market.Category]++
			a.SentimentBreakdown[string(imp.Sentiment)]++
			confidenceSum += imp.Confidence
			confidenceN++
		}

		author := s.Event.Author.Handle
		if author == "" {
			author = s.Event.Author.Name
		}
		if author != "" {
			authorCounts[author]++
		}

		bucketCounts[s.StartTime.UTC().Truncate(time.Hour)]++
	}

	if a.TotalTrades > 0 {
		a.SuccessRate = float64(a.SuccessfulTrades) / float64(a.TotalTrades)
	}
	if a.TotalSessions > 0 {
		a.AvgTradesPerSess = float64(a.TotalTrades) / float64(a.TotalSessions)
		a.AvgImpactsPerSess = float64(impactsTotal) / float64(a.TotalSessions)
	}
	if confidenceN > 0 {
		a.AvgConfidence = confidenceSum / float64(confidenceN)
	}

	for author, count := range authorCounts {
		a.TopAuthors = append(a.TopAuthors, domain.AuthorCount{Author: author, Count: count})
	}
	sort.Slice(a.TopAuthors, func(i, j int) bool {
		if a.TopAuthors[i].Count != a.TopAuthors[j].Count {
			return a.TopAuthors[i].Count > a.TopAuthors[j].Count
		}
		return a.TopAuthors[i].Author < a.TopAuthors[j].Author
	})
	if len(a.TopAuthors) > topAuthorLimit {
		a.TopAuthors = a.TopAuthors[:topAuthorLimit]
	}

	for at, count := range bucketCounts {
		a.TimeSeries = append(a.TimeSeries, domain.TimeBucket{Time: at, Count: count})
	}
	sort.Slice(a.TimeSeries, func(i, j int) bool {
		return a.TimeSeries[i].Time.Before(a.TimeSeries[j].Time)
	})

	return a
}
