package domain

import (
	"strings"
	"time"
)

// SessionFilter is a conjunctive predicate set over session history. Nil or
// zero-valued fields are not applied.
type SessionFilter struct {
	Statuses      []SessionStatus
	From          *time.Time
	To            *time.Time
	Categories    []string // market category, via the session's impacts
	Author        string   // substring match on author name or handle
	Text          string   // substring match on event text
	MinTrades     *int
	MaxTrades     *int
	MinConfidence *float64 // max confidence across a session's impacts
}

// Matches reports whether the session satisfies every set predicate.
func (f SessionFilter) Matches(s *AnalysisSession) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if s.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}

	if f.From != nil && s.StartTime.Before(*f.From) {
		return false
	}
	if f.To != nil && s.StartTime.After(*f.To) {
		return false
	}

	if len(f.Categories) > 0 {
		ok := false
	outer:
		for _, want := range f.Categories {
			for _, imp := range s.MarketImpacts {
				if strings.EqualFold(imp.Market.Category, want) {
					ok = true
					break outer
				}
			}
		}
		if !ok {
			return false
		}
	}

	if f.Author != "" {
		needle := strings.ToLower(f.Author)
		if !strings.Contains(strings.ToLower(s.Event.Author.Name), needle) &&
			!strings.Contains(strings.ToLower(s.Event.Author.Handle), needle) {
			return false
		}
	}

	if f.Text != "" && !strings.Contains(strings.ToLower(s.Event.Text), strings.ToLower(f.Text)) {
		return false
	}

	if f.MinTrades != nil && len(s.Trades) < *f.MinTrades {
		return false
	}
	if f.MaxTrades != nil && len(s.Trades) > *f.MaxTrades {
		return false
	}

	if f.MinConfidence != nil && s.MaxConfidence() < *f.MinConfidence {
		return false
	}

	return true
}

// AuthorCount is one entry of the per-author session breakdown.
type AuthorCount struct {
	Author string `json:"author"`
	Count  int    `json:"count"`
}

// TimeBucket is one entry of the time-bucketed session count series.
type TimeBucket struct {
	Time  time.Time `json:"time"`
	Count int       `json:"count"`
}

// SessionAnalytics aggregates the whole session history. It is recomputed
// from scratch on every query.
type SessionAnalytics struct {
	TotalSessions     int     `json:"totalSessions"`
	CompletedSessions int     `json:"completedSessions"`
	ErroredSessions   int     `json:"erroredSessions"`
	ActiveSessions    int     `json:"activeSessions"`
	TotalTrades       int     `json:"totalTrades"`
	SuccessfulTrades  int     `json:"successfulTrades"`
	FailedTrades      int     `json:"failedTrades"`
	SuccessRate       float64 `json:"successRate"`
	TotalVolume       float64 `json:"totalVolume"`
	AvgTradesPerSess  float64 `json:"averageTradesPerSession"`
	AvgImpactsPerSess float64 `json:"averageImpactsPerSession"`
	AvgConfidence     float64 `json:"averageConfidence"`

	CategoryBreakdown  map[string]int `json:"marketCategoryBreakdown"`
	TopAuthors         []AuthorCount  `json:"topAuthors"`
	SentimentBreakdown map[string]int `json:"sentimentDistribution"`
	TimeSeries         []TimeBucket   `json:"timeSeriesData"`
}
