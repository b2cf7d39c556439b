package app

import (
	"context"

	"github.com/alanyoungcy/seerbot/internal/domain"
	"github.com/alanyoungcy/seerbot/internal/history"
)

// engineState implements ws.StateProvider over the wired dependencies. It is
// the read-only view the WebSocket hub serves to connecting dashboards.
type engineState struct {
	catalog domain.MarketCatalog
	venue   domain.Venue // nil means balance reads return an empty snapshot
	store   domain.SessionStore
}

func (s *engineState) Markets() []domain.Market {
	return s.catalog.GetAll()
}

func (s *engineState) Balance(ctx context.Context) (domain.Balance, error) {
	if s.venue == nil {
		return domain.Balance{Symbol: "USDT"}, nil
	}
	return s.venue.GetBalance(ctx)
}

func (s *engineState) Sessions() []domain.AnalysisSession {
	return s.store.All()
}

func (s *engineState) FilterSessions(f domain.SessionFilter) []domain.AnalysisSession {
	return s.store.Filter(f)
}

func (s *engineState) Session(id string) (domain.AnalysisSession, bool) {
	return s.store.Get(id)
}

func (s *engineState) Analytics() domain.SessionAnalytics {
	return history.Compute(s.store.All())
}
