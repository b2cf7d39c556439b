package analyzer

import (
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// newStep builds one progress marker. Steps are append-only within a session;
// a step's status may advance in place but a step is never removed or
// reordered.
func newStep(t domain.StepType, title, desc string, status domain.StepStatus) domain.AnalysisStep {
	return domain.AnalysisStep{
		ID:          uuid.NewString(),
		Type:        t,
		Title:       title,
		Description: desc,
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}
}

// lastStep returns a pointer to the most recently appended step.
func lastStep(s *domain.AnalysisSession) *domain.AnalysisStep {
	return &s.Steps[len(s.Steps)-1]
}

// clampPrice forces a price into the venue-accepted band. Order books reject
// 0 and 1, so any oracle suggestion outside [0.01, 0.99] is clamped before it
// reaches the venue adapter.
func clampPrice(p float64) float64 {
	switch {
	case p < 0.01:
		return 0.01
	case p > 0.99:
		return 0.99
	}
	return p
}

// failedExecution builds a terminal failed TradeExecution for order attempts
// that never reached, or were rejected by, the venue.
func failedExecution(marketID, side string, amount, price float64, reason string) domain.TradeExecution {
	return domain.TradeExecution{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Side:      side,
		Amount:    amount,
		Price:     price,
		Status:    domain.TradeStatusFailed,
		Error:     reason,
		Timestamp: time.Now().UTC(),
	}
}
