package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// mockTemplate is one canned headline for demo mode.
type mockTemplate struct {
	text     string
	name     string
	handle   string
	verified bool
}

var mockTemplates = []mockTemplate{
	{
		text:     "Federal Reserve announces 0.5% interest rate cut, citing improving inflation data",
		name:     "Reuters",
		handle:   "Reuters",
		verified: true,
	},
	{
		text:     "Tesla reports Q4 deliveries beat expectations by 15%, stock surges in after-hours",
		name:     "Bloomberg",
		handle:   "business",
		verified: true,
	},
	{
		text:     "Bitcoin trading volume hits $50B in 24 hours amid renewed institutional interest",
		name:     "CoinDesk",
		handle:   "coindesk",
		verified: true,
	},
	{
		text:     "Senate passes $1.2T infrastructure bill with bipartisan support, construction stocks rally",
		name:     "The Wall Street Journal",
		handle:   "WSJ",
		verified: true,
	},
	{
		text:     "Apple announces partnership with OpenAI to integrate AI features across iOS ecosystem",
		name:     "TechCrunch",
		handle:   "TechCrunch",
		verified: true,
	},
}

// MockSource emits a canned headline on a fixed interval. It exists so the
// whole pipeline can be exercised without Twitter or venue credentials.
type MockSource struct {
	interval time.Duration
	logger   *slog.Logger
}

// NewMockSource creates a demo feed ticking at the given interval.
func NewMockSource(interval time.Duration, logger *slog.Logger) *MockSource {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &MockSource{
		interval: interval,
		logger:   logger.With(slog.String("component", "mock_feed")),
	}
}

// Run implements Source.
func (s *MockSource) Run(ctx context.Context, emit func(domain.Event)) error {
	s.logger.Info("demo feed started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit(s.generate())
		}
	}
}

func (s *MockSource) generate() domain.Event {
	tpl := mockTemplates[rand.Intn(len(mockTemplates))]
	return domain.Event{
		ID:   "mock-" + uuid.NewString(),
		Text: tpl.text,
		Author: domain.Author{
			Name:     tpl.name,
			Handle:   tpl.handle,
			Verified: tpl.verified,
		},
		Timestamp: time.Now().UTC(),
		Engagement: domain.Engagement{
			Likes:   100 + rand.Intn(4900),
			Shares:  50 + rand.Intn(1950),
			Replies: 10 + rand.Intn(490),
		},
	}
}
