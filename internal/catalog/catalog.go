// Package catalog maintains the in-memory set of tradeable markets. The set
// is replaced wholesale on every successful refresh; a failed refresh keeps
// the last known good set so the analyzer never sees a partial catalog.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/seerbot/internal/bus"
	"github.com/alanyoungcy/seerbot/internal/domain"
)

// MarketFetcher retrieves the current tradeable market set from the venue.
// opinion.Client satisfies it.
type MarketFetcher interface {
	FetchMarkets(ctx context.Context) ([]domain.Market, error)
}

// Catalog implements domain.MarketCatalog.
type Catalog struct {
	fetcher  MarketFetcher
	bus      domain.SignalBus // optional, receives a markets broadcast per refresh
	interval time.Duration
	logger   *slog.Logger

	mu      sync.RWMutex
	markets []domain.Market
}

// New creates an empty catalog. The first Refresh populates it.
func New(fetcher MarketFetcher, sigBus domain.SignalBus, interval time.Duration, logger *slog.Logger) *Catalog {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Catalog{
		fetcher:  fetcher,
		bus:      sigBus,
		interval: interval,
		logger:   logger.With(slog.String("component", "catalog")),
	}
}

// Refresh implements domain.MarketCatalog. On success the held set is
// replaced and broadcast; on failure the previous set is retained and the
// error returned.
func (c *Catalog) Refresh(ctx context.Context) ([]domain.Market, error) {
	markets, err := c.fetcher.FetchMarkets(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "refresh failed, keeping previous market set",
			slog.Int("held", len(c.GetAll())),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("catalog: refresh: %w", err)
	}

	c.mu.Lock()
	c.markets = markets
	c.mu.Unlock()

	if c.bus != nil {
		if err := bus.Emit(ctx, c.bus, bus.ChannelMarkets, markets); err != nil {
			c.logger.WarnContext(ctx, "markets broadcast failed", slog.String("error", err.Error()))
		}
	}

	c.logger.InfoContext(ctx, "catalog refreshed", slog.Int("markets", len(markets)))
	return markets, nil
}

// GetAll implements domain.MarketCatalog. It returns a copy of the last
// successful refresh and never blocks on network activity.
func (c *Catalog) GetAll() []domain.Market {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Market, len(c.markets))
	copy(out, c.markets)
	return out
}

// RunLoop refreshes the catalog on the configured interval until ctx is
// cancelled. An immediate refresh runs before the first tick.
func (c *Catalog) RunLoop(ctx context.Context) error {
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.WarnContext(ctx, "initial refresh failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			// Failures already logged inside Refresh.
			_, _ = c.Refresh(ctx)
		}
	}
}
