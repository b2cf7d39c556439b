package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/seerbot/internal/analyzer"
	"github.com/alanyoungcy/seerbot/internal/bus"
	"github.com/alanyoungcy/seerbot/internal/domain"
	"github.com/alanyoungcy/seerbot/internal/feed"
	"github.com/alanyoungcy/seerbot/internal/history"
	"github.com/alanyoungcy/seerbot/internal/server"
	"github.com/alanyoungcy/seerbot/internal/server/handler"
	"github.com/alanyoungcy/seerbot/internal/server/ws"
)

const (
	// analyticsInterval paces the sessions:analytics broadcast. A snapshot is
	// only emitted when the session count changed since the last one.
	analyticsInterval = 30 * time.Second

	// balanceInterval paces the wallet balance broadcast.
	balanceInterval = time.Minute

	// shutdownTimeout bounds the HTTP server drain on exit.
	shutdownTimeout = 10 * time.Second
)

// LiveMode streams posts from the TwitterAPI.io WebSocket through the full
// analysis pipeline.
func (a *App) LiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting live mode")

	src := feed.NewTwitterSource(feed.TwitterConfig{
		URL:           a.cfg.Twitter.WSHost,
		APIKey:        a.cfg.Twitter.APIKey,
		Accounts:      a.cfg.Twitter.Accounts,
		ReconnectBase: a.cfg.Twitter.ReconnectBase.Duration,
		MaxReconnects: a.cfg.Twitter.MaxReconnects,
	}, a.logger)

	return a.runEngine(ctx, deps, src)
}

// DemoMode runs the same pipeline on synthetic breaking-news posts, for
// development without a Twitter API key.
func (a *App) DemoMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting demo mode",
		slog.Duration("interval", a.cfg.Twitter.MockInterval.Duration),
	)

	src := feed.NewMockSource(a.cfg.Twitter.MockInterval.Duration, a.logger)
	return a.runEngine(ctx, deps, src)
}

// ServerMode serves the API and WebSocket surfaces without ingesting events.
// The catalog keeps refreshing so market reads stay current.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	return a.runEngine(ctx, deps, nil)
}

// runEngine starts the goroutines shared by all modes: catalog refresh, the
// feed-to-pipeline chain (when a source is given), periodic broadcasts,
// archival, and the HTTP server.
func (a *App) runEngine(ctx context.Context, deps *Dependencies, src feed.Source) error {
	g, ctx := errgroup.WithContext(ctx)

	if deps.Venue != nil {
		g.Go(func() error {
			return deps.Catalog.RunLoop(ctx)
		})
		a.startBalanceBroadcast(ctx, g, deps)
	}

	if src != nil {
		a.startPipeline(ctx, g, deps, src)
		a.startAnalyticsBroadcast(ctx, g, deps)
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return deps.Archiver.Run(ctx)
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}

	return g.Wait()
}

// tapSource forwards every emitted event to fn before handing it on.
type tapSource struct {
	src feed.Source
	fn  func(domain.Event)
}

func (t tapSource) Run(ctx context.Context, emit func(domain.Event)) error {
	return t.src.Run(ctx, func(ev domain.Event) {
		t.fn(ev)
		emit(ev)
	})
}

// startPipeline connects the source to the analyzer through the bounded
// queue. Every ingested event is also broadcast on the tweet channel. A feed
// that gives up (reconnect budget spent) stops ingestion but leaves the rest
// of the engine running.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, src feed.Source) {
	q := feed.NewQueue(a.cfg.Twitter.QueueSize, a.logger)

	pipe := analyzer.New(
		deps.Oracle,
		deps.Venue,
		deps.Catalog,
		deps.Store,
		deps.Bus,
		deps.Audit,
		deps.Notifier,
		analyzer.Config{
			TradeSizeUSDC:         a.cfg.Trading.SizeUSDC,
			MaxRelevantMarkets:    a.cfg.Trading.MaxRelevantMarkets,
			RemoteTimeout:         a.cfg.Trading.RemoteTimeout.Duration,
			MaxConcurrentSessions: a.cfg.Trading.MaxConcurrentSessions,
		},
		a.logger,
	)

	tapped := tapSource{src: src, fn: func(ev domain.Event) {
		if err := bus.Emit(ctx, deps.Bus, bus.ChannelTweet, ev); err != nil {
			a.logger.WarnContext(ctx, "tweet broadcast failed", slog.String("error", err.Error()))
		}
	}}

	g.Go(func() error {
		err := feed.Pump(ctx, tapped, q)
		if err != nil && ctx.Err() == nil {
			a.logger.ErrorContext(ctx, "feed stopped, engine continues without ingestion",
				slog.String("error", err.Error()),
			)
			return nil
		}
		return err
	})

	g.Go(func() error {
		return pipe.Run(ctx, q.Events())
	})
}

// startAnalyticsBroadcast periodically recomputes session analytics and
// publishes a snapshot whenever the history has grown.
func (a *App) startAnalyticsBroadcast(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		ticker := time.NewTicker(analyticsInterval)
		defer ticker.Stop()

		last := -1
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sessions := deps.Store.All()
				if len(sessions) == last {
					continue
				}
				last = len(sessions)
				if err := bus.Emit(ctx, deps.Bus, bus.ChannelAnalytics, history.Compute(sessions)); err != nil {
					a.logger.WarnContext(ctx, "analytics broadcast failed", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// startBalanceBroadcast periodically reads the wallet balance from the venue
// and publishes it. Read failures are logged and skipped.
func (a *App) startBalanceBroadcast(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	g.Go(func() error {
		ticker := time.NewTicker(balanceInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				bal, err := deps.Venue.GetBalance(ctx)
				if err != nil {
					a.logger.WarnContext(ctx, "balance read failed", slog.String("error", err.Error()))
					continue
				}
				if err := bus.Emit(ctx, deps.Bus, bus.ChannelBalance, bal); err != nil {
					a.logger.WarnContext(ctx, "balance broadcast failed", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// startHTTPServer starts the WebSocket hub and the HTTP API, and drains the
// server when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	state := &engineState{
		catalog: deps.Catalog,
		venue:   deps.Venue,
		store:   deps.Store,
	}
	hub := ws.NewHub(deps.Bus, state, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.cfg.Mode),
		Markets:  handler.NewMarketHandler(deps.Catalog, deps.Venue),
		Sessions: handler.NewSessionHandler(deps.Store),
	}
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})
}
