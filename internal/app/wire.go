package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/seerbot/internal/blob/s3"
	"github.com/alanyoungcy/seerbot/internal/bus"
	"github.com/alanyoungcy/seerbot/internal/catalog"
	"github.com/alanyoungcy/seerbot/internal/config"
	"github.com/alanyoungcy/seerbot/internal/domain"
	"github.com/alanyoungcy/seerbot/internal/history"
	"github.com/alanyoungcy/seerbot/internal/notify"
	"github.com/alanyoungcy/seerbot/internal/oracle"
	"github.com/alanyoungcy/seerbot/internal/platform/opinion"
	"github.com/alanyoungcy/seerbot/internal/store/memory"
	"github.com/alanyoungcy/seerbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	Bus     domain.SignalBus
	Oracle  domain.Oracle
	Venue   domain.Venue // nil without full venue credentials
	Catalog *catalog.Catalog
	Store   domain.SessionStore

	// Optional durability and archival.
	Audit    domain.SessionAuditLog // nil unless postgres is enabled
	Archiver *history.Archiver      // nil unless s3 is enabled

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Signal bus ---
	if cfg.Redis.Enabled {
		redisBus, err := bus.NewRedisBus(ctx, bus.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis bus: %w", err)
		}
		closers = append(closers, func() { _ = redisBus.Close() })
		deps.Bus = redisBus
	} else {
		deps.Bus = bus.NewMemoryBus()
	}

	// --- Decision oracle ---
	deps.Oracle = oracle.New(oracle.Config{
		BaseURL: cfg.Oracle.BaseURL,
		APIKey:  cfg.Oracle.APIKey,
		Model:   cfg.Oracle.Model,
		Timeout: cfg.Oracle.Timeout.Duration,
	}, logger)

	// --- Venue (only with full credentials; otherwise the engine analyzes
	// but records every execution attempt as failed) ---
	var fetcher catalog.MarketFetcher
	if cfg.Opinion.Credentialed() {
		venueClient, err := opinion.New(opinion.Config{
			Host:        cfg.Opinion.Host,
			APIKey:      cfg.Opinion.APIKey,
			PrivateKey:  cfg.Opinion.PrivateKey,
			WalletAddr:  cfg.Opinion.MultisigAddr,
			ChainID:     cfg.Opinion.ChainID,
			Timeout:     cfg.Opinion.Timeout.Duration,
			MarketLimit: cfg.Catalog.PageLimit,
		}, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue: %w", err)
		}
		deps.Venue = venueClient
		fetcher = venueClient
	} else {
		logger.Warn("venue credentials not set, running without order placement")
	}

	// --- Market catalog (stays empty when no fetcher is available) ---
	deps.Catalog = catalog.New(fetcher, deps.Bus, cfg.Catalog.RefreshInterval.Duration, logger)

	// --- Session store ---
	deps.Store = memory.NewSessionStore()

	// --- PostgreSQL audit log ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{DSN: cfg.Postgres.DSN})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		audit, err := postgres.NewSessionLog(ctx, pgClient)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: session log: %w", err)
		}
		deps.Audit = audit
	}

	// --- S3 session archival ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = history.NewArchiver(
			deps.Store,
			s3blob.NewWriter(s3Client),
			"sessions",
			cfg.S3.ArchiveInterval.Duration,
			logger,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
