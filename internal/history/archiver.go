package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// Archiver periodically uploads sealed sessions to object storage. Uploads
// are keyed by session ID, so re-uploading an already-archived session
// overwrites it with identical content and the loop needs no durable
// bookkeeping across restarts.
type Archiver struct {
	store    domain.SessionStore
	writer   domain.BlobWriter
	prefix   string
	interval time.Duration
	logger   *slog.Logger

	archived map[string]bool
}

// NewArchiver creates an archiver over the given store and blob writer.
func NewArchiver(store domain.SessionStore, writer domain.BlobWriter, prefix string, interval time.Duration, logger *slog.Logger) *Archiver {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Archiver{
		store:    store,
		writer:   writer,
		prefix:   prefix,
		interval: interval,
		logger:   logger.With(slog.String("component", "archiver")),
		archived: make(map[string]bool),
	}
}

// Run archives on the configured interval until ctx is cancelled, with a
// final sweep on shutdown so sessions sealed just before exit still land in
// storage.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sweepCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			a.Sweep(sweepCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}

// Sweep uploads every sealed session not yet archived in this process.
// Failed uploads stay unmarked and are retried on the next sweep.
func (a *Archiver) Sweep(ctx context.Context) {
	var uploaded, failed int
	for _, session := range a.store.All() {
		if !session.Sealed() || a.archived[session.ID] {
			continue
		}

		key := a.key(session)
		if err := a.writer.PutJSON(ctx, key, session); err != nil {
			failed++
			a.logger.WarnContext(ctx, "archive upload failed",
				slog.String("session_id", session.ID),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}
		a.archived[session.ID] = true
		uploaded++
	}

	if uploaded > 0 || failed > 0 {
		a.logger.InfoContext(ctx, "archive sweep finished",
			slog.Int("uploaded", uploaded),
			slog.Int("failed", failed),
		)
	}
}

func (a *Archiver) key(session domain.AnalysisSession) string {
	return fmt.Sprintf("%s/%s/%s.json", a.prefix, session.StartTime.UTC().Format("2006/01/02"), session.ID)
}
