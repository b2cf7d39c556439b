package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/seerbot/internal/domain"
)

// SessionLog implements domain.SessionAuditLog: one JSONB row per sealed
// session, keyed by session ID. Re-recording a session upserts, so retried
// writes never duplicate rows.
type SessionLog struct {
	pool *pgxpool.Pool
}

// NewSessionLog creates the audit table if needed and returns the log.
func NewSessionLog(ctx context.Context, client *Client) (*SessionLog, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS analysis_sessions (
			id         TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at   TIMESTAMPTZ,
			detail     JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := client.pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("postgres: create analysis_sessions table: %w", err)
	}
	return &SessionLog{pool: client.pool}, nil
}

// Record implements domain.SessionAuditLog.
func (l *SessionLog) Record(ctx context.Context, session domain.AnalysisSession) error {
	detail, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("postgres: marshal session %s: %w", session.ID, err)
	}

	const query = `
		INSERT INTO analysis_sessions (id, status, started_at, ended_at, detail)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			ended_at = EXCLUDED.ended_at,
			detail = EXCLUDED.detail`
	if _, err := l.pool.Exec(ctx, query, session.ID, string(session.Status), session.StartTime, session.EndTime, detail); err != nil {
		return fmt.Errorf("postgres: record session %s: %w", session.ID, err)
	}
	return nil
}
