// Package audit records a best-effort log of dispatched JSON-RPC calls to
// Postgres. Grounded on the teacher's internal/database package (DB.New's
// retry-with-backoff connect, RunMigrations' embed.FS migration runner,
// Repository.CreateRequestLog's insert shape), trimmed to the one table
// this server's audit trail needs. An empty DSN disables it: the DSN-gated
// no-op fallback matches §Non-goals treating this as optional, unlike
// session persistence which is excluded outright.
package audit

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Entry is one logged JSON-RPC call.
type Entry struct {
	Method     string
	ToolName   string
	Operation  string
	DurationMS int
	IsError    bool
}

// Log records Entry values to Postgres, or does nothing when built with a
// nil pool (DSN was empty).
type Log struct {
	pool *pgxpool.Pool
}

// New connects to dsn and runs migrations, retrying the connect the way the
// teacher's DB.New does. An empty dsn returns a no-op Log rather than an
// error, since an audit trail is optional here.
func New(ctx context.Context, dsn string) (*Log, error) {
	if dsn == "" {
		log.Info().Msg("audit log disabled (no dsn configured)")
		return &Log{}, nil
	}

	const maxRetries = 10
	const retryDelay = 3 * time.Second

	var pool *pgxpool.Pool
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			lastErr = fmt.Errorf("failed to create connection pool: %w", err)
		} else if pingErr := p.Ping(ctx); pingErr != nil {
			p.Close()
			lastErr = fmt.Errorf("failed to ping database: %w", pingErr)
		} else {
			pool = p
			break
		}

		if attempt < maxRetries {
			log.Warn().Err(lastErr).Int("attempt", attempt).Int("max", maxRetries).
				Msgf("audit database not ready, retrying in %s...", retryDelay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	if pool == nil {
		return nil, fmt.Errorf("failed to connect to audit database after %d attempts: %w", maxRetries, lastErr)
	}

	l := &Log{pool: pool}
	if err := l.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return l, nil
}

func (l *Log) runMigrations(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrations []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			migrations = append(migrations, e.Name())
		}
	}
	sort.Strings(migrations)

	for _, filename := range migrations {
		var exists bool
		err := l.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", filename,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		log.Info().Str("migration", filename).Msg("applying audit migration")
		if _, err := l.pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", filename, err)
		}
		if _, err := l.pool.Exec(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", filename,
		); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", filename, err)
		}
	}
	return nil
}

// Record inserts one entry. It logs and swallows errors rather than
// propagating them, since a failed audit write must never fail the JSON-RPC
// call it's recording.
func (l *Log) Record(ctx context.Context, e Entry) {
	if l.pool == nil {
		return
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO request_logs (id, method, tool_name, operation, duration_ms, is_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), e.Method, e.ToolName, e.Operation, e.DurationMS, e.IsError, time.Now())
	if err != nil {
		log.Error().Err(err).Str("method", e.Method).Msg("failed to record audit entry")
	}
}

// Close releases the underlying connection pool, if any.
func (l *Log) Close() {
	if l.pool != nil {
		l.pool.Close()
	}
}
