package state

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/wangzetysx-web/crypto-policy-rss/internal/logger"
)

// PostgresStore keeps dedupe state in a table instead of a JSON file, for
// deployments where the job runs on ephemeral workers without a persistent
// filesystem. Writes go straight to the database, so Save is a no-op.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("postgres dedupe store connected")
	return store, nil
}

func (ps *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sent_items (
		entry_id TEXT PRIMARY KEY,
		sent_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sent_items_sent_at ON sent_items (sent_at);
	`
	_, err := ps.db.Exec(schema)
	return err
}

func (ps *PostgresStore) IsSent(id string) bool {
	var exists bool
	err := ps.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM sent_items WHERE entry_id = $1)`, id).Scan(&exists)
	if err != nil {
		logger.Warn("dedupe lookup failed, treating item as new", "id", id, "error", err)
		return false
	}
	return exists
}

func (ps *PostgresStore) MarkSent(id string, at time.Time) {
	_, err := ps.db.Exec(`
		INSERT INTO sent_items (entry_id, sent_at) VALUES ($1, $2)
		ON CONFLICT (entry_id) DO UPDATE SET sent_at = EXCLUDED.sent_at`,
		id, at.UTC())
	if err != nil {
		logger.Error("failed to record sent item", "id", id, "error", err)
	}
}

func (ps *PostgresStore) Prune(retentionDays int, now time.Time) {
	cutoff := now.UTC().AddDate(0, 0, -retentionDays)
	res, err := ps.db.Exec(`DELETE FROM sent_items WHERE sent_at < $1`, cutoff)
	if err != nil {
		logger.Warn("dedupe prune failed", "error", err)
		return
	}
	if removed, err := res.RowsAffected(); err == nil && removed > 0 {
		logger.Info("pruned expired dedupe entries", "removed", removed)
	}
}

func (ps *PostgresStore) Save() error { return nil }

func (ps *PostgresStore) Close() error { return ps.db.Close() }
