// Package history keeps a sqlite journal of reconciled events.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleister1102/imgsync/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection holding sync_history.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewDB opens (creating if needed) the journal at dataSourceName and ensures the schema.
func NewDB(dataSourceName string, logger zerolog.Logger) (*DB, error) {
	logger = logger.With().Str("module", "history").Logger()
	logger.Debug().Str("db_path", dataSourceName).Msg("Opening history database")

	dbDir := filepath.Dir(dataSourceName)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history database directory %s: %w", dbDir, err)
	}

	dbInstance, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", dataSourceName, err)
	}
	dbInstance.SetMaxOpenConns(1)

	db := &DB{
		db:     dbInstance,
		logger: logger,
	}

	if err := db.InitSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info().Str("path", dataSourceName).Msg("History database ready")
	return db, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// InitSchema creates the sync_history table if it doesn't already exist.
func (d *DB) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS sync_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_hash TEXT NOT NULL,
		kind TEXT NOT NULL,
		src_path TEXT NOT NULL,
		dest_path TEXT,
		shortcode TEXT,
		status TEXT NOT NULL,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);
	`
	if _, err := d.db.ExecContext(ctx, query); err != nil {
		d.logger.Error().Err(err).Msg("Failed to initialize schema")
		return err
	}
	if _, err := d.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_sync_history_shortcode ON sync_history(shortcode)`); err != nil {
		return err
	}
	return nil
}

// Record appends one outcome and returns its row id.
func (d *DB) Record(ctx context.Context, o models.SyncOutcome) (int64, error) {
	query := `INSERT INTO sync_history (event_hash, kind, src_path, dest_path, shortcode, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := d.db.ExecContext(ctx, query,
		o.EventHash,
		string(o.Kind),
		o.SrcPath,
		nullString(o.DestPath),
		nullString(o.Shortcode),
		string(o.Status),
		nullString(o.Error),
		o.StartedAt.UTC(),
		o.FinishedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sync outcome: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	d.logger.Debug().Int64("db_id", id).Str("event_hash", o.EventHash).Str("status", string(o.Status)).Msg("Recorded sync outcome")
	return id, nil
}

// Recent returns up to n outcomes, newest first.
func (d *DB) Recent(ctx context.Context, n int) ([]models.SyncOutcome, error) {
	if n <= 0 {
		return nil, nil
	}
	query := `SELECT id, event_hash, kind, src_path, dest_path, shortcode, status, error, started_at, finished_at
		FROM sync_history ORDER BY id DESC LIMIT ?`
	rows, err := d.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var outcomes []models.SyncOutcome
	for rows.Next() {
		var (
			o                           models.SyncOutcome
			kind, status                string
			destPath, shortcode, errMsg sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.EventHash, &kind, &o.SrcPath, &destPath, &shortcode, &status, &errMsg, &o.StartedAt, &o.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync history row: %w", err)
		}
		o.Kind = models.EventKind(kind)
		o.Status = models.SyncStatus(status)
		o.DestPath = destPath.String
		o.Shortcode = shortcode.String
		o.Error = errMsg.String
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync history: %w", err)
	}
	return outcomes, nil
}

// CountByStatus tallies journal rows per status.
func (d *DB) CountByStatus(ctx context.Context) (map[models.SyncStatus]int, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_history GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync history: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.SyncStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[models.SyncStatus(status)] = n
	}
	return counts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
