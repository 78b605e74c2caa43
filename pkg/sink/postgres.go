// pkg/sink/postgres.go
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/refdata-io/table-ingress/pkg/config"
	"github.com/refdata-io/table-ingress/pkg/ingress"
	"github.com/refdata-io/table-ingress/pkg/model"
)

// Store persists parse output to PostgreSQL: a run registry plus accepted
// and quarantined row tables. The parse engine itself never touches the
// database; persistence is the caller's concern and this is the
// collaborator the caller uses.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, cfg *config.PostgresConfig) (*Store, error) {
	logger := zap.L().Named("sink")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()))
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	return &Store{db: db, logger: logger, cfg: cfg}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.logger.Info("Closing PostgreSQL connection")
	return s.db.Close()
}

// EnsureTables creates the sink tables when they do not exist
func (s *Store) EnsureTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ingest_runs (
			run_id TEXT PRIMARY KEY,
			dataset TEXT NOT NULL,
			source_file TEXT NOT NULL,
			release_id TEXT NOT NULL,
			schema_id TEXT NOT NULL,
			vintage_date DATE NOT NULL,
			source_checksum TEXT NOT NULL,
			source_uri TEXT NOT NULL,
			encoding TEXT NOT NULL,
			rows_seen INTEGER NOT NULL,
			rows_accepted INTEGER NOT NULL,
			rows_quarantined INTEGER NOT NULL,
			metrics JSONB NOT NULL,
			completed_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS accepted_records (
			run_id TEXT NOT NULL REFERENCES ingest_runs(run_id),
			dataset TEXT NOT NULL,
			natural_key TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			source_line INTEGER NOT NULL,
			field_values JSONB NOT NULL,
			PRIMARY KEY (run_id, natural_key)
		)`,
		`CREATE TABLE IF NOT EXISTS quarantined_records (
			id SERIAL PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES ingest_runs(run_id),
			reason TEXT NOT NULL,
			severity TEXT NOT NULL,
			field_name TEXT,
			original_value TEXT,
			message TEXT NOT NULL,
			candidates TEXT,
			source_line INTEGER NOT NULL,
			raw_values JSONB NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create sink table: %w", err)
		}
	}

	s.logger.Info("Ensured sink tables exist")
	return nil
}

// RecordRun registers one completed parse run
func (s *Store) RecordRun(ctx context.Context, meta model.RunMetadata, metrics *ingress.RunMetrics) error {
	metricsJSON, err := metrics.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize run metrics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ingest_runs
		(run_id, dataset, source_file, release_id, schema_id, vintage_date,
		 source_checksum, source_uri, encoding, rows_seen, rows_accepted,
		 rows_quarantined, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		metrics.RunID,
		metrics.Dataset,
		metrics.SourceFile,
		meta.ReleaseID,
		meta.SchemaID,
		meta.VintageDate,
		meta.SourceChecksum,
		meta.SourceURI,
		metrics.Encoding,
		metrics.RowsSeen,
		metrics.RowsAccepted,
		metrics.QuarantinedTotal(),
		metricsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", metrics.RunID, err)
	}

	s.logger.Info("Recorded run", zap.String("runID", metrics.RunID))
	return nil
}

// WriteAccepted batch inserts accepted records in one transaction
func (s *Store) WriteAccepted(ctx context.Context, runID string, records []model.CanonicalRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO accepted_records
		(run_id, dataset, natural_key, content_hash, source_line, field_values)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, rec := range records {
		values, err := json.Marshal(rec.Values)
		if err != nil {
			return written, fmt.Errorf("failed to serialize record %s: %w", rec.Key, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, rec.Dataset, rec.Key, rec.Hash, rec.Line, values); err != nil {
			return written, fmt.Errorf("failed to insert record %s: %w", rec.Key, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Wrote accepted records",
		zap.String("runID", runID),
		zap.Int64("count", written))
	return written, nil
}

// WriteQuarantined batch inserts quarantined records in one transaction.
// Quarantined rows persist for operator triage; they are never dropped.
func (s *Store) WriteQuarantined(ctx context.Context, runID string, records []model.RejectRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quarantined_records
		(run_id, reason, severity, field_name, original_value, message,
		 candidates, source_line, raw_values)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, rec := range records {
		raw, err := json.Marshal(rec.Raw.Values)
		if err != nil {
			return written, fmt.Errorf("failed to serialize quarantined row: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			runID,
			string(rec.Reason),
			rec.Severity.String(),
			rec.Field,
			rec.Value,
			rec.Message,
			strings.Join(rec.Candidates, ","),
			rec.Raw.Line,
			raw,
		)
		if err != nil {
			return written, fmt.Errorf("failed to insert quarantined row: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return written, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info("Wrote quarantined records",
		zap.String("runID", runID),
		zap.Int64("count", written))
	return written, nil
}
