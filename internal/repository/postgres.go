package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

// Config mirrors the teacher-of-record pool tuning knobs.
type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS document_texts (
	job_id      UUID PRIMARY KEY,
	analysis_id UUID NOT NULL,
	kind        TEXT NOT NULL,
	method      TEXT NOT NULL,
	pages       INTEGER NOT NULL,
	text        TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_document_texts_analysis ON document_texts (analysis_id);

CREATE TABLE IF NOT EXISTS analysis_results (
	analysis_id UUID PRIMARY KEY,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
`

// PostgresRepository stores results in postgres for multi-instance setups.
type PostgresRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// OpenPostgres creates a pgx pool and bootstraps the schema.
func OpenPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "offerwise"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, common.WrapError(err, "bootstrap postgres schema")
	}

	logger.Info("successfully connected to database")
	return &PostgresRepository{pool: pool, log: logger}, nil
}

func (r *PostgresRepository) SaveDocumentText(ctx context.Context, doc DocumentText) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO document_texts (job_id, analysis_id, kind, method, pages, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET text = EXCLUDED.text, method = EXCLUDED.method, pages = EXCLUDED.pages`,
		doc.JobID, doc.AnalysisID, string(doc.Kind), string(doc.Method),
		doc.Pages, doc.Text, time.Now().UTC())
	if err != nil {
		r.log.Error("save document text failed", "job_id", doc.JobID, "error", err)
		return common.WrapError(err, "save document text")
	}
	return nil
}

func (r *PostgresRepository) SaveResult(ctx context.Context, res *entity.AnalysisResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return common.WrapError(err, "encode analysis result")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO analysis_results (analysis_id, payload, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (analysis_id) DO UPDATE SET payload = EXCLUDED.payload`,
		res.AnalysisID, payload, time.Now().UTC())
	if err != nil {
		r.log.Error("save analysis result failed", "analysis_id", res.AnalysisID, "error", err)
		return common.WrapError(err, "save analysis result")
	}
	r.log.Info("analysis result persisted", "analysis_id", res.AnalysisID)
	return nil
}

func (r *PostgresRepository) GetResult(ctx context.Context, analysisID uuid.UUID) (*entity.AnalysisResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM analysis_results WHERE analysis_id = $1`,
		analysisID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound, "analysis result not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "get analysis result")
	}
	var res entity.AnalysisResult
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, common.WrapError(err, "decode analysis result")
	}
	return &res, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
