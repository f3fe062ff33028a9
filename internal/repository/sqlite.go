package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/francis4531/Offerwise-sub000/internal/common"
	"github.com/francis4531/Offerwise-sub000/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS document_texts (
	job_id      TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL,
	kind        TEXT NOT NULL,
	method      TEXT NOT NULL,
	pages       INTEGER NOT NULL,
	text        TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_document_texts_analysis ON document_texts (analysis_id);

CREATE TABLE IF NOT EXISTS analysis_results (
	analysis_id TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
`

// SQLiteRepository is the default local store.
type SQLiteRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// OpenSQLite opens (or creates) the sqlite database at dsn and bootstraps
// the schema.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "bootstrap sqlite schema")
	}
	logger.Info("sqlite results store ready", "dsn", dsn)
	return &SQLiteRepository{db: db, log: logger}, nil
}

func (r *SQLiteRepository) SaveDocumentText(ctx context.Context, doc DocumentText) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_texts (job_id, analysis_id, kind, method, pages, text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET text = excluded.text, method = excluded.method, pages = excluded.pages`,
		doc.JobID.String(), doc.AnalysisID.String(), string(doc.Kind), string(doc.Method),
		doc.Pages, doc.Text, time.Now().UTC())
	if err != nil {
		r.log.Error("save document text failed", "job_id", doc.JobID, "error", err)
		return common.WrapError(err, "save document text")
	}
	return nil
}

func (r *SQLiteRepository) SaveResult(ctx context.Context, res *entity.AnalysisResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return common.WrapError(err, "encode analysis result")
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO analysis_results (analysis_id, payload, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(analysis_id) DO UPDATE SET payload = excluded.payload`,
		res.AnalysisID.String(), string(payload), time.Now().UTC())
	if err != nil {
		r.log.Error("save analysis result failed", "analysis_id", res.AnalysisID, "error", err)
		return common.WrapError(err, "save analysis result")
	}
	r.log.Info("analysis result persisted", "analysis_id", res.AnalysisID)
	return nil
}

func (r *SQLiteRepository) GetResult(ctx context.Context, analysisID uuid.UUID) (*entity.AnalysisResult, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM analysis_results WHERE analysis_id = ?`,
		analysisID.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError(common.CodeNotFound, "analysis result not found", common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "get analysis result")
	}
	var res entity.AnalysisResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, common.WrapError(err, "decode analysis result")
	}
	return &res, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
