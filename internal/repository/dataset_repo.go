package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"sentiment-service/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrDatasetNotFound is returned when a dataset id does not exist.
var ErrDatasetNotFound = errors.New("dataset not found")

// DatasetRepository is the storage boundary for datasets and their rows.
type DatasetRepository interface {
	CreateDataset(ctx context.Context, ds *models.Dataset) error
	// InsertRows bulk-inserts the unanalyzed rows for a freshly created
	// dataset in one transaction.
	InsertRows(ctx context.Context, datasetID string, rows []*models.ResponseRow) error
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)
	ListDatasets(ctx context.Context) ([]*models.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error
	GetRows(ctx context.Context, datasetID string) ([]*models.ResponseRow, error)

	// ClaimPendingRows atomically reserves up to limit unanalyzed rows,
	// lowest row_index first. A claimed row is invisible to other callers
	// until its lease expires or its result is saved.
	ClaimPendingRows(ctx context.Context, datasetID string, limit int, lease time.Duration) ([]*models.ResponseRow, error)
	// ReleaseClaim makes a claimed row selectable again after a row-scoped
	// failure.
	ReleaseClaim(ctx context.Context, rowID int64) error
	// SaveRowSentiment persists a classification. It refuses to overwrite an
	// existing result and reports whether the row was actually updated.
	SaveRowSentiment(ctx context.Context, rowID int64, result models.Classification, breakdown models.LabelMap, analyzedAt time.Time) (bool, error)

	// AddAnalyzed bumps analyzed_rows and flips status to completed once
	// every row is analyzed, in a single statement. n may be zero.
	AddAnalyzed(ctx context.Context, datasetID string, n int) (*models.Dataset, error)
	// ResetAnalysis clears all sentiment results and returns the dataset to
	// processing with analyzed_rows = 0.
	ResetAnalysis(ctx context.Context, datasetID string) error
	// MarkFailed records an unrecoverable ingestion error.
	MarkFailed(ctx context.Context, datasetID string, reason string) error
}

type datasetRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository(db *sqlx.DB, logger *zap.Logger) DatasetRepository {
	return &datasetRepository{db: db, logger: logger}
}

func (r *datasetRepository) CreateDataset(ctx context.Context, ds *models.Dataset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO datasets (id, title, source_kind, columns, respondent_column, total_rows, analyzed_rows, status, summary, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Title, ds.SourceKind, ds.Columns, ds.RespondentColumn, ds.TotalRows, ds.AnalyzedRows, ds.Status, ds.Summary, ds.CreatedAt, ds.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dataset: %w", err)
	}
	return nil
}

func (r *datasetRepository) InsertRows(ctx context.Context, datasetID string, rows []*models.ResponseRow) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO responses (dataset_id, row_index, fields, respondent)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, datasetID, row.RowIndex, row.Fields, row.Respondent); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", row.RowIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}

	r.logger.Info("Dataset rows inserted",
		zap.String("dataset_id", datasetID),
		zap.Int("rows", len(rows)))
	return nil
}

const datasetColumns = `id, title, source_kind, columns, respondent_column, total_rows, analyzed_rows, status, summary, created_at, updated_at`

func (r *datasetRepository) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	ds := &models.Dataset{}
	err := r.db.GetContext(ctx, ds,
		`SELECT `+datasetColumns+` FROM datasets WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDatasetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

func (r *datasetRepository) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	var datasets []*models.Dataset
	err := r.db.SelectContext(ctx, &datasets,
		`SELECT `+datasetColumns+` FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// DeleteDataset removes the dataset; rows go with it via the cascade.
func (r *datasetRepository) DeleteDataset(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDatasetNotFound
	}
	return nil
}

const responseColumns = `id, dataset_id, row_index, fields, respondent, sentiment_label, sentiment_score, confidence, question_sentiments, provider, analyzed_at, claimed_at`

func (r *datasetRepository) GetRows(ctx context.Context, datasetID string) ([]*models.ResponseRow, error) {
	var rows []*models.ResponseRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+responseColumns+` FROM responses WHERE dataset_id = ? ORDER BY row_index ASC`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// ClaimPendingRows is the atomic claim primitive: the UPDATE both selects
// the lowest-index unanalyzed rows and marks them claimed, so two concurrent
// advance calls can never pick the same row.
func (r *datasetRepository) ClaimPendingRows(ctx context.Context, datasetID string, limit int, lease time.Duration) ([]*models.ResponseRow, error) {
	now := time.Now().UTC()
	staleBefore := now.Add(-lease)

	query := `
		UPDATE responses
		SET claimed_at = ?
		WHERE id IN (
			SELECT id FROM responses
			WHERE dataset_id = ?
			  AND sentiment_label IS NULL
			  AND (claimed_at IS NULL OR claimed_at <= ?)
			ORDER BY row_index ASC
			LIMIT ?
		)
		RETURNING ` + responseColumns

	dbRows, err := r.db.QueryxContext(ctx, query, now, datasetID, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim rows: %w", err)
	}
	defer dbRows.Close()

	var claimed []*models.ResponseRow
	for dbRows.Next() {
		row := &models.ResponseRow{}
		if err := dbRows.StructScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan claimed row: %w", err)
		}
		claimed = append(claimed, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claimed rows: %w", err)
	}

	// RETURNING does not promise an order.
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].RowIndex < claimed[j].RowIndex })

	return claimed, nil
}

func (r *datasetRepository) ReleaseClaim(ctx context.Context, rowID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE responses SET claimed_at = NULL WHERE id = ? AND sentiment_label IS NULL`, rowID)
	if err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	return nil
}

// SaveRowSentiment only writes where sentiment_label is still unset, so a
// result is never overwritten outside an explicit re-analyze.
func (r *datasetRepository) SaveRowSentiment(ctx context.Context, rowID int64, result models.Classification, breakdown models.LabelMap, analyzedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE responses
		SET sentiment_label = ?, sentiment_score = ?, confidence = ?,
		    question_sentiments = ?, provider = ?, analyzed_at = ?, claimed_at = NULL
		WHERE id = ? AND sentiment_label IS NULL`,
		result.Label, result.Score, result.Confidence, breakdown, result.Provider, analyzedAt, rowID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save row sentiment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AddAnalyzed bumps the progress counter and performs the terminal
// processing -> completed transition in the same statement. Terminal states
// never move backward.
func (r *datasetRepository) AddAnalyzed(ctx context.Context, datasetID string, n int) (*models.Dataset, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE datasets
		SET analyzed_rows = MIN(total_rows, analyzed_rows + ?),
		    status = CASE
		        WHEN status = 'processing' AND MIN(total_rows, analyzed_rows + ?) >= total_rows THEN 'completed'
		        ELSE status
		    END,
		    updated_at = ?
		WHERE id = ?`,
		n, n, time.Now().UTC(), datasetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	return r.GetDataset(ctx, datasetID)
}

// ResetAnalysis is the re-analyze entry point's storage half: clear every
// row's result, zero the counter, return status to processing.
func (r *datasetRepository) ResetAnalysis(ctx context.Context, datasetID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE datasets
		SET analyzed_rows = 0, status = 'processing', summary = '', updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), datasetID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset dataset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDatasetNotFound
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE responses
		SET sentiment_label = NULL, sentiment_score = NULL, confidence = NULL,
		    question_sentiments = NULL, provider = '', analyzed_at = NULL, claimed_at = NULL
		WHERE dataset_id = ?`,
		datasetID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	r.logger.Info("Dataset analysis reset", zap.String("dataset_id", datasetID))
	return nil
}

func (r *datasetRepository) MarkFailed(ctx context.Context, datasetID string, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE datasets
		SET status = 'failed', summary = ?, updated_at = ?
		WHERE id = ? AND status = 'processing'`,
		reason, time.Now().UTC(), datasetID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark dataset failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrDatasetNotFound
	}
	return nil
}
