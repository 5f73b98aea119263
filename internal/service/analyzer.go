package service

import (
	"context"
	"fmt"
	"time"

	"sentiment-service/internal/models"
	"sentiment-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Classifier is the provider chain contract: total, side-effect free with
// respect to the row store.
type Classifier interface {
	Classify(ctx context.Context, text string) models.Classification
}

// Options carries the externalized analysis knobs.
type Options struct {
	// BatchSize is the default number of rows per Advance call.
	BatchSize int
	// ClaimLease is how long a claimed row stays reserved before a later
	// Advance call may reclaim it.
	ClaimLease time.Duration
}

// Analyzer owns the dataset lifecycle: ingestion, batch advancement, and the
// re-analyze reset. It is the only component that writes classification
// results.
type Analyzer struct {
	classifier Classifier
	repo       repository.DatasetRepository
	logger     *zap.Logger
	batchSize  int
	claimLease time.Duration
}

// NewAnalyzer creates the analyzer service.
func NewAnalyzer(classifier Classifier, repo repository.DatasetRepository, logger *zap.Logger, opts Options) *Analyzer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = 2 * time.Minute
	}
	return &Analyzer{
		classifier: classifier,
		repo:       repo,
		logger:     logger,
		batchSize:  opts.BatchSize,
		claimLease: opts.ClaimLease,
	}
}

// CreateDataset ingests parsed rows supplied by the upstream collaborator.
// The dataset starts in processing with zero analyzed rows; if the bulk row
// insert fails the dataset is marked failed rather than left half-ingested.
func (a *Analyzer) CreateDataset(ctx context.Context, req *models.CreateDatasetRequest) (*models.Dataset, error) {
	now := time.Now().UTC()
	ds := &models.Dataset{
		ID:               uuid.New().String(),
		Title:            req.Title,
		SourceKind:       req.SourceKind,
		Columns:          models.StringList(req.Columns),
		RespondentColumn: req.RespondentColumn,
		TotalRows:        len(req.Rows),
		Status:           models.StatusProcessing,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := a.repo.CreateDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to create dataset: %w", err)
	}

	rows := make([]*models.ResponseRow, 0, len(req.Rows))
	for i, raw := range req.Rows {
		row := &models.ResponseRow{
			RowIndex: i,
			Fields:   models.FieldMap(raw),
		}
		row.Respondent = respondentLabel(ds.Columns, ds.RespondentColumn, row)
		rows = append(rows, row)
	}

	if err := a.repo.InsertRows(ctx, ds.ID, rows); err != nil {
		a.logger.Error("Ingestion failed, marking dataset failed",
			zap.String("dataset_id", ds.ID),
			zap.Error(err))
		if ferr := a.repo.MarkFailed(ctx, ds.ID, "ingestion failed: "+err.Error()); ferr != nil {
			a.logger.Error("Failed to mark dataset failed",
				zap.String("dataset_id", ds.ID),
				zap.Error(ferr))
		}
		return nil, fmt.Errorf("failed to ingest rows: %w", err)
	}

	a.logger.Info("Dataset ingested",
		zap.String("dataset_id", ds.ID),
		zap.String("title", ds.Title),
		zap.Int("total_rows", ds.TotalRows))

	return ds, nil
}

func respondentLabel(columns models.StringList, respondentColumn string, row *models.ResponseRow) string {
	if respondentColumn != "" {
		return fieldString(row.Fields[respondentColumn])
	}
	for _, col := range columns {
		if isRespondentColumn(col) {
			return fieldString(row.Fields[col])
		}
	}
	return ""
}

// Advance performs one bounded unit of classification work. The external
// driver calls it repeatedly until Done; a retried or repeated call simply
// continues with whatever rows are still unanalyzed, so no cursor state
// exists anywhere. Failures while classifying or persisting a single row are
// row-scoped: the row is released and stays selectable for a later call.
func (a *Analyzer) Advance(ctx context.Context, datasetID string, batchSize int) (*models.AdvanceResult, error) {
	ds, err := a.repo.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	// completed and failed alike: the driver loops until done, so any
	// terminal status must report done immediately.
	if ds.Status != models.StatusProcessing {
		return &models.AdvanceResult{
			Processed:     0,
			AnalyzedTotal: ds.AnalyzedRows,
			TotalRows:     ds.TotalRows,
			Done:          true,
		}, nil
	}

	if batchSize <= 0 {
		batchSize = a.batchSize
	}

	rows, err := a.repo.ClaimPendingRows(ctx, datasetID, batchSize, a.claimLease)
	if err != nil {
		return nil, fmt.Errorf("failed to claim batch: %w", err)
	}

	processed := 0
	for _, row := range rows {
		text := joinFreeText(ds.Columns, ds.RespondentColumn, row)
		result := a.classifier.Classify(ctx, text)
		breakdown := questionBreakdown(ds.Columns, ds.RespondentColumn, row)

		saved, err := a.repo.SaveRowSentiment(ctx, row.ID, result, breakdown, time.Now().UTC())
		if err != nil {
			a.logger.Error("Failed to persist row sentiment, row stays pending",
				zap.String("dataset_id", datasetID),
				zap.Int("row_index", row.RowIndex),
				zap.Error(err))
			if rerr := a.repo.ReleaseClaim(ctx, row.ID); rerr != nil {
				a.logger.Error("Failed to release claim",
					zap.String("dataset_id", datasetID),
					zap.Int("row_index", row.RowIndex),
					zap.Error(rerr))
			}
			continue
		}
		if saved {
			processed++
		}
	}

	updated, err := a.repo.AddAnalyzed(ctx, datasetID, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}

	a.logger.Info("Batch advanced",
		zap.String("dataset_id", datasetID),
		zap.Int("processed", processed),
		zap.Int("analyzed_total", updated.AnalyzedRows),
		zap.Int("total_rows", updated.TotalRows),
		zap.String("status", string(updated.Status)))

	return &models.AdvanceResult{
		Processed:     processed,
		AnalyzedTotal: updated.AnalyzedRows,
		TotalRows:     updated.TotalRows,
		Done:          updated.Status == models.StatusCompleted,
	}, nil
}

// Reanalyze clears every row's sentiment and returns the dataset to
// processing, after which Advance calls resume from row zero.
func (a *Analyzer) Reanalyze(ctx context.Context, datasetID string) error {
	return a.repo.ResetAnalysis(ctx, datasetID)
}

// GetDataset returns dataset metadata.
func (a *Analyzer) GetDataset(ctx context.Context, datasetID string) (*models.Dataset, error) {
	return a.repo.GetDataset(ctx, datasetID)
}

// ListDatasets returns all datasets, newest first.
func (a *Analyzer) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	return a.repo.ListDatasets(ctx)
}

// DeleteDataset removes a dataset and its rows.
func (a *Analyzer) DeleteDataset(ctx context.Context, datasetID string) error {
	return a.repo.DeleteDataset(ctx, datasetID)
}
