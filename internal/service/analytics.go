package service

import (
	"context"

	"sentiment-service/internal/models"
	"sentiment-service/internal/repository"

	"go.uber.org/zap"
)

const (
	questionKindOptions  = "options"
	questionKindFreeText = "free_text"

	// Bounds for treating a question as option-style: few distinct values,
	// all of them short.
	maxOptionDistinct = 12
	maxOptionLen      = 32
	maxOptionWords    = 5
)

// Aggregator summarizes classification results per question. It is strictly
// read-only and does not require analysis to be complete: partial datasets
// yield partial distributions.
type Aggregator struct {
	repo   repository.DatasetRepository
	logger *zap.Logger
}

// NewAggregator creates the analytics aggregator.
func NewAggregator(repo repository.DatasetRepository, logger *zap.Logger) *Aggregator {
	return &Aggregator{repo: repo, logger: logger}
}

// Aggregate tallies each question's answers: raw value frequencies for
// option-style questions, sentiment label frequencies for free-text ones.
func (g *Aggregator) Aggregate(ctx context.Context, datasetID string) (*models.DatasetAnalytics, error) {
	ds, err := g.repo.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	rows, err := g.repo.GetRows(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	analytics := &models.DatasetAnalytics{
		DatasetID:       ds.ID,
		TotalResponses:  ds.TotalRows,
		AnalyzedRows:    ds.AnalyzedRows,
		SentimentTotals: map[models.SentimentLabel]int{},
		ByProvider:      map[string]int{},
		RawResponses:    rows,
	}

	for _, row := range rows {
		if !row.Analyzed() {
			continue
		}
		analytics.SentimentTotals[*row.SentimentLabel]++
		if row.Provider != "" {
			analytics.ByProvider[row.Provider]++
		}
	}

	for _, col := range ds.Columns {
		if isRespondent(col, ds.RespondentColumn) {
			continue
		}
		analytics.Distributions = append(analytics.Distributions, g.distribution(col, rows))
	}

	return analytics, nil
}

// distribution tallies one question across all rows.
func (g *Aggregator) distribution(col string, rows []*models.ResponseRow) models.QuestionDistribution {
	values := make([]string, 0, len(rows))
	for _, row := range rows {
		if s := fieldString(row.Fields[col]); s != "" {
			values = append(values, s)
		}
	}

	dist := models.QuestionDistribution{
		Question: col,
		Answered: len(values),
		Counts:   map[string]int{},
	}

	if isOptionQuestion(col, values) {
		dist.Kind = questionKindOptions
		for _, v := range values {
			dist.Counts[v]++
		}
		return dist
	}

	dist.Kind = questionKindFreeText
	for _, row := range rows {
		if !row.Analyzed() || fieldString(row.Fields[col]) == "" {
			continue
		}
		label, ok := row.QuestionSentiments[col]
		if !ok {
			label = *row.SentimentLabel
		}
		dist.Counts[string(label)]++
	}
	return dist
}

// isOptionQuestion decides whether a question's answers look like a fixed
// choice set. Column names hinting at commentary always count as free text.
func isOptionQuestion(col string, values []string) bool {
	if hasFreeTextHint(col) {
		return false
	}
	if len(values) == 0 {
		return true
	}

	distinct := map[string]struct{}{}
	for _, v := range values {
		distinct[v] = struct{}{}
		if len([]rune(v)) > maxOptionLen || wordCount(v) > maxOptionWords {
			return false
		}
	}
	return len(distinct) <= maxOptionDistinct
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
