package service

import (
	"context"
	"fmt"
	"testing"

	"sentiment-service/internal/models"
	"sentiment-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findDistribution(t *testing.T, analytics *models.DatasetAnalytics, question string) models.QuestionDistribution {
	t.Helper()
	for _, d := range analytics.Distributions {
		if d.Question == question {
			return d
		}
	}
	t.Fatalf("no distribution for question %q", question)
	return models.QuestionDistribution{}
}

func TestAggregateOptionAndFreeTextQuestions(t *testing.T) {
	analyzer, aggregator, _ := newTestAnalyzer(t)
	ctx := context.Background()

	ds, err := analyzer.CreateDataset(ctx, &models.CreateDatasetRequest{
		Title:      "course survey",
		SourceKind: models.SourceCSV,
		Columns:    []string{"name", "rating", "recommend", "comment"},
		Rows: []map[string]interface{}{
			{"name": "Alice", "rating": float64(5), "recommend": "Yes", "comment": "excellent, really helpful"},
			{"name": "Bob", "rating": float64(4), "recommend": "Yes", "comment": "great service overall"},
			{"name": "Cara", "rating": float64(2), "recommend": "No", "comment": "terrible support, very disappointed"},
			{"name": "Dan", "rating": float64(3), "recommend": "Maybe", "comment": ""},
		},
	})
	require.NoError(t, err)

	result, err := analyzer.Advance(ctx, ds.ID, 10)
	require.NoError(t, err)
	require.True(t, result.Done)

	analytics, err := aggregator.Aggregate(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, ds.ID, analytics.DatasetID)
	assert.Equal(t, 4, analytics.TotalResponses)
	assert.Equal(t, 4, analytics.AnalyzedRows)

	total := 0
	for _, n := range analytics.SentimentTotals {
		total += n
	}
	assert.Equal(t, 4, total, "every analyzed row counted once")
	assert.Equal(t, 4, analytics.ByProvider[models.ProviderFallback])

	// Respondent column gets no distribution.
	for _, d := range analytics.Distributions {
		assert.NotEqual(t, "name", d.Question)
	}

	recommend := findDistribution(t, analytics, "recommend")
	assert.Equal(t, questionKindOptions, recommend.Kind)
	assert.Equal(t, 4, recommend.Answered)
	assert.Equal(t, map[string]int{"Yes": 2, "No": 1, "Maybe": 1}, recommend.Counts)

	rating := findDistribution(t, analytics, "rating")
	assert.Equal(t, questionKindOptions, rating.Kind)
	assert.Equal(t, map[string]int{"5": 1, "4": 1, "2": 1, "3": 1}, rating.Counts)

	comment := findDistribution(t, analytics, "comment")
	assert.Equal(t, questionKindFreeText, comment.Kind)
	assert.Equal(t, 3, comment.Answered, "blank answer not counted")
	assert.Equal(t, 2, comment.Counts[string(models.SentimentPositive)])
	assert.Equal(t, 1, comment.Counts[string(models.SentimentNegative)])
}

func TestAggregatePartialDataset(t *testing.T) {
	analyzer, aggregator, _ := newTestAnalyzer(t)
	ctx := context.Background()
	ds := ingestRows(t, analyzer, 6)

	_, err := analyzer.Advance(ctx, ds.ID, 4)
	require.NoError(t, err)

	analytics, err := aggregator.Aggregate(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, analytics.TotalResponses)
	assert.Equal(t, 4, analytics.AnalyzedRows)

	total := 0
	for _, n := range analytics.SentimentTotals {
		total += n
	}
	assert.Equal(t, 4, total, "unanalyzed rows excluded from sentiment totals")
	assert.Len(t, analytics.RawResponses, 6, "raw rows always complete")
}

func TestAggregateIsReadOnly(t *testing.T) {
	analyzer, aggregator, _ := newTestAnalyzer(t)
	ctx := context.Background()
	ds := ingestRows(t, analyzer, 3)

	before, err := analyzer.GetDataset(ctx, ds.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := aggregator.Aggregate(ctx, ds.ID)
		require.NoError(t, err)
	}

	after, err := analyzer.GetDataset(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Status, after.Status)
	assert.Equal(t, before.AnalyzedRows, after.AnalyzedRows)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestAggregateDatasetNotFound(t *testing.T) {
	_, aggregator, _ := newTestAnalyzer(t)

	_, err := aggregator.Aggregate(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrDatasetNotFound)
}

func TestIsOptionQuestionHeuristic(t *testing.T) {
	longAnswers := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		longAnswers = append(longAnswers, fmt.Sprintf("a fairly long sentence describing experience number %d", i))
	}

	tests := []struct {
		name   string
		col    string
		values []string
		want   bool
	}{
		{"small choice set", "recommend", []string{"Yes", "No", "Yes", "Maybe"}, true},
		{"numeric scale", "rating", []string{"1", "2", "3", "4", "5"}, true},
		{"free text hint wins", "comment", []string{"Yes", "No"}, false},
		{"long answers", "q_long", longAnswers, false},
		{"too many words", "q1", []string{"this answer has far too many words in it"}, false},
		{"no answers", "q2", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isOptionQuestion(tt.col, tt.values))
		})
	}
}
