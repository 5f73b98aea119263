package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sentiment-service/internal/llm"
	"sentiment-service/internal/models"
	"sentiment-service/internal/repository"
	"sentiment-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestRouter wires the full stack against a temp database with no remote
// providers, so every classification resolves through the rule-based
// fallback.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.MigrateDB(db, logger))

	repo := repository.NewDatasetRepository(db, logger)
	chain := llm.NewChain(nil, llm.ChainConfig{}, logger)
	analyzer := service.NewAnalyzer(chain, repo, logger, service.Options{BatchSize: 10, ClaimLease: time.Minute})
	aggregator := service.NewAggregator(repo, logger)

	r := gin.New()
	NewHandler(analyzer, aggregator, logger).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createDataset(t *testing.T, r *gin.Engine, rows []map[string]interface{}) models.Dataset {
	t.Helper()

	w := doJSON(t, r, http.MethodPost, "/api/v1/datasets", models.CreateDatasetRequest{
		Title:      "q3 feedback",
		SourceKind: models.SourceCSV,
		Columns:    []string{"name", "rating", "comment"},
		Rows:       rows,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ds models.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ds))
	require.NotEmpty(t, ds.ID)
	return ds
}

func sampleRows(n int) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]interface{}{
			"name":    "Respondent",
			"rating":  float64(5),
			"comment": "excellent, really helpful",
		})
	}
	return rows
}

func TestDatasetLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	ds := createDataset(t, r, sampleRows(12))
	assert.Equal(t, models.StatusProcessing, ds.Status)
	assert.Equal(t, 12, ds.TotalRows)

	// Drive analysis to completion the way an external scheduler would.
	var result models.AdvanceResult
	steps := 0
	for !result.Done {
		w := doJSON(t, r, http.MethodPost, "/api/v1/datasets/"+ds.ID+"/advance", models.AdvanceRequest{BatchSize: 5})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		steps++
		require.LessOrEqual(t, steps, 12, "advance loop must terminate")
	}
	assert.Equal(t, 3, steps)
	assert.Equal(t, 12, result.AnalyzedTotal)

	w := doJSON(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 12, got.AnalyzedRows)

	w = doJSON(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID+"/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var analytics models.DatasetAnalytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analytics))
	assert.Equal(t, 12, analytics.SentimentTotals[models.SentimentPositive])
	assert.Equal(t, 12, analytics.ByProvider[models.ProviderFallback])
}

func TestAdvanceWithEmptyBodyUsesDefaultBatch(t *testing.T) {
	r := newTestRouter(t)
	ds := createDataset(t, r, sampleRows(15))

	w := doJSON(t, r, http.MethodPost, "/api/v1/datasets/"+ds.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result models.AdvanceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 10, result.Processed)
	assert.False(t, result.Done)
}

func TestAdvanceUnknownDatasetReturns404(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/datasets/nope/advance", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDatasetRejectsBadPayload(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/datasets", map[string]interface{}{
		"title":       "no source kind",
		"source_kind": "ftp",
		"columns":     []string{"a"},
		"rows":        []map[string]interface{}{{"a": "b"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReanalyzeOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	ds := createDataset(t, r, sampleRows(3))

	w := doJSON(t, r, http.MethodPost, "/api/v1/datasets/"+ds.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/v1/datasets/"+ds.ID+"/reanalyze", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Dataset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Zero(t, got.AnalyzedRows)
}

func TestDeleteDatasetOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	ds := createDataset(t, r, sampleRows(2))

	w := doJSON(t, r, http.MethodDelete, "/api/v1/datasets/"+ds.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSVOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	ds := createDataset(t, r, sampleRows(2))

	w := doJSON(t, r, http.MethodPost, "/api/v1/datasets/"+ds.ID+"/advance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/datasets/"+ds.ID+"/export/csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 3, "header plus one line per row")
	assert.Equal(t, "row_index,respondent,name,rating,comment,sentiment_label,sentiment_score,confidence,provider", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], string(models.SentimentPositive))
	assert.Contains(t, lines[1], models.ProviderFallback)
}

func TestHealthCheck(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
