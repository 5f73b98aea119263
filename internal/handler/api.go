package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"sentiment-service/internal/models"
	"sentiment-service/internal/repository"
	"sentiment-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler handles HTTP requests.
type Handler struct {
	analyzer   *service.Analyzer
	aggregator *service.Aggregator
	logger     *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(analyzer *service.Analyzer, aggregator *service.Aggregator, logger *zap.Logger) *Handler {
	return &Handler{
		analyzer:   analyzer,
		aggregator: aggregator,
		logger:     logger,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/datasets", h.CreateDataset)
		api.GET("/datasets", h.ListDatasets)
		api.GET("/datasets/:id", h.GetDataset)
		api.DELETE("/datasets/:id", h.DeleteDataset)

		// Driver boundary: the caller loops on advance until done=true.
		api.POST("/datasets/:id/advance", h.Advance)
		api.POST("/datasets/:id/reanalyze", h.Reanalyze)

		api.GET("/datasets/:id/analytics", h.GetAnalytics)

		api.GET("/datasets/:id/export/csv", h.ExportCSV)
		api.GET("/datasets/:id/export/json", h.ExportJSON)
	}

	r.GET("/health", h.HealthCheck)
}

// CreateDataset handles the ingestion boundary: the upstream collaborator
// has already parsed the file or sheet into flat rows.
func (h *Handler) CreateDataset(c *gin.Context) {
	var req models.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := h.analyzer.CreateDataset(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("Failed to create dataset", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dataset ingestion failed"})
		return
	}

	c.JSON(http.StatusCreated, ds)
}

// ListDatasets returns all datasets.
func (h *Handler) ListDatasets(c *gin.Context) {
	datasets, err := h.analyzer.ListDatasets(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list datasets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list datasets"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets, "count": len(datasets)})
}

// GetDataset returns one dataset's metadata and progress.
func (h *Handler) GetDataset(c *gin.Context) {
	ds, err := h.analyzer.GetDataset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOrError(c, err, "failed to get dataset")
		return
	}
	c.JSON(http.StatusOK, ds)
}

// DeleteDataset removes a dataset and all its rows.
func (h *Handler) DeleteDataset(c *gin.Context) {
	if err := h.analyzer.DeleteDataset(c.Request.Context(), c.Param("id")); err != nil {
		h.notFoundOrError(c, err, "failed to delete dataset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// Advance runs one bounded unit of classification work and reports progress.
// Any error here is non-fatal to the dataset and safe to retry.
func (h *Handler) Advance(c *gin.Context) {
	// An empty body is fine; the configured batch size applies.
	var req models.AdvanceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.analyzer.Advance(c.Request.Context(), c.Param("id"), req.BatchSize)
	if err != nil {
		h.notFoundOrError(c, err, "advance failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reanalyze clears all results and restarts analysis from row zero.
func (h *Handler) Reanalyze(c *gin.Context) {
	if err := h.analyzer.Reanalyze(c.Request.Context(), c.Param("id")); err != nil {
		h.notFoundOrError(c, err, "reanalyze failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(models.StatusProcessing)})
}

// GetAnalytics returns per-question distributions over whatever is analyzed
// so far.
func (h *Handler) GetAnalytics(c *gin.Context) {
	analytics, err := h.aggregator.Aggregate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOrError(c, err, "failed to aggregate")
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// ExportCSV streams the dataset's rows with their sentiment columns.
func (h *Handler) ExportCSV(c *gin.Context) {
	ctx := c.Request.Context()

	ds, err := h.analyzer.GetDataset(ctx, c.Param("id"))
	if err != nil {
		h.notFoundOrError(c, err, "failed to export")
		return
	}

	analytics, err := h.aggregator.Aggregate(ctx, ds.ID)
	if err != nil {
		h.notFoundOrError(c, err, "failed to export")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", ds.ID))

	w := csv.NewWriter(c.Writer)
	defer w.Flush()

	header := append([]string{"row_index", "respondent"}, ds.Columns...)
	header = append(header, "sentiment_label", "sentiment_score", "confidence", "provider")
	if err := w.Write(header); err != nil {
		h.logger.Error("Failed to write CSV header", zap.Error(err))
		return
	}

	for _, row := range analytics.RawResponses {
		record := []string{strconv.Itoa(row.RowIndex), row.Respondent}
		for _, col := range ds.Columns {
			record = append(record, stringifyField(row.Fields[col]))
		}
		if row.Analyzed() {
			record = append(record,
				string(*row.SentimentLabel),
				strconv.FormatFloat(*row.SentimentScore, 'f', 3, 64),
				strconv.FormatFloat(*row.Confidence, 'f', 3, 64),
				row.Provider,
			)
		} else {
			record = append(record, "", "", "", "")
		}
		if err := w.Write(record); err != nil {
			h.logger.Error("Failed to write CSV record", zap.Error(err))
			return
		}
	}
}

// ExportJSON returns the dataset with all rows and results.
func (h *Handler) ExportJSON(c *gin.Context) {
	ctx := c.Request.Context()

	ds, err := h.analyzer.GetDataset(ctx, c.Param("id"))
	if err != nil {
		h.notFoundOrError(c, err, "failed to export")
		return
	}

	analytics, err := h.aggregator.Aggregate(ctx, ds.ID)
	if err != nil {
		h.notFoundOrError(c, err, "failed to export")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", ds.ID))
	c.JSON(http.StatusOK, gin.H{
		"dataset":   ds,
		"responses": analytics.RawResponses,
	})
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) notFoundOrError(c *gin.Context, err error, msg string) {
	if errors.Is(err, repository.ErrDatasetNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
		return
	}
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func stringifyField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
