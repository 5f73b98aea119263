package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DatasetStatus is the lifecycle state of a dataset. Transitions only move
// forward: processing -> completed, or processing -> failed.
type DatasetStatus string

const (
	StatusProcessing DatasetStatus = "processing"
	StatusCompleted  DatasetStatus = "completed"
	StatusFailed     DatasetStatus = "failed"
)

// Source kinds accepted at ingestion.
const (
	SourceCSV   = "csv"
	SourceSheet = "sheet"
)

// StringList stores an ordered list of column names as JSON in a TEXT column.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringList) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// FieldMap holds one row's raw answers keyed by column name.
type FieldMap map[string]interface{}

func (f FieldMap) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *FieldMap) Scan(src interface{}) error {
	return scanJSON(src, f)
}

// LabelMap holds per-question sentiment labels keyed by column name.
type LabelMap map[string]SentimentLabel

func (m LabelMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *LabelMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	return scanJSON(src, m)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("cannot scan %T into JSON column", src)
	}
}

// Dataset is one imported collection of feedback rows with a shared column
// schema. analyzed_rows never exceeds total_rows and never decreases except
// through an explicit re-analyze reset.
type Dataset struct {
	ID         string     `json:"id" db:"id"`
	Title      string     `json:"title" db:"title"`
	SourceKind string     `json:"source_kind" db:"source_kind"`
	Columns    StringList `json:"columns" db:"columns"`
	// RespondentColumn is the column explicitly named at ingestion as the
	// respondent label; its values never feed classification or analytics.
	RespondentColumn string        `json:"respondent_column,omitempty" db:"respondent_column"`
	TotalRows        int           `json:"total_rows" db:"total_rows"`
	AnalyzedRows     int           `json:"analyzed_rows" db:"analyzed_rows"`
	Status           DatasetStatus `json:"status" db:"status"`
	Summary          string        `json:"summary,omitempty" db:"summary"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// ResponseRow is one respondent's raw answers plus derived sentiment. A row
// counts as analyzed iff SentimentLabel is set.
type ResponseRow struct {
	ID                 int64           `json:"id" db:"id"`
	DatasetID          string          `json:"dataset_id" db:"dataset_id"`
	RowIndex           int             `json:"row_index" db:"row_index"`
	Fields             FieldMap        `json:"fields" db:"fields"`
	Respondent         string          `json:"respondent,omitempty" db:"respondent"`
	SentimentLabel     *SentimentLabel `json:"sentiment_label,omitempty" db:"sentiment_label"`
	SentimentScore     *float64        `json:"sentiment_score,omitempty" db:"sentiment_score"`
	Confidence         *float64        `json:"confidence,omitempty" db:"confidence"`
	QuestionSentiments LabelMap        `json:"question_sentiments,omitempty" db:"question_sentiments"`
	Provider           string          `json:"provider,omitempty" db:"provider"`
	AnalyzedAt         *time.Time      `json:"analyzed_at,omitempty" db:"analyzed_at"`
	ClaimedAt          *time.Time      `json:"-" db:"claimed_at"`
}

// Analyzed reports whether sentiment has been persisted for this row.
func (r *ResponseRow) Analyzed() bool {
	return r.SentimentLabel != nil
}

// CreateDatasetRequest is the ingestion boundary payload: the collaborator
// has already parsed the file/sheet into flat rows.
type CreateDatasetRequest struct {
	Title      string                   `json:"title" binding:"required"`
	SourceKind string                   `json:"source_kind" binding:"required,oneof=csv sheet"`
	Columns    []string                 `json:"columns" binding:"required,min=1"`
	Rows       []map[string]interface{} `json:"rows"`
	// RespondentColumn optionally names the column holding the respondent
	// label; it is excluded from classification input.
	RespondentColumn string `json:"respondent_column,omitempty"`
}

// AdvanceRequest lets the driver override the configured batch size.
type AdvanceRequest struct {
	BatchSize int `json:"batch_size"`
}

// AdvanceResult reports progress after one bounded unit of work.
type AdvanceResult struct {
	Processed     int  `json:"processed"`
	AnalyzedTotal int  `json:"analyzed_total"`
	TotalRows     int  `json:"total_rows"`
	Done          bool `json:"done"`
}

// QuestionDistribution is the per-question tally used by analytics: raw
// answer frequencies for option-style questions, sentiment label frequencies
// for free-text questions.
type QuestionDistribution struct {
	Question string         `json:"question"`
	Kind     string         `json:"kind"` // "options" or "free_text"
	Answered int            `json:"answered"`
	Counts   map[string]int `json:"counts"`
}

// DatasetAnalytics is the read-only aggregate over a dataset's rows. Partial
// datasets yield partial distributions.
type DatasetAnalytics struct {
	DatasetID       string                 `json:"dataset_id"`
	TotalResponses  int                    `json:"total_responses"`
	AnalyzedRows    int                    `json:"analyzed_rows"`
	SentimentTotals map[SentimentLabel]int `json:"sentiment_totals"`
	ByProvider      map[string]int         `json:"by_provider"`
	Distributions   []QuestionDistribution `json:"distributions"`
	RawResponses    []*ResponseRow         `json:"raw_responses"`
}
