package service

import (
	"strconv"
	"strings"

	"sentiment-service/internal/models"
	"sentiment-service/internal/sentiment"
)

// Column names treated as the respondent label when the ingester does not
// name one explicitly. Respondent columns never feed classification.
var respondentColumnNames = map[string]struct{}{
	"name": {}, "respondent": {}, "respondent_name": {}, "respondent name": {},
	"full name": {}, "full_name": {}, "email": {}, "e-mail": {},
}

// Column-name fragments that mark a question as free text regardless of its
// answer shapes.
var freeTextHints = []string{
	"comment", "feedback", "suggest", "describe", "improve",
	"why", "thought", "review", "opinion", "explain", "detail",
}

func normalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func isRespondentColumn(name string) bool {
	_, ok := respondentColumnNames[normalizeColumn(name)]
	return ok
}

// isRespondent matches the dataset's explicitly chosen respondent column as
// well as the well-known names.
func isRespondent(name, respondentColumn string) bool {
	if respondentColumn != "" && normalizeColumn(name) == normalizeColumn(respondentColumn) {
		return true
	}
	return isRespondentColumn(name)
}

func hasFreeTextHint(name string) bool {
	n := normalizeColumn(name)
	for _, hint := range freeTextHints {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}

// fieldString renders a raw field value the way it was answered. JSON
// numbers arrive as float64; integral values must not grow a ".0" suffix or
// the numeric-rating rule would miss them.
func fieldString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// joinFreeText joins a row's non-empty answers in declared column order into
// the single text handed to the provider chain. The respondent column is
// skipped.
func joinFreeText(columns models.StringList, respondentColumn string, row *models.ResponseRow) string {
	var parts []string
	for _, col := range columns {
		if isRespondent(col, respondentColumn) {
			continue
		}
		if s := fieldString(row.Fields[col]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// questionBreakdown derives a per-question label for each answered question
// with the rule-based classifier. This is local and free, so it runs for
// every row regardless of which provider classified the joined text.
func questionBreakdown(columns models.StringList, respondentColumn string, row *models.ResponseRow) models.LabelMap {
	breakdown := models.LabelMap{}
	for _, col := range columns {
		if isRespondent(col, respondentColumn) {
			continue
		}
		if s := fieldString(row.Fields[col]); s != "" {
			breakdown[col] = sentiment.Classify(s).Label
		}
	}
	if len(breakdown) == 0 {
		return nil
	}
	return breakdown
}
