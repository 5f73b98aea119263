package gemini

import (
	"testing"

	"sentiment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSentimentJSON(t *testing.T) {
	result, err := ParseSentimentJSON(`{"sentiment_label":"Positive","sentiment_score":0.8,"confidence":0.9}`)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, result.Label)
	assert.Equal(t, 0.8, result.Score)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestParseSentimentJSONStripsCodeFences(t *testing.T) {
	content := "```json\n{\"sentiment_label\":\"Negative\",\"sentiment_score\":-0.4}\n```"
	result, err := ParseSentimentJSON(content)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, result.Label)
	assert.Equal(t, -0.4, result.Score)
	assert.Zero(t, result.Confidence, "confidence is optional")
}

func TestParseSentimentJSONRejectsUnknownLabel(t *testing.T) {
	_, err := ParseSentimentJSON(`{"sentiment_label":"Mixed","sentiment_score":0.1}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sentiment label")
}

func TestParseSentimentJSONRejectsMalformed(t *testing.T) {
	for _, content := range []string{"", "not json", `{"sentiment_label":`, `The sentiment is Positive.`} {
		_, err := ParseSentimentJSON(content)
		assert.Error(t, err, "content %q", content)
	}
}

func TestBuildPromptIncludesText(t *testing.T) {
	assert.Contains(t, BuildPrompt("the answer"), "the answer")
}
