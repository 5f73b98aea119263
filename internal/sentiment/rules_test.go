package sentiment

import (
	"strings"
	"testing"

	"sentiment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNumericRatings(t *testing.T) {
	tests := []struct {
		text  string
		label models.SentimentLabel
		score float64
	}{
		{"5", models.SentimentPositive, 0.7},
		{"4", models.SentimentPositive, 0.7},
		{"4.5", models.SentimentPositive, 0.7},
		{"3", models.SentimentNeutral, 0.0},
		{"3.5", models.SentimentNeutral, 0.0},
		{"2", models.SentimentNegative, -0.6},
		{"1", models.SentimentNegative, -0.6},
		{"0", models.SentimentNegative, -0.6},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := Classify(tt.text)
			assert.Equal(t, tt.label, result.Label)
			assert.Equal(t, tt.score, result.Score)
		})
	}
}

func TestClassifyExactPhrases(t *testing.T) {
	tests := []struct {
		text  string
		label models.SentimentLabel
	}{
		{"excellent", models.SentimentPositive},
		{"  Great  ", models.SentimentPositive},
		{"love it", models.SentimentPositive},
		{"terrible", models.SentimentNegative},
		{"Hate It", models.SentimentNegative},
		{"ok", models.SentimentNeutral},
		{"no comment", models.SentimentNeutral},
		{"n/a", models.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			result := Classify(tt.text)
			assert.Equal(t, tt.label, result.Label)
		})
	}
}

func TestClassifyKeywords(t *testing.T) {
	// "excellent" carries weight 2, "helpful" weight 1: 0.3 + 0.12*3 = 0.66
	result := Classify("excellent, really helpful")
	require.Equal(t, models.SentimentPositive, result.Label)
	assert.GreaterOrEqual(t, result.Score, 0.6)

	result = Classify("the app is slow and confusing")
	require.Equal(t, models.SentimentNegative, result.Label)
	assert.Negative(t, result.Score)

	// Mixed with equal weight falls back to neutral.
	result = Classify("good but slow")
	assert.Equal(t, models.SentimentNeutral, result.Label)
	assert.Zero(t, result.Score)
	assert.Equal(t, 0.4, result.Confidence)
}

func TestClassifyKeywordScoreCapped(t *testing.T) {
	result := Classify(strings.Repeat("excellent amazing fantastic wonderful perfect ", 5))
	assert.Equal(t, models.SentimentPositive, result.Label)
	assert.Equal(t, 0.85, result.Score)
}

func TestClassifyNeutralDefault(t *testing.T) {
	for _, text := range []string{"", "   ", "the sky is blue", "qwertyuiop"} {
		result := Classify(text)
		assert.Equal(t, models.SentimentNeutral, result.Label, "text %q", text)
		assert.Zero(t, result.Score)
	}
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := []string{
		"", "5", "-12.75", "excellent", "absolute garbage, hated every second",
		strings.Repeat("a", 10000), "多言語のフィードバック", "!!!???", "3.14159",
		"I love it but it crashes constantly and support was unhelpful",
	}

	for _, text := range inputs {
		result := Classify(text)
		assert.True(t, result.Label.Valid(), "text %q", text)
		assert.GreaterOrEqual(t, result.Score, -1.0, "text %q", text)
		assert.LessOrEqual(t, result.Score, 1.0, "text %q", text)
		assert.GreaterOrEqual(t, result.Confidence, 0.0, "text %q", text)
		assert.LessOrEqual(t, result.Confidence, 1.0, "text %q", text)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	text := "great product, a bit slow sometimes"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(text))
	}
}
