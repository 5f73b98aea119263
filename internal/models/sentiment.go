package models

// SentimentLabel is one of the three classes every classifier must produce.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNeutral  SentimentLabel = "Neutral"
	SentimentNegative SentimentLabel = "Negative"
)

// Valid reports whether the label is one of the three known classes.
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// ProviderFallback tags classifications resolved by the local rule-based
// classifier after every remote provider was exhausted.
const ProviderFallback = "fallback"

// SentimentResponse is the strict JSON contract expected from LLM providers.
// A response with a label outside the valid set is a structural failure.
type SentimentResponse struct {
	Label      SentimentLabel `json:"sentiment_label"`
	Score      float64        `json:"sentiment_score"`
	Confidence float64        `json:"confidence,omitempty"` // Optional
}

// Classification is the final classification result handed to the batch
// advancer, after clamping and provider tagging.
type Classification struct {
	Label      SentimentLabel `json:"sentiment_label"`
	Score      float64        `json:"sentiment_score"`
	Confidence float64        `json:"confidence"`
	Provider   string         `json:"provider"`
}

// Clamp returns v bounded to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
