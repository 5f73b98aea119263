// Package sentiment implements the local rule-based classifier. It is the
// floor of the provider chain: total, deterministic, no I/O, so the analysis
// pipeline always terminates with a result even with zero connectivity.
package sentiment

import (
	"strconv"
	"strings"
	"unicode"

	"sentiment-service/internal/models"
)

const (
	maxKeywordScore = 0.85
	baseScore       = 0.3
	perKeyword      = 0.12
)

// Exact-match phrase sets, checked after the numeric-rating rule. Input is
// lowercased and trimmed before lookup.
var positivePhrases = map[string]struct{}{
	"good": {}, "very good": {}, "great": {}, "excellent": {},
	"awesome": {}, "amazing": {}, "perfect": {}, "fantastic": {},
	"love it": {}, "loved it": {}, "works well": {}, "really good": {},
	"wonderful": {}, "brilliant": {},
}

var negativePhrases = map[string]struct{}{
	"bad": {}, "very bad": {}, "terrible": {}, "awful": {},
	"horrible": {}, "poor": {}, "useless": {}, "hate it": {},
	"hated it": {}, "too slow": {}, "worst": {}, "really bad": {},
}

var neutralPhrases = map[string]struct{}{
	"ok": {}, "okay": {}, "fine": {}, "average": {}, "so so": {},
	"neutral": {}, "meh": {}, "not sure": {}, "no comment": {},
	"n/a": {}, "na": {}, "none": {}, "nothing": {},
}

// Weighted keyword lists. Strong sentiment words carry weight 2, mild ones 1.
var positiveKeywords = map[string]int{
	"excellent": 2, "amazing": 2, "fantastic": 2, "wonderful": 2,
	"perfect": 2, "love": 2, "loved": 2, "best": 2, "awesome": 2,
	"great": 1, "good": 1, "helpful": 1, "useful": 1, "easy": 1,
	"fast": 1, "friendly": 1, "intuitive": 1, "reliable": 1,
	"smooth": 1, "recommend": 1, "enjoyed": 1, "pleasant": 1,
	"clear": 1, "responsive": 1,
}

var negativeKeywords = map[string]int{
	"terrible": 2, "awful": 2, "horrible": 2, "worst": 2, "hate": 2,
	"hated": 2, "useless": 2, "unacceptable": 2,
	"bad": 1, "poor": 1, "slow": 1, "confusing": 1, "broken": 1,
	"buggy": 1, "disappointing": 1, "disappointed": 1, "frustrating": 1,
	"difficult": 1, "annoying": 1, "unreliable": 1, "expensive": 1,
	"lacking": 1, "unclear": 1,
}

// Classify maps text to a sentiment. It never fails: every input resolves
// through the numeric-rating rule, the phrase sets, the weighted keyword
// count, or the neutral default, in that order.
func Classify(text string) models.Classification {
	normalized := strings.ToLower(strings.TrimSpace(text))

	if rating, ok := parseRating(normalized); ok {
		return classifyRating(rating)
	}

	if _, ok := positivePhrases[normalized]; ok {
		return models.Classification{Label: models.SentimentPositive, Score: 0.8, Confidence: 0.7}
	}
	if _, ok := negativePhrases[normalized]; ok {
		return models.Classification{Label: models.SentimentNegative, Score: -0.8, Confidence: 0.7}
	}
	if _, ok := neutralPhrases[normalized]; ok {
		return models.Classification{Label: models.SentimentNeutral, Score: 0, Confidence: 0.6}
	}

	posWeight, negWeight := 0, 0
	for _, word := range tokenize(normalized) {
		if w, ok := positiveKeywords[word]; ok {
			posWeight += w
		}
		if w, ok := negativeKeywords[word]; ok {
			negWeight += w
		}
	}

	switch {
	case posWeight > negWeight:
		return models.Classification{
			Label:      models.SentimentPositive,
			Score:      keywordScore(posWeight),
			Confidence: 0.55,
		}
	case negWeight > posWeight:
		return models.Classification{
			Label:      models.SentimentNegative,
			Score:      -keywordScore(negWeight),
			Confidence: 0.55,
		}
	default:
		return models.Classification{Label: models.SentimentNeutral, Score: 0, Confidence: 0.4}
	}
}

// parseRating accepts purely numeric answers ("3", "4.5") as rating values.
func parseRating(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func classifyRating(rating float64) models.Classification {
	switch {
	case rating >= 4:
		return models.Classification{Label: models.SentimentPositive, Score: 0.7, Confidence: 0.9}
	case rating >= 3:
		return models.Classification{Label: models.SentimentNeutral, Score: 0, Confidence: 0.9}
	default:
		return models.Classification{Label: models.SentimentNegative, Score: -0.6, Confidence: 0.9}
	}
}

func keywordScore(weight int) float64 {
	score := baseScore + perKeyword*float64(weight)
	if score > maxKeywordScore {
		return maxKeywordScore
	}
	return score
}

func tokenize(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
