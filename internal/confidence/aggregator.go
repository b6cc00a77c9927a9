package confidence

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"

	"github.com/todmy/claim-verifier/pkg/models"
)

// Per-document scoring weights. Relevance dominates; length and keyword
// coverage are heuristic corrections.
const (
	relevanceWeight = 0.6
	lengthWeight    = 0.2
	keywordWeight   = 0.2
)

// scoreFloor replaces a score that came out non-finite, so one malformed
// document cannot abort the whole aggregation.
const scoreFloor = 0.1

// Classification thresholds on the final confidence.
const (
	verifiedThreshold   = 0.8
	unverifiedThreshold = 0.5
)

// minKeywordLength filters out short words before keyword matching
const minKeywordLength = 3

// rankWeights weight the top documents when aggregating overall confidence.
// Absent ranks simply drop out of the weighted average.
var rankWeights = []float64{0.5, 0.3, 0.2}

// ScoreDocuments scores every ranked document against the claim and returns
// the per-document confidences sorted descending.
func ScoreDocuments(claimText string, ranked []models.RankedDocument) []models.DocumentConfidence {
	words := claimWords(claimText)
	claimLen := utf8.RuneCountInString(claimText)

	scores := make([]models.DocumentConfidence, len(ranked))
	for i, doc := range ranked {
		scores[i] = models.DocumentConfidence{
			DocumentID: doc.ID,
			Score:      scoreDocument(doc, words, claimLen),
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})

	return scores
}

func scoreDocument(doc models.RankedDocument, words []string, claimLen int) float64 {
	score := relevanceWeight*doc.RelevanceScore +
		lengthWeight*lengthScore(utf8.RuneCountInString(doc.Content), claimLen) +
		keywordWeight*keywordScore(words, doc.Content)

	if math.IsNaN(score) || math.IsInf(score, 0) {
		return scoreFloor
	}

	return clamp01(score)
}

// lengthScore rewards documents roughly three times the claim's length and
// penalizes extremes symmetrically.
func lengthScore(docLen, claimLen int) float64 {
	if claimLen == 0 {
		return 0
	}
	ratio := float64(docLen) / float64(claimLen)
	return math.Max(0, 1-math.Abs(ratio-3)/3)
}

// keywordScore is the fraction of claim words that occur in the document,
// case-insensitive.
func keywordScore(words []string, content string) float64 {
	if len(words) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	matched := 0
	for _, word := range words {
		if strings.Contains(lower, word) {
			matched++
		}
	}

	return float64(matched) / float64(len(words))
}

// claimWords tokenizes the claim into lowercase words longer than three runes
func claimWords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	result := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) > minKeywordLength {
			result = append(result, word)
		}
	}

	return result
}

// Aggregate combines per-document scores into an overall confidence using a
// weighted average of the top three. Scores must already be sorted
// descending, as ScoreDocuments returns them.
func Aggregate(scores []models.DocumentConfidence) float64 {
	if len(scores) == 0 {
		return 0
	}

	n := len(scores)
	if n > len(rankWeights) {
		n = len(rankWeights)
	}

	top := make([]float64, n)
	for i := 0; i < n; i++ {
		top[i] = scores[i].Score
	}
	weights := rankWeights[:n]

	return clamp01(floats.Dot(top, weights) / floats.Sum(weights))
}

// Classify maps a confidence value onto a verification status
func Classify(conf float64) models.Status {
	switch {
	case conf >= verifiedThreshold:
		return models.StatusVerified
	case conf >= unverifiedThreshold:
		return models.StatusUnverified
	default:
		return models.StatusUnknown
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
