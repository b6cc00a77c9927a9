package citation

import (
	"github.com/todmy/claim-verifier/pkg/models"
)

const (
	// maxCitations bounds how many citations a verification carries
	maxCitations = 3

	// minScore is the confidence a document must exceed to be cited
	minScore = 0.3

	// maxSnippetLength bounds the snippet window in runes
	maxSnippetLength = 200
)

// Build turns the strongest document confidences into client-facing
// citations. Scores must be sorted descending, as the aggregator returns
// them; each citation carries the document's score as its similarity.
func Build(ranked []models.RankedDocument, scores []models.DocumentConfidence) []models.Citation {
	byID := make(map[string]models.CandidateDocument, len(ranked))
	for _, doc := range ranked {
		if _, ok := byID[doc.ID]; !ok {
			byID[doc.ID] = doc.CandidateDocument
		}
	}

	citations := make([]models.Citation, 0, maxCitations)
	for _, score := range scores {
		if len(citations) == maxCitations {
			break
		}
		if score.Score <= minScore {
			// Scores are sorted, nothing further qualifies
			break
		}

		doc, ok := byID[score.DocumentID]
		if !ok {
			continue
		}

		citations = append(citations, models.Citation{
			DocumentID: doc.ID,
			CID:        doc.CID,
			Title:      doc.Title,
			Snippet:    snippet(doc.Content),
			Similarity: score.Score,
		})
	}

	return citations
}

// snippet trims content to the snippet window, preferring to end on a
// sentence boundary past the window's midpoint. When no boundary lands in
// that range the window is truncated with an ellipsis marker.
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= maxSnippetLength {
		return content
	}

	window := runes[:maxSnippetLength]
	for i := len(window) - 1; i > maxSnippetLength/2; i-- {
		switch window[i] {
		case '.', '!', '?':
			return string(window[:i+1])
		}
	}

	return string(window) + "..."
}
