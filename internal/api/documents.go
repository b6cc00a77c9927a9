package api

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/todmy/claim-verifier/pkg/models"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type documentList struct {
	Documents  []models.Document `json:"documents"`
	TotalCount int               `json:"total_count"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// Paginated listing of the reference corpus
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseListParams(r)

	docs, err := s.docs.List(r.Context(), limit, offset)
	if err != nil {
		s.log.Error("list documents failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	total, err := s.docs.Count(r.Context())
	if err != nil {
		s.log.Error("count documents failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	respondJSON(w, http.StatusOK, documentList{
		Documents:  docs,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	})
}

func parseListParams(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
