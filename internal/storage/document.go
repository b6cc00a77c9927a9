package storage

import (
	"context"
	"database/sql"

	"github.com/pgvector/pgvector-go"

	"github.com/todmy/claim-verifier/pkg/models"
)

// Retrieval defaults applied when the caller passes non-positive values
const (
	defaultSearchLimit     = 10
	defaultSearchThreshold = 0.3
)

// DocumentRepository defines the document-store operations the pipeline and
// the listing endpoint depend on.
type DocumentRepository interface {
	// FindSimilar returns the chunks nearest to the embedding, joined with
	// their source documents, ordered by descending similarity
	FindSimilar(ctx context.Context, embedding pgvector.Vector, limit int, threshold float64) ([]models.CandidateDocument, error)

	// List returns source documents, newest first
	List(ctx context.Context, limit, offset int) ([]models.Document, error)

	// Count returns the number of source documents
	Count(ctx context.Context) (int, error)

	// CountChunks returns the number of embedded chunks
	CountChunks(ctx context.Context) (int, error)

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error
}

// PostgresDocumentRepository implements DocumentRepository using PostgreSQL
// with pgvector
type PostgresDocumentRepository struct {
	db *sql.DB
}

// NewPostgresDocumentRepository creates a new PostgresDocumentRepository
func NewPostgresDocumentRepository(db *sql.DB) *PostgresDocumentRepository {
	return &PostgresDocumentRepository{db: db}
}

// FindSimilar finds document chunks similar to the given embedding using
// pgvector cosine distance. Each row carries the owning document's metadata
// so candidates are self-contained.
func (r *PostgresDocumentRepository) FindSimilar(ctx context.Context, embedding pgvector.Vector, limit int, threshold float64) ([]models.CandidateDocument, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if threshold <= 0 {
		threshold = defaultSearchThreshold
	}

	// Cosine distance: 1 - cosine_similarity.
	// We filter where 1 - distance >= threshold (i.e., distance <= 1 - threshold)
	query := `
		SELECT sd.id, sd.cid, sd.title, dc.content,
			   1 - (dc.embedding <=> $1) as similarity
		FROM document_chunks dc
		JOIN source_documents sd ON sd.id = dc.document_id
		WHERE 1 - (dc.embedding <=> $1) >= $2
		ORDER BY dc.embedding <=> $1
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, embedding, threshold, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []models.CandidateDocument
	for rows.Next() {
		var doc models.CandidateDocument
		err := rows.Scan(
			&doc.ID,
			&doc.CID,
			&doc.Title,
			&doc.Content,
			&doc.Similarity,
		)
		if err != nil {
			return nil, err
		}
		doc.Similarity = clamp01(doc.Similarity)
		candidates = append(candidates, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}

// List retrieves source documents ordered by creation time, newest first
func (r *PostgresDocumentRepository) List(ctx context.Context, limit, offset int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, cid, title, mime_type, COALESCE(source_url, ''), created_at
		FROM source_documents
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []models.Document
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.CID,
			&doc.Title,
			&doc.MimeType,
			&doc.SourceURL,
			&doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return documents, nil
}

// Count returns the total number of source documents
func (r *PostgresDocumentRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM source_documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of embedded chunks
func (r *PostgresDocumentRepository) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// Ping checks database connectivity
func (r *PostgresDocumentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
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
