package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/todmy/claim-verifier/pkg/models"
)

// VerificationRecord is one completed verification, kept for product
// analytics. Rows are written best-effort; nothing reads them on the
// request path.
type VerificationRecord struct {
	ID               uuid.UUID
	ClaimText        string
	Confidence       float64
	Status           models.Status
	DocumentIDs      []string
	Source           string
	ExtensionVersion string
	ProcessingTimeMs int64
	CreatedAt        time.Time
}

// VerificationRepository defines the analytics storage operations
type VerificationRepository interface {
	Record(ctx context.Context, rec *VerificationRecord) error
}

// PostgresVerificationRepository implements VerificationRepository using PostgreSQL
type PostgresVerificationRepository struct {
	db *sql.DB
}

// NewPostgresVerificationRepository creates a new PostgresVerificationRepository
func NewPostgresVerificationRepository(db *sql.DB) *PostgresVerificationRepository {
	return &PostgresVerificationRepository{db: db}
}

// Record inserts a verification request row
func (r *PostgresVerificationRepository) Record(ctx context.Context, rec *VerificationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO verification_requests
			(id, claim_text, confidence, status, doc_ids, source, extension_version, processing_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.ClaimText,
		rec.Confidence,
		string(rec.Status),
		pq.Array(rec.DocumentIDs),
		rec.Source,
		rec.ExtensionVersion,
		rec.ProcessingTimeMs,
		rec.CreatedAt,
	)

	return err
}
