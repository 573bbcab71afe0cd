package recommendation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence interface for Recommendation records. Every
// list result is ordered by creation time, most recent first. There is no
// update or delete: records are immutable once saved. GetByID returns
// (nil, nil) when no record exists for the id.
type Repository interface {
	Create(ctx context.Context, rec *Recommendation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Recommendation, error)
	ListByPatientAndCategory(ctx context.Context, patientID, category string) ([]*Recommendation, error)
	ListByPatientAndPriority(ctx context.Context, patientID, priority string) ([]*Recommendation, error)
	ListByPatientSince(ctx context.Context, patientID string, since time.Time) ([]*Recommendation, error)
	CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int64, error)
	ListByCategorySince(ctx context.Context, category string, since time.Time) ([]*Recommendation, error)
}
