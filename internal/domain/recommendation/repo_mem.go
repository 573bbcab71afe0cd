package recommendation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepo is a thread-safe, in-memory Repository used by tests and by
// local development without a database.
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Recommendation
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{records: make(map[uuid.UUID]*Recommendation)}
}

func (r *InMemoryRepo) Create(_ context.Context, rec *Recommendation) error {
	rec.ID = uuid.New()
	rec.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *rec
	r.records[rec.ID] = &stored
	return nil
}

func (r *InMemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

// filter returns records matching pred, ordered created_at descending.
func (r *InMemoryRepo) filter(pred func(*Recommendation) bool) []*Recommendation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Recommendation
	for _, rec := range r.records {
		if pred(rec) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *InMemoryRepo) ListByPatient(_ context.Context, patientID string) ([]*Recommendation, error) {
	return r.filter(func(rec *Recommendation) bool {
		return rec.PatientID == patientID
	}), nil
}

func (r *InMemoryRepo) ListByPatientAndCategory(_ context.Context, patientID, category string) ([]*Recommendation, error) {
	return r.filter(func(rec *Recommendation) bool {
		return rec.PatientID == patientID && rec.Category == category
	}), nil
}

func (r *InMemoryRepo) ListByPatientAndPriority(_ context.Context, patientID, priority string) ([]*Recommendation, error) {
	return r.filter(func(rec *Recommendation) bool {
		return rec.PatientID == patientID && rec.Priority == priority
	}), nil
}

func (r *InMemoryRepo) ListByPatientSince(_ context.Context, patientID string, since time.Time) ([]*Recommendation, error) {
	return r.filter(func(rec *Recommendation) bool {
		return rec.PatientID == patientID && !rec.CreatedAt.Before(since)
	}), nil
}

func (r *InMemoryRepo) CountByPatientSince(ctx context.Context, patientID string, since time.Time) (int64, error) {
	items, _ := r.ListByPatientSince(ctx, patientID, since)
	return int64(len(items)), nil
}

func (r *InMemoryRepo) ListByCategorySince(_ context.Context, category string, since time.Time) ([]*Recommendation, error) {
	return r.filter(func(rec *Recommendation) bool {
		return rec.Category == category && !rec.CreatedAt.Before(since)
	}), nil
}
