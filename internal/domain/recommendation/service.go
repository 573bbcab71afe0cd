package recommendation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no recommendation exists for an id.
var ErrNotFound = errors.New("recommendation not found")

// Summary aggregates recommendation counts for one patient.
type Summary struct {
	PatientID         string `json:"patient_id"`
	RecentCount       int64  `json:"recent_count"`
	MonthlyCount      int64  `json:"monthly_count"`
	HighPriorityCount int64  `json:"high_priority_count"`
	CriticalCount     int64  `json:"critical_count"`
}

// Service exposes the read side of the recommendation store. Writes happen
// only via the event pipeline, never through this service.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Recommendation, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Recommendation, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByPatientAndCategory(ctx context.Context, patientID, category string) ([]*Recommendation, error) {
	if !ValidCategories[category] {
		return nil, fmt.Errorf("unknown recommendation category %q", category)
	}
	return s.repo.ListByPatientAndCategory(ctx, patientID, category)
}

func (s *Service) ListByPatientAndPriority(ctx context.Context, patientID, priority string) ([]*Recommendation, error) {
	return s.repo.ListByPatientAndPriority(ctx, patientID, priority)
}

// ListRecentByPatient returns the patient's recommendations created within the
// last `days` days. Non-positive values fall back to a one-week window.
func (s *Service) ListRecentByPatient(ctx context.Context, patientID string, days int) ([]*Recommendation, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.ListByPatientSince(ctx, patientID, since)
}

// ListRecentByCategory returns recommendations of one category created within
// the last `hours` hours, across all patients. Non-positive values fall back
// to a one-day window.
func (s *Service) ListRecentByCategory(ctx context.Context, category string, hours int) ([]*Recommendation, error) {
	if !ValidCategories[category] {
		return nil, fmt.Errorf("unknown recommendation category %q", category)
	}
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	return s.repo.ListByCategorySince(ctx, category, since)
}

// PatientSummary computes the 7-day and 30-day counters plus the standing
// high/critical priority counts for one patient.
func (s *Service) PatientSummary(ctx context.Context, patientID string) (*Summary, error) {
	now := time.Now().UTC()

	recent, err := s.repo.CountByPatientSince(ctx, patientID, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	monthly, err := s.repo.CountByPatientSince(ctx, patientID, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	high, err := s.repo.ListByPatientAndPriority(ctx, patientID, "high")
	if err != nil {
		return nil, err
	}
	critical, err := s.repo.ListByPatientAndPriority(ctx, patientID, "critical")
	if err != nil {
		return nil, err
	}

	return &Summary{
		PatientID:         patientID,
		RecentCount:       recent,
		MonthlyCount:      monthly,
		HighPriorityCount: int64(len(high)),
		CriticalCount:     int64(len(critical)),
	}, nil
}
