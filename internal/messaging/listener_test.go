package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ehr/clinical-ai/internal/domain/recommendation"
)

type stubPipeline struct {
	called string
}

func (s *stubPipeline) record(category string, event recommendation.ClinicalEvent) *recommendation.Recommendation {
	rec := &recommendation.Recommendation{
		PatientID: event.PatientID,
		Category:  category,
		Title:     "AI Assessment",
	}
	rec.Normalize()
	return rec
}

func (s *stubPipeline) ProcessClinicalNote(_ context.Context, event recommendation.ClinicalEvent) *recommendation.Recommendation {
	s.called = recommendation.CategoryClinicalNoteSummary
	return s.record(recommendation.CategoryClinicalNoteSummary, event)
}

func (s *stubPipeline) ProcessTriageAssessment(_ context.Context, event recommendation.ClinicalEvent) *recommendation.Recommendation {
	s.called = recommendation.CategoryTriageAssessment
	return s.record(recommendation.CategoryTriageAssessment, event)
}

func (s *stubPipeline) ProcessCodingSuggestion(_ context.Context, event recommendation.ClinicalEvent) *recommendation.Recommendation {
	s.called = recommendation.CategoryCodingSuggestion
	return s.record(recommendation.CategoryCodingSuggestion, event)
}

type failingRepo struct {
	recommendation.Repository
}

func (f *failingRepo) Create(_ context.Context, _ *recommendation.Recommendation) error {
	return errors.New("connection refused")
}

func newFixture() (*Listener, *stubPipeline, *recommendation.InMemoryRepo) {
	pipeline := &stubPipeline{}
	repo := recommendation.NewInMemoryRepo()
	return NewListener(pipeline, repo, zerolog.Nop()), pipeline, repo
}

func TestHandlePatientEvent_Routing(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{"patient.note.created", recommendation.CategoryClinicalNoteSummary},
		{"patient.note.updated", recommendation.CategoryClinicalNoteSummary},
		{"patient.vitals.updated", recommendation.CategoryTriageAssessment},
		{"patient.symptoms.reported", recommendation.CategoryTriageAssessment},
		{"patient.visit.completed", recommendation.CategoryCodingSuggestion},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			listener, pipeline, repo := newFixture()
			body := []byte(`{"patientId": "p1", "eventType": "` + tt.eventType + `"}`)

			if err := listener.HandlePatientEvent(context.Background(), body); err != nil {
				t.Fatalf("HandlePatientEvent: %v", err)
			}
			if pipeline.called != tt.want {
				t.Errorf("expected %s pipeline, got %q", tt.want, pipeline.called)
			}
			stored, _ := repo.ListByPatient(context.Background(), "p1")
			if len(stored) != 1 {
				t.Errorf("expected 1 stored recommendation, got %d", len(stored))
			}
		})
	}
}

func TestHandlePatientEvent_UnhandledTypeIsNoOp(t *testing.T) {
	listener, pipeline, repo := newFixture()
	body := []byte(`{"patientId": "p1", "eventType": "patient.billing.updated"}`)

	if err := listener.HandlePatientEvent(context.Background(), body); err != nil {
		t.Fatalf("unhandled type must not error: %v", err)
	}
	if pipeline.called != "" {
		t.Errorf("no pipeline should run for unhandled type, got %q", pipeline.called)
	}
	stored, _ := repo.ListByPatient(context.Background(), "p1")
	if len(stored) != 0 {
		t.Errorf("nothing should be stored, got %d records", len(stored))
	}
}

func TestHandlePatientEvent_MalformedPayloadDropped(t *testing.T) {
	listener, pipeline, _ := newFixture()

	if err := listener.HandlePatientEvent(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("malformed payload must be dropped without error: %v", err)
	}
	if pipeline.called != "" {
		t.Errorf("no pipeline should run for malformed payload, got %q", pipeline.called)
	}
}

func TestHandlePatientEvent_StorageFailurePropagates(t *testing.T) {
	pipeline := &stubPipeline{}
	listener := NewListener(pipeline, &failingRepo{}, zerolog.Nop())
	body := []byte(`{"patientId": "p1", "eventType": "patient.note.created"}`)

	if err := listener.HandlePatientEvent(context.Background(), body); err == nil {
		t.Fatal("storage failure must propagate to the consumer")
	}
}

func TestHandleClinicalNote_ForcesNotePipeline(t *testing.T) {
	listener, pipeline, _ := newFixture()
	// Event type says vitals, but the dedicated note queue forces the note
	// pipeline anyway.
	body := []byte(`{"patientId": "p1", "eventType": "patient.vitals.updated"}`)

	if err := listener.HandleClinicalNote(context.Background(), body); err != nil {
		t.Fatalf("HandleClinicalNote: %v", err)
	}
	if pipeline.called != recommendation.CategoryClinicalNoteSummary {
		t.Errorf("expected note pipeline, got %q", pipeline.called)
	}
}

func TestHandleTriageAssessment_ForcesTriagePipeline(t *testing.T) {
	listener, pipeline, _ := newFixture()
	body := []byte(`{"patientId": "p1", "eventType": "patient.note.created"}`)

	if err := listener.HandleTriageAssessment(context.Background(), body); err != nil {
		t.Fatalf("HandleTriageAssessment: %v", err)
	}
	if pipeline.called != recommendation.CategoryTriageAssessment {
		t.Errorf("expected triage pipeline, got %q", pipeline.called)
	}
}
