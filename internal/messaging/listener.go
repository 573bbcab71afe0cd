// Package messaging routes inbound patient events from the message bus into
// the recommendation pipeline.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/clinical-ai/internal/domain/recommendation"
)

// Pipeline is the event-processing side of the recommendation domain. Its
// methods absorb AI failures internally and always return a record.
type Pipeline interface {
	ProcessClinicalNote(ctx context.Context, event recommendation.ClinicalEvent) *recommendation.Recommendation
	ProcessTriageAssessment(ctx context.Context, event recommendation.ClinicalEvent) *recommendation.Recommendation
	ProcessCodingSuggestion(ctx context.Context, event recommendation.ClinicalEvent) *recommendation.Recommendation
}

// Listener consumes raw bus deliveries, picks a pipeline per event type, and
// persists the result. The only error it ever surfaces is a storage failure;
// malformed payloads and unhandled event types are logged and dropped so they
// are never redelivered. Deliveries carry no idempotency key: a redelivered
// event produces a second record, preserving the bus's at-least-once
// semantics.
type Listener struct {
	pipeline Pipeline
	repo     recommendation.Repository
	logger   zerolog.Logger
}

func NewListener(pipeline Pipeline, repo recommendation.Repository, logger zerolog.Logger) *Listener {
	return &Listener{
		pipeline: pipeline,
		repo:     repo,
		logger:   logger.With().Str("component", "listener").Logger(),
	}
}

// HandlePatientEvent processes a delivery from the general patient event
// queue, classifying it by event type.
func (l *Listener) HandlePatientEvent(ctx context.Context, body []byte) error {
	event, ok := l.decode(body)
	if !ok {
		return nil
	}

	var rec *recommendation.Recommendation
	switch event.EventType {
	case "patient.note.created", "patient.note.updated":
		rec = l.pipeline.ProcessClinicalNote(ctx, event)
	case "patient.vitals.updated", "patient.symptoms.reported":
		rec = l.pipeline.ProcessTriageAssessment(ctx, event)
	case "patient.visit.completed":
		rec = l.pipeline.ProcessCodingSuggestion(ctx, event)
	default:
		l.logger.Info().
			Str("event_type", event.EventType).
			Str("patient_id", event.PatientID).
			Msg("unhandled event type, skipping")
		return nil
	}

	return l.persist(ctx, event, rec)
}

// HandleClinicalNote processes a delivery from the dedicated clinical note
// queue. The note pipeline runs regardless of the event type field.
func (l *Listener) HandleClinicalNote(ctx context.Context, body []byte) error {
	event, ok := l.decode(body)
	if !ok {
		return nil
	}
	return l.persist(ctx, event, l.pipeline.ProcessClinicalNote(ctx, event))
}

// HandleTriageAssessment processes a delivery from the dedicated triage
// queue. The triage pipeline runs regardless of the event type field.
func (l *Listener) HandleTriageAssessment(ctx context.Context, body []byte) error {
	event, ok := l.decode(body)
	if !ok {
		return nil
	}
	return l.persist(ctx, event, l.pipeline.ProcessTriageAssessment(ctx, event))
}

func (l *Listener) decode(body []byte) (recommendation.ClinicalEvent, bool) {
	var event recommendation.ClinicalEvent
	if err := json.Unmarshal(body, &event); err != nil {
		l.logger.Error().Err(err).Msg("dropping undecodable event payload")
		return recommendation.ClinicalEvent{}, false
	}
	return event, true
}

func (l *Listener) persist(ctx context.Context, event recommendation.ClinicalEvent, rec *recommendation.Recommendation) error {
	if err := l.repo.Create(ctx, rec); err != nil {
		l.logger.Error().Err(err).
			Str("patient_id", event.PatientID).
			Str("category", rec.Category).
			Msg("failed to store recommendation")
		return fmt.Errorf("store recommendation: %w", err)
	}
	l.logger.Info().
		Str("patient_id", event.PatientID).
		Str("category", rec.Category).
		Str("priority", rec.Priority).
		Stringer("recommendation_id", rec.ID).
		Msg("recommendation stored")
	return nil
}
