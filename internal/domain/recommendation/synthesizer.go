package recommendation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/clinical-ai/internal/platform/gemini"
)

// Generator is the outbound AI boundary consumed by the Synthesizer. Its
// Result carries either model text or a sentinel; it never errors.
type Generator interface {
	Generate(ctx context.Context, prompt string) gemini.Result
}

// Synthesizer runs the per-event assessment pipeline: build a prompt for the
// category, call the generation backend, interpret the reply, and absorb any
// failure into the default recommendation. None of its Process methods can
// fail; this is the central reliability property of the pipeline.
type Synthesizer struct {
	generator Generator
	logger    zerolog.Logger
}

func NewSynthesizer(generator Generator, logger zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		generator: generator,
		logger:    logger.With().Str("component", "synthesizer").Logger(),
	}
}

// ProcessClinicalNote produces a clinical-note-summary recommendation.
func (s *Synthesizer) ProcessClinicalNote(ctx context.Context, event ClinicalEvent) *Recommendation {
	return s.process(ctx, event, CategoryClinicalNoteSummary)
}

// ProcessTriageAssessment produces a triage-assessment recommendation.
func (s *Synthesizer) ProcessTriageAssessment(ctx context.Context, event ClinicalEvent) *Recommendation {
	return s.process(ctx, event, CategoryTriageAssessment)
}

// ProcessCodingSuggestion produces a coding-suggestion recommendation.
func (s *Synthesizer) ProcessCodingSuggestion(ctx context.Context, event ClinicalEvent) *Recommendation {
	return s.process(ctx, event, CategoryCodingSuggestion)
}

func (s *Synthesizer) process(ctx context.Context, event ClinicalEvent, category string) *Recommendation {
	prompt := BuildPrompt(event, category)

	res := s.generator.Generate(ctx, prompt)
	if res.Failed {
		s.logger.Warn().
			Str("patient_id", event.PatientID).
			Str("category", category).
			Msg("generation call failed, producing default recommendation")
		return DefaultRecommendation(event, category)
	}

	return Interpret(event, res.Text, category)
}

// DefaultRecommendation is the terminal error-absorption point of the
// pipeline: a fixed manual-review record emitted when the generation call
// failed outright or its output could not be parsed at all. Its confidence
// score of exactly 0.0 distinguishes "no real AI assessment occurred" from a
// low-confidence real one.
func DefaultRecommendation(event ClinicalEvent, category string) *Recommendation {
	now := time.Now().UTC()
	rec := &Recommendation{
		PatientID:  event.PatientID,
		SourceType: event.EventType,
		SourceID:   event.SourceServiceID,
		Category:   category,
		Title:      "Default Assessment",
		Summary:    "AI analysis temporarily unavailable. Please perform manual assessment.",
		Recommendations: []string{
			"Perform manual clinical assessment",
			"Follow institutional protocols",
		},
		SafetyNotes: []string{
			"Ensure all safety protocols are followed",
		},
		Priority: DefaultPriority,
		Analysis: &Analysis{
			ClinicalSummary:         "Manual assessment required",
			SuggestedDiagnosisCodes: []string{},
			SuggestedProcedureCodes: []string{},
			TriagePriority:          "Standard",
			RecommendedCareLevel:    "primary",
			ConfidenceScore:         0.0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec.Normalize()
	return rec
}
