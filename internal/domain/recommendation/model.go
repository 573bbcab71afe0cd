package recommendation

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation categories. External model output may reference them, so the
// Category field itself stays a plain string.
const (
	CategoryClinicalNoteSummary  = "clinical-note-summary"
	CategoryTriageAssessment     = "triage-assessment"
	CategoryCodingSuggestion     = "coding-suggestion"
	CategoryHealthRecommendation = "health-recommendation"
	CategoryRiskAssessment       = "risk-assessment"
)

// ValidCategories enumerates every recommendation category the service emits.
var ValidCategories = map[string]bool{
	CategoryClinicalNoteSummary:  true,
	CategoryTriageAssessment:     true,
	CategoryCodingSuggestion:     true,
	CategoryHealthRecommendation: true,
	CategoryRiskAssessment:       true,
}

// DefaultPriority is used whenever model output carries no usable priority.
// Priority is an open vocabulary (low/medium/high/critical plus whatever the
// model emits), so it is stored as a string, not an enum.
const DefaultPriority = "medium"

// ClinicalEvent is an inbound fact about a patient, consumed from the message
// bus. Its payload shape varies by event type. Events are never persisted
// directly; they exist for one processing cycle.
type ClinicalEvent struct {
	PatientID       string                 `json:"patientId"`
	EventType       string                 `json:"eventType"`
	SourceServiceID string                 `json:"sourceServiceId"`
	EventData       map[string]interface{} `json:"eventData"`
	Timestamp       *time.Time             `json:"timestamp,omitempty"`
}

// Recommendation maps to the ai_recommendation table. Records are insert-only:
// no update or delete path exists.
type Recommendation struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PatientID       string    `db:"patient_id" json:"patient_id"`
	SourceType      string    `db:"source_type" json:"source_type"`
	SourceID        string    `db:"source_id" json:"source_id"`
	Category        string    `db:"category" json:"category"`
	Title           string    `db:"title" json:"title"`
	Summary         string    `db:"summary" json:"summary"`
	Recommendations []string  `db:"recommendations" json:"recommendations"`
	SafetyNotes     []string  `db:"safety_notes" json:"safety_notes"`
	Priority        string    `db:"priority" json:"priority"`
	Analysis        *Analysis `db:"analysis" json:"analysis,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Analysis is the structured clinical assessment embedded in a Recommendation.
// RecommendedCareLevel is an open vocabulary (primary/urgent/emergency/
// telehealth plus free text). A ConfidenceScore of exactly 0.0 marks a
// fabricated fallback record, not a low-confidence real assessment.
type Analysis struct {
	ClinicalSummary         string   `json:"clinical_summary"`
	SuggestedDiagnosisCodes []string `json:"suggested_diagnosis_codes"`
	SuggestedProcedureCodes []string `json:"suggested_procedure_codes"`
	TriagePriority          string   `json:"triage_priority"`
	RecommendedCareLevel    string   `json:"recommended_care_level"`
	ConfidenceScore         float64  `json:"confidence_score"`
}

// Normalize enforces the record invariants: category and priority are never
// empty, and the two list fields are never nil.
func (r *Recommendation) Normalize() {
	if r.Priority == "" {
		r.Priority = DefaultPriority
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	if r.SafetyNotes == nil {
		r.SafetyNotes = []string{}
	}
}
