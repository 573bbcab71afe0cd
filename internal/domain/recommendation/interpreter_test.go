package recommendation

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func testEvent() ClinicalEvent {
	return ClinicalEvent{
		PatientID:       "patient-1",
		EventType:       "patient.note.created",
		SourceServiceID: "note-42",
		EventData:       map[string]interface{}{"content": "persistent cough"},
	}
}

func TestInterpret_WellFormedJSON(t *testing.T) {
	raw := `{
		"title": "Respiratory Assessment",
		"clinicalSummary": "Likely viral bronchitis",
		"recommendations": ["Rest", "Fluids"],
		"safetyNotes": ["Return if fever persists"],
		"priority": "high",
		"analysis": {
			"clinicalSummary": "Detailed assessment",
			"suggestedDiagnosisCodes": ["J20.9"],
			"suggestedProcedureCodes": [],
			"triagePriority": "ESI 4",
			"recommendedCareLevel": "primary",
			"confidenceScore": 0.85
		}
	}`

	rec := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	if rec.Title != "Respiratory Assessment" {
		t.Errorf("expected title from model output, got %q", rec.Title)
	}
	if rec.Summary != "Likely viral bronchitis" {
		t.Errorf("expected clinicalSummary as summary, got %q", rec.Summary)
	}
	if rec.Priority != "high" {
		t.Errorf("expected priority high, got %q", rec.Priority)
	}
	if len(rec.Recommendations) != 2 || rec.Recommendations[0] != "Rest" {
		t.Errorf("unexpected recommendations: %v", rec.Recommendations)
	}
	if rec.Analysis == nil {
		t.Fatal("expected analysis to be populated")
	}
	if rec.Analysis.ConfidenceScore != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", rec.Analysis.ConfidenceScore)
	}
	if rec.Analysis.SuggestedDiagnosisCodes[0] != "J20.9" {
		t.Errorf("unexpected diagnosis codes: %v", rec.Analysis.SuggestedDiagnosisCodes)
	}
	if rec.PatientID != "patient-1" || rec.SourceType != "patient.note.created" || rec.SourceID != "note-42" {
		t.Errorf("event identity not carried over: %+v", rec)
	}
}

func TestInterpret_JSONEmbeddedInProse(t *testing.T) {
	raw := "Here is my assessment:\n```json\n" +
		`{"clinicalSummary": "Stable", "priority": "low"}` +
		"\n```\nLet me know if you need more detail."

	rec := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	if rec.Summary != "Stable" {
		t.Errorf("expected JSON extracted from surrounding prose, got summary %q", rec.Summary)
	}
	if rec.Priority != "low" {
		t.Errorf("expected priority low, got %q", rec.Priority)
	}
}

func TestInterpret_PlainTextSynthesizesRecord(t *testing.T) {
	raw := `The patient appears stable. Recommend "watchful waiting" and routine follow-up.`

	rec := Interpret(testEvent(), raw, CategoryHealthRecommendation)

	// Plain text is absorbed into a synthesized record, not the default one.
	if rec.Title != defaultTitle {
		t.Errorf("expected synthesized title %q, got %q", defaultTitle, rec.Title)
	}
	if !strings.Contains(rec.Summary, "watchful waiting") {
		t.Errorf("expected raw text preserved in summary, got %q", rec.Summary)
	}
	if strings.Contains(rec.Summary, `"`) {
		t.Errorf("expected double quotes replaced, got %q", rec.Summary)
	}
	if rec.Priority != DefaultPriority {
		t.Errorf("expected default priority, got %q", rec.Priority)
	}
	if len(rec.Recommendations) != 2 {
		t.Errorf("expected synthesized recommendations, got %v", rec.Recommendations)
	}
	if len(rec.SafetyNotes) != 1 {
		t.Errorf("expected synthesized safety notes, got %v", rec.SafetyNotes)
	}
	if rec.Analysis != nil {
		t.Error("synthesized record should carry no analysis block")
	}
}

func TestInterpret_MalformedJSONFallsBackToDefault(t *testing.T) {
	raw := `{"clinicalSummary": "unterminated`

	rec := Interpret(testEvent(), raw, CategoryTriageAssessment)

	if rec.Title != "Default Assessment" {
		t.Errorf("expected default record, got title %q", rec.Title)
	}
	if rec.Analysis == nil || rec.Analysis.ConfidenceScore != 0.0 {
		t.Errorf("default record must carry confidence 0.0, got %+v", rec.Analysis)
	}
	if rec.Analysis.RecommendedCareLevel != "primary" {
		t.Errorf("expected care level primary, got %q", rec.Analysis.RecommendedCareLevel)
	}
	if rec.Category != CategoryTriageAssessment {
		t.Errorf("default record must keep requested category, got %q", rec.Category)
	}
}

func TestInterpret_MissingFieldsGetDefaults(t *testing.T) {
	raw := `{"recommendations": "not-a-list", "analysis": {"triagePriority": "ESI 3"}}`

	rec := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	if rec.Title != defaultTitle {
		t.Errorf("expected default title, got %q", rec.Title)
	}
	if rec.Priority != DefaultPriority {
		t.Errorf("expected default priority, got %q", rec.Priority)
	}
	if rec.Recommendations == nil || len(rec.Recommendations) != 0 {
		t.Errorf("wrong-typed list must become empty, got %v", rec.Recommendations)
	}
	if rec.SafetyNotes == nil {
		t.Error("safety notes must never be nil")
	}
	if rec.Analysis == nil {
		t.Fatal("expected analysis block")
	}
	if rec.Analysis.ConfidenceScore != defaultConfidence {
		t.Errorf("expected default confidence %v, got %v", defaultConfidence, rec.Analysis.ConfidenceScore)
	}
	if rec.Analysis.TriagePriority != "ESI 3" {
		t.Errorf("expected triage priority carried over, got %q", rec.Analysis.TriagePriority)
	}
}

func TestInterpret_Idempotent(t *testing.T) {
	raw := `{
		"title": "Respiratory Assessment",
		"clinicalSummary": "Likely viral bronchitis",
		"recommendations": ["Rest", "Fluids"],
		"safetyNotes": ["Return if fever persists"],
		"priority": "high",
		"analysis": {"clinicalSummary": "Detailed", "confidenceScore": 0.85}
	}`

	first := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)
	second := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	// Only the timestamps may differ between runs.
	second.CreatedAt = first.CreatedAt
	second.UpdatedAt = first.UpdatedAt
	if !reflect.DeepEqual(first, second) {
		t.Errorf("interpreting identical input twice diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestInterpret_LongPlainTextTruncated(t *testing.T) {
	raw := strings.Repeat("a", summaryTruncateLength+50)

	rec := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	if len(rec.Summary) != summaryTruncateLength {
		t.Errorf("expected summary truncated to %d, got %d", summaryTruncateLength, len(rec.Summary))
	}
}

func TestTruncate_MultiByteBoundary(t *testing.T) {
	s := strings.Repeat("ü", summaryTruncateLength+10)

	got := truncate(s, summaryTruncateLength)

	if !utf8.ValidString(got) {
		t.Fatal("truncation produced invalid UTF-8")
	}
	if n := len([]rune(got)); n != summaryTruncateLength {
		t.Errorf("expected %d characters, got %d", summaryTruncateLength, n)
	}
}

func TestInterpret_OutOfRangeConfidenceDefaulted(t *testing.T) {
	raw := `{"analysis": {"confidenceScore": 3.7}}`

	rec := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	if rec.Analysis.ConfidenceScore != defaultConfidence {
		t.Errorf("out-of-range confidence must default, got %v", rec.Analysis.ConfidenceScore)
	}
}

func TestInterpret_NonStandardPriorityPreserved(t *testing.T) {
	raw := `{"priority": "urgent-review"}`

	rec := Interpret(testEvent(), raw, CategoryClinicalNoteSummary)

	if rec.Priority != "urgent-review" {
		t.Errorf("open-vocabulary priority must be preserved, got %q", rec.Priority)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"wrapped in prose", `prefix {"a":1} suffix`, `{"a":1}`},
		{"nested braces", `x {"a":{"b":2}} y`, `{"a":{"b":2}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSON(tt.raw); got != tt.want {
				t.Errorf("extractJSON(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
