package recommendation

import (
	"encoding/json"
	"strings"
	"time"
)

// Field defaults applied when model output is missing or malformed.
const (
	defaultTitle          = "AI Assessment"
	defaultConfidence     = 0.5
	summaryTruncateLength = 200
)

var synthesizedRecommendations = []string{
	"Review provided information",
	"Consider clinical assessment",
}

var synthesizedSafetyNotes = []string{
	"Follow institutional protocols",
}

// Interpret converts raw model text into a Recommendation. It never fails:
// text without a JSON object falls back to a synthesized minimal object, and
// text whose extracted object does not parse falls back to the default
// recommendation. Either way the caller gets a valid record.
func Interpret(event ClinicalEvent, rawText, category string) *Recommendation {
	payload := extractJSON(rawText)

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return DefaultRecommendation(event, category)
	}

	now := time.Now().UTC()
	rec := &Recommendation{
		PatientID:       event.PatientID,
		SourceType:      event.EventType,
		SourceID:        event.SourceServiceID,
		Category:        category,
		Title:           stringField(fields, "title", defaultTitle),
		Summary:         stringField(fields, "clinicalSummary", truncate(rawText, summaryTruncateLength)),
		Priority:        stringField(fields, "priority", DefaultPriority),
		Recommendations: listField(fields, "recommendations"),
		SafetyNotes:     listField(fields, "safetyNotes"),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if sub, ok := fields["analysis"].(map[string]interface{}); ok {
		rec.Analysis = &Analysis{
			ClinicalSummary:         stringField(sub, "clinicalSummary", ""),
			SuggestedDiagnosisCodes: listField(sub, "suggestedDiagnosisCodes"),
			SuggestedProcedureCodes: listField(sub, "suggestedProcedureCodes"),
			TriagePriority:          stringField(sub, "triagePriority", ""),
			RecommendedCareLevel:    stringField(sub, "recommendedCareLevel", ""),
			ConfidenceScore:         floatField(sub, "confidenceScore", defaultConfidence),
		}
	}

	rec.Normalize()
	return rec
}

// extractJSON pulls the first top-level-looking JSON object out of the model
// text: everything from the first '{' to the last '}'. When no such pair
// exists the raw text is wrapped in a synthesized minimal object so the
// pipeline still produces a usable record.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	if start != -1 && end != -1 && end > start {
		return raw[start : end+1]
	}

	synthesized := map[string]interface{}{
		"clinicalSummary": strings.ReplaceAll(truncate(raw, summaryTruncateLength), `"`, "'"),
		"recommendations": synthesizedRecommendations,
		"safetyNotes":     synthesizedSafetyNotes,
		"priority":        DefaultPriority,
	}
	b, _ := json.Marshal(synthesized)
	return string(b)
}

// truncate keeps the first n characters of s, never splitting a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Tolerant field accessors: a missing key or a value of the wrong shape yields
// the default, never an error.

func stringField(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func listField(m map[string]interface{}, key string) []string {
	out := []string{}
	items, ok := m[key].([]interface{})
	if !ok {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// floatField reads a confidence-style score. Values outside [0, 1] are as
// untrustworthy as a missing field and get the default too.
func floatField(m map[string]interface{}, key string, def float64) float64 {
	if v, ok := m[key].(float64); ok && v >= 0 && v <= 1 {
		return v
	}
	return def
}
