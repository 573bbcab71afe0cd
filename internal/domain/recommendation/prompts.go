package recommendation

import (
	"encoding/json"
	"fmt"
)

// Prompt templates per recommendation category. Each one embeds a strict
// output-shape directive so the model's reply can be decoded by Interpret.
// Categories without a dedicated template (health-recommendation,
// risk-assessment) reuse the clinical template.

const clinicalNotePrompt = `As a clinical AI assistant, analyze the following patient data and provide a structured assessment:

Patient ID: %s
Event Type: %s
Clinical Data: %s

Please provide a JSON response with the following structure:
{
  "clinicalSummary": "Brief clinical summary",
  "recommendations": ["recommendation1", "recommendation2"],
  "safetyNotes": ["safety note1", "safety note2"],
  "priority": "low|medium|high|critical",
  "analysis": {
    "clinicalSummary": "Detailed clinical assessment",
    "suggestedDiagnosisCodes": ["ICD10 codes"],
    "suggestedProcedureCodes": ["CPT codes"],
    "triagePriority": "Priority level",
    "recommendedCareLevel": "primary|urgent|emergency|telehealth",
    "confidenceScore": 0.85
  }
}

Focus on patient safety and provide evidence-based recommendations.`

const triagePrompt = `As a triage AI assistant, assess the following patient presentation and provide triage recommendations:

Patient ID: %s
Presentation Data: %s

Please provide a JSON response focusing on triage priority and care level recommendations:
{
  "triagePriority": "ESI Level 1-5 or Priority description",
  "recommendedCareLevel": "emergency|urgent|primary|telehealth",
  "priority": "low|medium|high|critical",
  "recommendations": ["immediate actions", "follow-up care"],
  "safetyNotes": ["red flags", "contraindications"],
  "analysis": {
    "clinicalSummary": "Triage assessment",
    "triagePriority": "Priority level",
    "recommendedCareLevel": "primary|urgent|emergency|telehealth",
    "confidenceScore": 0.90
  }
}

Consider severity, urgency, and appropriate care setting.`

const codingPrompt = `As a medical coding AI assistant, analyze the clinical documentation and suggest appropriate codes:

Patient ID: %s
Clinical Documentation: %s

Please provide a JSON response with coding suggestions:
{
  "clinicalSummary": "Documentation summary",
  "recommendations": ["coding guidance", "documentation suggestions"],
  "priority": "medium",
  "analysis": {
    "suggestedDiagnosisCodes": ["ICD-10 codes with descriptions"],
    "suggestedProcedureCodes": ["CPT codes with descriptions"],
    "confidenceScore": 0.80
  }
}

Ensure codes are current and accurately reflect the documented care.`

// BuildPrompt renders a category-specific instruction for the event. It is a
// pure function: no I/O, and deterministic for identical input (event data is
// rendered as JSON, which marshals map keys in sorted order).
func BuildPrompt(event ClinicalEvent, category string) string {
	data := renderEventData(event.EventData)

	switch category {
	case CategoryTriageAssessment:
		return fmt.Sprintf(triagePrompt, event.PatientID, data)
	case CategoryCodingSuggestion:
		return fmt.Sprintf(codingPrompt, event.PatientID, data)
	default:
		return fmt.Sprintf(clinicalNotePrompt, event.PatientID, event.EventType, data)
	}
}

func renderEventData(data map[string]interface{}) string {
	if len(data) == 0 {
		return "{}"
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
