package services

import (
	"encoding/json"
	"fmt"

	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
)

const carePlanSystemPrompt = `You are a medical assistant that writes detailed, empathetic care guidance for post-surgical patients.
Keep each point concise and clinically sound. Do not include a diagnosis.
Respond ONLY with JSON in this shape:
{
  "care_plan": "recovery guidance as short paragraphs",
  "diet_plan": "dietary guidance as short paragraphs",
  "activities": ["recommended activity", "..."],
  "ai_insights": "monitoring priorities and predicted recovery notes"
}
All four fields are required and must be non-empty.`

// carePlanStrictSuffix is appended when the first response could not be
// parsed; the re-issued request leaves no room for prose or markdown.
const carePlanStrictSuffix = `
Your previous answer could not be parsed. Return ONLY the raw JSON object described above.
No markdown fences, no commentary, no additional keys.`

// buildCarePlanPrompt builds the generation request from a profile
// snapshot. Marshalling the profile struct keeps field order fixed, so the
// same profile always produces the same prompt.
func buildCarePlanPrompt(profile *entities.PatientProfile, strict bool) (*entities.PromptRequest, error) {
	payload, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patient profile: %w", err)
	}

	system := carePlanSystemPrompt
	if strict {
		system += carePlanStrictSuffix
	}

	return &entities.PromptRequest{
		System:      system,
		User:        fmt.Sprintf("Create a structured care plan JSON for this patient:\n%s", payload),
		MaxTokens:   800,
		Temperature: 0.7,
	}, nil
}
