package entities

import (
	"time"
)

// CarePlanSource tags where a stored care plan came from
type CarePlanSource string

const (
	CarePlanSourceModel    CarePlanSource = "model"
	CarePlanSourceFallback CarePlanSource = "fallback"
)

// CarePlanResult is the validated outcome of one generation attempt.
// All four fields are non-empty after a successful parse; a result that
// fails validation is never persisted.
type CarePlanResult struct {
	CarePlan   string   `json:"care_plan"`
	DietPlan   string   `json:"diet_plan"`
	Activities []string `json:"activities"`
	AIInsights string   `json:"ai_insights"`
}

// PatientCarePlan is the cached care plan, one-to-one with a patient.
// It is overwritten in place on regeneration and removed with its patient.
type PatientCarePlan struct {
	ID          string         `json:"id" db:"id"`
	PatientID   string         `json:"patient_id" db:"patient_id"`
	CarePlan    string         `json:"care_plan" db:"care_plan"`
	DietPlan    string         `json:"diet_plan" db:"diet_plan"`
	Activities  []string       `json:"activities" db:"activities"`
	AIInsights  string         `json:"ai_insights" db:"ai_insights"`
	Source      CarePlanSource `json:"source" db:"source"`
	GeneratedAt time.Time      `json:"generated_at" db:"generated_at"`
}

// PromptRequest is the structured request handed to the model provider.
type PromptRequest struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}
