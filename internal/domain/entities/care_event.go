package entities

import (
	"time"
)

// CareEventType identifies the kind of domain event
type CareEventType string

const (
	CareEventCarePlanGenerated  CareEventType = "care_plan.generated"
	CareEventSurgeryPlansSynced CareEventType = "surgery.plans_synced"
	CareEventSurgeryDeleted     CareEventType = "surgery.deleted"
	CareEventPatientDeleted     CareEventType = "patient.deleted"
)

// CareEvent is published on the event bus after a successful mutation.
// Subscribers use it for cache warming and downstream notifications; the
// primary write has already committed when the event goes out.
type CareEvent struct {
	ID         string        `json:"id"`
	Type       CareEventType `json:"type"`
	EntityID   string        `json:"entity_id"`
	OccurredAt time.Time     `json:"occurred_at"`
}
