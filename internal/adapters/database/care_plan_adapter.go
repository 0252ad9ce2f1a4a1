package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Patientcareplandesign/backend/pkg/errors"
)

// CarePlanAdapter implements CarePlanRepository.
type CarePlanAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCarePlanAdapter creates a new adapter.
func NewCarePlanAdapter(client *postgres.Client) repositories.CarePlanRepository {
	return &CarePlanAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByPatientID retrieves the cached care plan for a patient.
func (a *CarePlanAdapter) GetByPatientID(ctx context.Context, patientID string) (*entities.PatientCarePlan, error) {
	query, args, err := a.db.Select(
		"id",
		"patient_id",
		"care_plan",
		"diet_plan",
		"activities",
		"ai_insights",
		"source",
		"generated_at",
	).
		From("patient_care_plans").
		Where(goqu.Ex{"patient_id": patientID}).
		ToSQL()

	if err != nil {
		return nil, apperrors.NewInternalError("failed to build care plan query", err)
	}

	var activitiesRaw []byte
	plan := &entities.PatientCarePlan{}

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&plan.ID,
		&plan.PatientID,
		&plan.CarePlan,
		&plan.DietPlan,
		&activitiesRaw,
		&plan.AIInsights,
		&plan.Source,
		&plan.GeneratedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("care plan for patient %s not found", patientID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get care plan", err)
	}

	if len(activitiesRaw) > 0 {
		_ = json.Unmarshal(activitiesRaw, &plan.Activities)
	}

	return plan, nil
}

// Upsert inserts the care plan or overwrites the existing row in place.
// The ON CONFLICT clause keeps exactly one row per patient and updates all
// four result fields plus generated_at in a single statement.
func (a *CarePlanAdapter) Upsert(ctx context.Context, plan *entities.PatientCarePlan) error {
	if plan == nil {
		return apperrors.NewValidationError("care plan is required")
	}
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.GeneratedAt.IsZero() {
		plan.GeneratedAt = time.Now()
	}

	activitiesBytes, _ := json.Marshal(plan.Activities)

	query := `
		INSERT INTO patient_care_plans
			(id, patient_id, care_plan, diet_plan, activities, ai_insights, source, generated_at)
		VALUES
			($1, $2, $3, $4, $5::jsonb, $6, $7, $8)
		ON CONFLICT (patient_id)
		DO UPDATE SET
			care_plan = EXCLUDED.care_plan,
			diet_plan = EXCLUDED.diet_plan,
			activities = EXCLUDED.activities,
			ai_insights = EXCLUDED.ai_insights,
			source = EXCLUDED.source,
			generated_at = EXCLUDED.generated_at
	`

	_, err := a.client.DB().ExecContext(
		ctx,
		query,
		plan.ID,
		plan.PatientID,
		plan.CarePlan,
		plan.DietPlan,
		string(activitiesBytes),
		plan.AIInsights,
		plan.Source,
		plan.GeneratedAt,
	)
	if err != nil {
		return apperrors.NewInternalError("failed to upsert care plan", err)
	}

	return nil
}

// DeleteByPatientID removes the patient's care plan. Deleting a plan
// that does not exist is not an error.
func (a *CarePlanAdapter) DeleteByPatientID(ctx context.Context, patientID string) error {
	query, args, err := a.db.Delete("patient_care_plans").
		Where(goqu.Ex{"patient_id": patientID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build care plan delete", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to delete care plan", err)
	}

	return nil
}
