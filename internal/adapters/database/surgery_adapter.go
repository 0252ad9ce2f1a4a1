package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
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

// SurgeryAdapter implements the SurgeryRepository interface, including the
// plan synchronization contract.
type SurgeryAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSurgeryAdapter creates a new surgery adapter
func NewSurgeryAdapter(client *postgres.Client) repositories.SurgeryRepository {
	return &SurgeryAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a surgery together with its empty diet plan. The diet
// plan row exists from the start so that plan syncs always have a parent
// to attach children to.
func (a *SurgeryAdapter) Create(ctx context.Context, surgery *entities.Surgery) error {
	if surgery.ID == "" {
		surgery.ID = uuid.New().String()
	}
	now := time.Now()
	if surgery.CreatedAt.IsZero() {
		surgery.CreatedAt = now
	}
	surgery.UpdatedAt = now

	medications, err := json.Marshal(surgery.Medications)
	if err != nil {
		return apperrors.NewInternalError("failed to encode medications", err)
	}

	surgeryQuery, surgeryArgs, err := a.db.Insert("surgeries").Rows(goqu.Record{
		"id":           surgery.ID,
		"hospital_id":  surgery.HospitalID,
		"name":         surgery.Name,
		"description":  surgery.Description,
		"surgery_type": surgery.SurgeryType,
		"risk_level":   surgery.RiskLevel,
		"medications":  string(medications),
		"created_at":   surgery.CreatedAt,
		"updated_at":   surgery.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build surgery insert", err)
	}

	planQuery, planArgs, err := a.db.Insert("diet_plans").Rows(goqu.Record{
		"id":            uuid.New().String(),
		"surgery_id":    surgery.ID,
		"summary":       "",
		"diet_type":     "",
		"goal_calories": 0,
		"notes":         "",
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build diet plan insert", err)
	}

	err = a.client.WithinTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, surgeryQuery, surgeryArgs...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, planQuery, planArgs...); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return apperrors.NewInternalError("failed to create surgery", err)
	}

	return nil
}

// GetByID retrieves a surgery with its diet plan and child collections in
// stored order.
func (a *SurgeryAdapter) GetByID(ctx context.Context, id string) (*entities.Surgery, error) {
	query, args, err := a.db.Select(
		"id", "hospital_id", "name", "description", "surgery_type",
		"risk_level", "medications", "created_at", "updated_at",
	).From("surgeries").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build surgery query", err)
	}

	surgery := &entities.Surgery{}
	var medications []byte
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&surgery.ID,
		&surgery.HospitalID,
		&surgery.Name,
		&surgery.Description,
		&surgery.SurgeryType,
		&surgery.RiskLevel,
		&medications,
		&surgery.CreatedAt,
		&surgery.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("surgery with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get surgery", err)
	}

	if len(medications) > 0 {
		if err := json.Unmarshal(medications, &surgery.Medications); err != nil {
			return nil, apperrors.NewInternalError("failed to decode medications", err)
		}
	}

	dietPlan, err := a.getDietPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	surgery.DietPlan = dietPlan

	activities, err := a.getActivities(ctx, id)
	if err != nil {
		return nil, err
	}
	surgery.Activities = activities

	return surgery, nil
}

func (a *SurgeryAdapter) getDietPlan(ctx context.Context, surgeryID string) (*entities.DietPlan, error) {
	query, args, err := a.db.Select(
		"id", "surgery_id", "summary", "diet_type", "goal_calories", "notes",
	).From("diet_plans").
		Where(goqu.Ex{"surgery_id": surgeryID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build diet plan query", err)
	}

	plan := &entities.DietPlan{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&plan.ID,
		&plan.SurgeryID,
		&plan.Summary,
		&plan.DietType,
		&plan.GoalCalories,
		&plan.Notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get diet plan", err)
	}

	plan.AllowedFoods, err = a.getFoodItems(ctx, plan.ID, entities.FoodCategoryAllowed)
	if err != nil {
		return nil, err
	}
	plan.ForbiddenFoods, err = a.getFoodItems(ctx, plan.ID, entities.FoodCategoryForbidden)
	if err != nil {
		return nil, err
	}
	plan.Meals, err = a.getMeals(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	return plan, nil
}

func (a *SurgeryAdapter) getFoodItems(ctx context.Context, dietPlanID string, category entities.FoodCategory) ([]entities.FoodItem, error) {
	query, args, err := a.db.Select(
		"id", "diet_plan_id", "category", "name", "description", "position",
	).From("diet_plan_food_items").
		Where(goqu.Ex{"diet_plan_id": dietPlanID, "category": category}).
		Order(goqu.I("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build food items query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list food items", err)
	}
	defer rows.Close()

	items := []entities.FoodItem{}
	for rows.Next() {
		var item entities.FoodItem
		var description sql.NullString
		if err := rows.Scan(&item.ID, &item.DietPlanID, &item.Category, &item.Name, &description, &item.Position); err != nil {
			return nil, apperrors.NewInternalError("failed to scan food item", err)
		}
		item.Description = description.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate food items", err)
	}

	return items, nil
}

func (a *SurgeryAdapter) getMeals(ctx context.Context, dietPlanID string) ([]entities.MealPlanEntry, error) {
	query, args, err := a.db.Select(
		"id", "diet_plan_id", "meal_slot", "description", "position",
	).From("diet_plan_meals").
		Where(goqu.Ex{"diet_plan_id": dietPlanID}).
		Order(goqu.I("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build meals query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list meals", err)
	}
	defer rows.Close()

	meals := []entities.MealPlanEntry{}
	for rows.Next() {
		var meal entities.MealPlanEntry
		if err := rows.Scan(&meal.ID, &meal.DietPlanID, &meal.MealSlot, &meal.Description, &meal.Position); err != nil {
			return nil, apperrors.NewInternalError("failed to scan meal", err)
		}
		meals = append(meals, meal)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate meals", err)
	}

	return meals, nil
}

func (a *SurgeryAdapter) getActivities(ctx context.Context, surgeryID string) ([]entities.ActivityRecommendation, error) {
	query, args, err := a.db.Select(
		"id", "surgery_id", "category", "name", "description", "position",
	).From("activity_recommendations").
		Where(goqu.Ex{"surgery_id": surgeryID}).
		Order(goqu.I("category").Asc(), goqu.I("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build activities query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list activities", err)
	}
	defer rows.Close()

	activities := []entities.ActivityRecommendation{}
	for rows.Next() {
		var act entities.ActivityRecommendation
		var description sql.NullString
		if err := rows.Scan(&act.ID, &act.SurgeryID, &act.Category, &act.Name, &description, &act.Position); err != nil {
			return nil, apperrors.NewInternalError("failed to scan activity", err)
		}
		act.Description = description.String
		activities = append(activities, act)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate activities", err)
	}

	return activities, nil
}

// ReplacePlans swaps the surgery's four child collections and diet plan
// scalars for the payload's content, all inside one transaction. The
// payload order becomes the stored position. Any failure rolls the whole
// replace back, leaving the previous plans untouched.
func (a *SurgeryAdapter) ReplacePlans(ctx context.Context, surgeryID string, payload *entities.SurgeryPlanPayload) (*entities.Surgery, error) {
	if payload == nil {
		return nil, apperrors.NewValidationError("plan payload is required")
	}

	err := a.client.WithinTransaction(ctx, func(tx *sql.Tx) error {
		// Row lock on the surgery pins concurrent syncs for the same
		// surgery to the storage layer's isolation.
		var lockedID string
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM surgeries WHERE id = $1 FOR UPDATE", surgeryID,
		).Scan(&lockedID)
		if err == sql.ErrNoRows {
			return apperrors.NewNotFoundError(fmt.Sprintf("surgery with id %s not found", surgeryID))
		}
		if err != nil {
			return apperrors.NewInternalError("failed to lock surgery", err)
		}

		var dietPlanID string
		err = tx.QueryRowContext(ctx,
			"SELECT id FROM diet_plans WHERE surgery_id = $1", surgeryID,
		).Scan(&dietPlanID)
		if err == sql.ErrNoRows {
			dietPlanID = uuid.New().String()
			_, err = tx.ExecContext(ctx,
				"INSERT INTO diet_plans (id, surgery_id, summary, diet_type, goal_calories, notes) VALUES ($1, $2, $3, $4, $5, $6)",
				dietPlanID, surgeryID, payload.Summary, payload.DietType, payload.GoalCalories, payload.Notes,
			)
			if err != nil {
				return apperrors.NewInternalError("failed to create diet plan", err)
			}
		} else if err != nil {
			return apperrors.NewInternalError("failed to resolve diet plan", err)
		} else {
			_, err = tx.ExecContext(ctx,
				"UPDATE diet_plans SET summary = $1, diet_type = $2, goal_calories = $3, notes = $4 WHERE id = $5",
				payload.Summary, payload.DietType, payload.GoalCalories, payload.Notes, dietPlanID,
			)
			if err != nil {
				return apperrors.NewInternalError("failed to update diet plan", err)
			}
		}

		// Full replace: clear all four collections before inserting the
		// desired state. An empty payload collection simply inserts
		// nothing back.
		if _, err := tx.ExecContext(ctx, "DELETE FROM diet_plan_food_items WHERE diet_plan_id = $1", dietPlanID); err != nil {
			return apperrors.NewInternalError("failed to clear food items", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM diet_plan_meals WHERE diet_plan_id = $1", dietPlanID); err != nil {
			return apperrors.NewInternalError("failed to clear meals", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM activity_recommendations WHERE surgery_id = $1", surgeryID); err != nil {
			return apperrors.NewInternalError("failed to clear activities", err)
		}

		if err := a.insertFoodItems(ctx, tx, dietPlanID, entities.FoodCategoryAllowed, payload.AllowedFoods); err != nil {
			return err
		}
		if err := a.insertFoodItems(ctx, tx, dietPlanID, entities.FoodCategoryForbidden, payload.ForbiddenFoods); err != nil {
			return err
		}
		if err := a.insertMeals(ctx, tx, dietPlanID, payload.Meals); err != nil {
			return err
		}
		if err := a.insertActivities(ctx, tx, surgeryID, payload.Activities); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "UPDATE surgeries SET updated_at = $1 WHERE id = $2", time.Now(), surgeryID); err != nil {
			return apperrors.NewInternalError("failed to touch surgery", err)
		}

		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperrors.NewInternalError("failed to replace surgery plans", err)
	}

	return a.GetByID(ctx, surgeryID)
}

func (a *SurgeryAdapter) insertFoodItems(ctx context.Context, tx *sql.Tx, dietPlanID string, category entities.FoodCategory, items []entities.FoodItemPayload) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO diet_plan_food_items (id, diet_plan_id, category, name, description, position) VALUES ($1, $2, $3, $4, $5, $6)",
			uuid.New().String(), dietPlanID, category, item.Name, item.Description, i,
		)
		if err != nil {
			return apperrors.NewInternalError(fmt.Sprintf("failed to insert %s food item", category), err)
		}
	}
	return nil
}

func (a *SurgeryAdapter) insertMeals(ctx context.Context, tx *sql.Tx, dietPlanID string, meals []entities.MealEntryPayload) error {
	for i, meal := range meals {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO diet_plan_meals (id, diet_plan_id, meal_slot, description, position) VALUES ($1, $2, $3, $4, $5)",
			uuid.New().String(), dietPlanID, meal.MealSlot, meal.Description, i,
		)
		if err != nil {
			return apperrors.NewInternalError("failed to insert meal entry", err)
		}
	}
	return nil
}

func (a *SurgeryAdapter) insertActivities(ctx context.Context, tx *sql.Tx, surgeryID string, activities []entities.ActivityPayload) error {
	for i, act := range activities {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO activity_recommendations (id, surgery_id, category, name, description, position) VALUES ($1, $2, $3, $4, $5, $6)",
			uuid.New().String(), surgeryID, act.Category, act.Name, act.Description, i,
		)
		if err != nil {
			return apperrors.NewInternalError("failed to insert activity", err)
		}
	}
	return nil
}

// Delete removes a surgery; child rows cascade through foreign keys.
func (a *SurgeryAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete("surgeries").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete surgery", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("surgery with id %s not found", id))
	}

	return nil
}
