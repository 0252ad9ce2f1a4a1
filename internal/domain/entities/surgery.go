package entities

import (
	"fmt"
	"strings"
	"time"
)

// FoodCategory distinguishes the two food collections of a diet plan
type FoodCategory string

const (
	FoodCategoryAllowed   FoodCategory = "allowed"
	FoodCategoryForbidden FoodCategory = "forbidden"
)

// ActivityCategory tags an activity recommendation
type ActivityCategory string

const (
	ActivityCategoryPreOp   ActivityCategory = "pre-op"
	ActivityCategoryPostOp  ActivityCategory = "post-op"
	ActivityCategoryGeneral ActivityCategory = "general"
)

// Surgery is a reusable template of diet, activity and medication
// recommendations, identified by hospital and name. Medications are
// free-text entries ("name (dosage) - frequency") set with the template
// and fed into the care plan prompt for assigned patients.
type Surgery struct {
	ID          string    `json:"id" db:"id"`
	HospitalID  string    `json:"hospital_id" db:"hospital_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	SurgeryType string    `json:"surgery_type" db:"surgery_type"`
	RiskLevel   string    `json:"risk_level" db:"risk_level"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	DietPlan    *DietPlan                `json:"diet_plan,omitempty"`
	Activities  []ActivityRecommendation `json:"activities,omitempty"`
	Medications []string                 `json:"medications,omitempty"`
}

// DietPlan belongs to exactly one surgery and owns its three child
// collections.
type DietPlan struct {
	ID           string `json:"id" db:"id"`
	SurgeryID    string `json:"surgery_id" db:"surgery_id"`
	Summary      string `json:"summary" db:"summary"`
	DietType     string `json:"diet_type" db:"diet_type"`
	GoalCalories int    `json:"goal_calories" db:"goal_calories"`
	Notes        string `json:"notes" db:"notes"`

	AllowedFoods   []FoodItem      `json:"allowed_foods"`
	ForbiddenFoods []FoodItem      `json:"forbidden_foods"`
	Meals          []MealPlanEntry `json:"meal_plan"`
}

// FoodItem is a single allowed or forbidden food, ordered within its
// category by Position.
type FoodItem struct {
	ID          string       `json:"id" db:"id"`
	DietPlanID  string       `json:"-" db:"diet_plan_id"`
	Category    FoodCategory `json:"-" db:"category"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description,omitempty" db:"description"`
	Position    int          `json:"position" db:"position"`
}

// MealPlanEntry is one meal slot of the diet plan
type MealPlanEntry struct {
	ID          string `json:"id" db:"id"`
	DietPlanID  string `json:"-" db:"diet_plan_id"`
	MealSlot    string `json:"meal_slot" db:"meal_slot"`
	Description string `json:"description" db:"description"`
	Position    int    `json:"position" db:"position"`
}

// ActivityRecommendation is one categorized activity owned by a surgery
type ActivityRecommendation struct {
	ID          string           `json:"id" db:"id"`
	SurgeryID   string           `json:"-" db:"surgery_id"`
	Category    ActivityCategory `json:"category" db:"category"`
	Name        string           `json:"name" db:"name"`
	Description string           `json:"description,omitempty" db:"description"`
	Position    int              `json:"position" db:"position"`
}

// SurgeryPlanPayload carries the full desired state of a surgery's plans.
// Every sync replaces all four child collections with exactly these items,
// in the order given here.
type SurgeryPlanPayload struct {
	Summary      string `json:"summary"`
	DietType     string `json:"diet_type"`
	GoalCalories int    `json:"goal_calories"`
	Notes        string `json:"notes"`

	AllowedFoods   []FoodItemPayload  `json:"allowed_foods"`
	ForbiddenFoods []FoodItemPayload  `json:"forbidden_foods"`
	Meals          []MealEntryPayload `json:"meal_plan"`
	Activities     []ActivityPayload  `json:"activities"`
}

// FoodItemPayload is one incoming food item
type FoodItemPayload struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// MealEntryPayload is one incoming meal entry
type MealEntryPayload struct {
	MealSlot    string `json:"meal_slot"`
	Description string `json:"description"`
}

// ActivityPayload is one incoming activity recommendation
type ActivityPayload struct {
	Category    ActivityCategory `json:"category"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
}

// Validate checks every item in every collection and returns one problem
// string per offending item. An empty collection is valid and means
// "replace with nothing".
func (p *SurgeryPlanPayload) Validate() []string {
	var problems []string

	for i, item := range p.AllowedFoods {
		if strings.TrimSpace(item.Name) == "" {
			problems = append(problems, fmt.Sprintf("allowed_foods[%d]: name is required", i))
		}
	}
	for i, item := range p.ForbiddenFoods {
		if strings.TrimSpace(item.Name) == "" {
			problems = append(problems, fmt.Sprintf("forbidden_foods[%d]: name is required", i))
		}
	}
	for i, meal := range p.Meals {
		if strings.TrimSpace(meal.MealSlot) == "" {
			problems = append(problems, fmt.Sprintf("meal_plan[%d]: meal_slot is required", i))
		}
		if strings.TrimSpace(meal.Description) == "" {
			problems = append(problems, fmt.Sprintf("meal_plan[%d]: description is required", i))
		}
	}
	for i, act := range p.Activities {
		if strings.TrimSpace(act.Name) == "" {
			problems = append(problems, fmt.Sprintf("activities[%d]: name is required", i))
		}
		switch act.Category {
		case ActivityCategoryPreOp, ActivityCategoryPostOp, ActivityCategoryGeneral:
		default:
			problems = append(problems, fmt.Sprintf("activities[%d]: unknown category %q", i, act.Category))
		}
	}

	return problems
}
