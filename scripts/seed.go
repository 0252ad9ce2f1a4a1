package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/adapters/database"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/application/services"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/domain/entities"
	"github.com/zatekoja/Patientcareplandesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Patientcareplandesign/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	patientRepo := database.NewPatientAdapter(pgClient)
	surgeryRepo := database.NewSurgeryAdapter(pgClient)
	surgeryService := services.NewSurgeryService(surgeryRepo, nil, nil)

	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				patient_care_plans,
				patients,
				activity_recommendations,
				diet_plan_meals,
				diet_plan_food_items,
				diet_plans,
				surgeries
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	hospitalID := uuid.New().String()

	// 1. Seed surgery templates with their plans
	appendectomy := &entities.Surgery{
		ID:          uuid.New().String(),
		HospitalID:  hospitalID,
		Name:        "Appendectomy",
		Description: "Laparoscopic removal of the appendix",
		SurgeryType: "Laparoscopic",
		RiskLevel:   "low",
		Medications: []string{
			"Paracetamol (500mg) - every 6 hours",
			"Amoxicillin (250mg) - twice daily for 5 days",
		},
	}
	appendectomyPlans := &entities.SurgeryPlanPayload{
		Summary:      "Light diet while the bowel recovers",
		DietType:     "soft",
		GoalCalories: 1800,
		Notes:        "Advance to solids as tolerated after 48 hours",
		AllowedFoods: []entities.FoodItemPayload{
			{Name: "Rice porridge", Description: "Easy on the gut"},
			{Name: "Boiled plantain"},
			{Name: "Clear soups"},
		},
		ForbiddenFoods: []entities.FoodItemPayload{
			{Name: "Fried food"},
			{Name: "Carbonated drinks"},
		},
		Meals: []entities.MealEntryPayload{
			{MealSlot: "breakfast", Description: "Pap with a little milk"},
			{MealSlot: "lunch", Description: "Rice porridge with steamed fish"},
			{MealSlot: "dinner", Description: "Light vegetable soup"},
		},
		Activities: []entities.ActivityPayload{
			{Category: entities.ActivityCategoryPostOp, Name: "Short walks", Description: "Twice daily from day one"},
			{Category: entities.ActivityCategoryPostOp, Name: "No heavy lifting", Description: "For at least two weeks"},
			{Category: entities.ActivityCategoryGeneral, Name: "Breathing exercises"},
		},
	}

	kneeReplacement := &entities.Surgery{
		ID:          uuid.New().String(),
		HospitalID:  hospitalID,
		Name:        "Total Knee Replacement",
		Description: "Replacement of the knee joint with a prosthesis",
		SurgeryType: "Orthopedic",
		RiskLevel:   "medium",
		Medications: []string{
			"Ibuprofen (400mg) - three times daily with food",
			"Enoxaparin (40mg) - once daily for 10 days",
		},
	}
	kneePlans := &entities.SurgeryPlanPayload{
		Summary:      "Protein-forward diet to support tissue repair",
		DietType:     "high-protein",
		GoalCalories: 2200,
		Notes:        "Hydrate well before physiotherapy sessions",
		AllowedFoods: []entities.FoodItemPayload{
			{Name: "Grilled chicken"},
			{Name: "Beans"},
			{Name: "Leafy greens"},
		},
		ForbiddenFoods: []entities.FoodItemPayload{
			{Name: "Alcohol", Description: "Interferes with pain medication"},
		},
		Meals: []entities.MealEntryPayload{
			{MealSlot: "breakfast", Description: "Moi moi with oats"},
			{MealSlot: "lunch", Description: "Jollof rice with grilled chicken"},
			{MealSlot: "dinner", Description: "Beans with vegetables"},
		},
		Activities: []entities.ActivityPayload{
			{Category: entities.ActivityCategoryPreOp, Name: "Quad strengthening", Description: "Daily for two weeks before surgery"},
			{Category: entities.ActivityCategoryPostOp, Name: "Assisted walking", Description: "With a frame from day two"},
			{Category: entities.ActivityCategoryPostOp, Name: "Physiotherapy", Description: "Three sessions per week"},
		},
	}

	for _, pair := range []struct {
		surgery *entities.Surgery
		plans   *entities.SurgeryPlanPayload
	}{
		{appendectomy, appendectomyPlans},
		{kneeReplacement, kneePlans},
	} {
		if _, err := surgeryService.CreateSurgery(ctx, pair.surgery, pair.plans); err != nil {
			log.Printf("Failed to create surgery %s: %v", pair.surgery.Name, err)
		}
	}

	// 2. Seed sample patients linked to the templates
	patients := []entities.Patient{
		{
			ID:             uuid.New().String(),
			HospitalID:     hospitalID,
			FullName:       "Adaeze Okafor",
			Age:            34,
			Gender:         "female",
			Phone:          "+2348031234567",
			AssignedDoctor: "Dr. Balogun",
			RiskLevel:      "low",
			Status:         entities.PatientStatusInRecovery,
			SurgeryID:      &appendectomy.ID,
			AdmittedAt:     time.Now().Add(-48 * time.Hour),
		},
		{
			ID:             uuid.New().String(),
			HospitalID:     hospitalID,
			FullName:       "Musa Abdullahi",
			Age:            61,
			Gender:         "male",
			Phone:          "+2348087654321",
			AssignedDoctor: "Dr. Eze",
			RiskLevel:      "medium",
			ClinicalNotes:  "Hypertensive, on amlodipine",
			Status:         entities.PatientStatusInRecovery,
			SurgeryID:      &kneeReplacement.ID,
			AdmittedAt:     time.Now().Add(-24 * time.Hour),
		},
	}

	for i := range patients {
		p := patients[i]
		if err := patientRepo.Create(ctx, &p); err != nil {
			log.Printf("Failed to create patient %s: %v", p.FullName, err)
		}
	}

	log.Println("Seeding complete")
}
