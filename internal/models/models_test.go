package models

import (
	"testing"

	"github.com/mmynk/caltrack/internal/energy"
)

func TestDailyLogRecompute(t *testing.T) {
	log := EmptyLog("2026-10-17")
	log.Entries = append(log.Entries,
		FoodEntry{ID: "1", Calories: 300, Meal: Breakfast},
		FoodEntry{ID: "2", Calories: 500, Meal: Lunch},
		FoodEntry{ID: "3", Calories: 120, Meal: Snack},
		FoodEntry{ID: "4", Calories: 80, Meal: Snack},
	)
	log.Recompute()

	if log.TotalCalories != 1000 {
		t.Errorf("TotalCalories = %d, want 1000", log.TotalCalories)
	}
	want := map[Meal]int{Breakfast: 300, Lunch: 500, Dinner: 0, Snack: 200}
	for meal, kcal := range want {
		if got := log.MealCalories(meal); got != kcal {
			t.Errorf("%s calories = %d, want %d", meal, got, kcal)
		}
	}

	log.Entries = log.Entries[:1]
	log.Recompute()
	if log.TotalCalories != 300 || log.SnackCalories != 0 {
		t.Errorf("after truncation got total=%d snack=%d", log.TotalCalories, log.SnackCalories)
	}
}

func TestDailyLogCloneDoesNotAlias(t *testing.T) {
	log := EmptyLog("2026-10-17")
	log.Entries = append(log.Entries, FoodEntry{ID: "1", Calories: 100, Meal: Dinner})

	clone := log.Clone()
	clone.Entries[0].Calories = 999
	if log.Entries[0].Calories != 100 {
		t.Error("clone aliases the original entry slice")
	}
}

func TestProfileUpdateApply(t *testing.T) {
	p := Profile{Name: "Ana", Age: 30, Sex: energy.Male, Weight: 80, Height: 180, ActivityLevel: energy.Moderate}
	if err := p.Recompute(); err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if p.DailyEnergyTarget != 2873 {
		t.Fatalf("target = %d, want 2873", p.DailyEnergyTarget)
	}

	t.Run("name only keeps target", func(t *testing.T) {
		name := "Ana María"
		u := ProfileUpdate{Name: &name}
		if u.TouchesTarget() {
			t.Error("name update should not touch target")
		}
		got, err := u.Apply(p)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if got.Name != name || got.DailyEnergyTarget != 2873 {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("activity change recomputes", func(t *testing.T) {
		level := energy.Sedentary
		got, err := ProfileUpdate{ActivityLevel: &level}.Apply(p)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		// round(1853.632 * 1.2) = 2224
		if got.DailyEnergyTarget != 2224 {
			t.Errorf("target = %d, want 2224", got.DailyEnergyTarget)
		}
		if p.ActivityLevel != energy.Moderate {
			t.Error("Apply mutated the original profile")
		}
	})
}

func TestMealValid(t *testing.T) {
	for _, m := range Meals {
		if !m.Valid() {
			t.Errorf("%s should be valid", m)
		}
	}
	if Meal("brunch").Valid() {
		t.Error("brunch should be invalid")
	}
}
