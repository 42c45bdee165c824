package models

import (
	"time"

	"github.com/mmynk/caltrack/internal/calendar"
)

// Meal is the category a food entry is logged under.
type Meal string

const (
	Breakfast Meal = "breakfast"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
	Snack     Meal = "snack"
)

// Meals lists every meal in display order.
var Meals = []Meal{Breakfast, Lunch, Dinner, Snack}

// Valid reports whether m is a known meal.
func (m Meal) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Snack:
		return true
	}
	return false
}

// Unit is how the quantity of a food entry was entered.
type Unit string

const (
	UnitGrams Unit = "grams"
	UnitUnits Unit = "units"
)

// FoodEntry is one logged food item. Entries are immutable once created;
// the only way to change one is to remove it.
type FoodEntry struct {
	ID        string    `json:"id"`
	FoodID    string    `json:"foodId"`
	FoodName  string    `json:"foodName"`
	Grams     float64   `json:"grams"`
	Calories  int       `json:"calories"`
	Timestamp time.Time `json:"timestamp"`
	Meal      Meal      `json:"meal"`

	// Quantity and Unit record what the user typed when it was not grams.
	Quantity float64 `json:"quantity,omitempty"`
	Unit     Unit    `json:"unit,omitempty"`
}

// NewFoodEntry is a FoodEntry before the ledger assigns ID and Timestamp.
type NewFoodEntry struct {
	FoodID   string
	FoodName string
	Grams    float64
	Calories int
	Meal     Meal
	Quantity float64
	Unit     Unit
}

// DailyLog holds the food entries of one calendar day.
//
// The calorie fields are caches over Entries. They are rebuilt by Recompute
// after every add or remove and are never set independently.
type DailyLog struct {
	Date              calendar.Day `json:"date"`
	Entries           []FoodEntry  `json:"entries"`
	TotalCalories     int          `json:"totalCalories"`
	BreakfastCalories int          `json:"breakfastCalories"`
	LunchCalories     int          `json:"lunchCalories"`
	DinnerCalories    int          `json:"dinnerCalories"`
	SnackCalories     int          `json:"snackCalories"`
}

// EmptyLog returns the zero-valued log for day.
func EmptyLog(day calendar.Day) DailyLog {
	return DailyLog{Date: day, Entries: []FoodEntry{}}
}

// Recompute rebuilds all five totals from Entries.
func (l *DailyLog) Recompute() {
	l.TotalCalories, l.BreakfastCalories, l.LunchCalories, l.DinnerCalories, l.SnackCalories = 0, 0, 0, 0, 0
	for _, e := range l.Entries {
		l.TotalCalories += e.Calories
		switch e.Meal {
		case Breakfast:
			l.BreakfastCalories += e.Calories
		case Lunch:
			l.LunchCalories += e.Calories
		case Dinner:
			l.DinnerCalories += e.Calories
		case Snack:
			l.SnackCalories += e.Calories
		}
	}
}

// MealCalories returns the cached total for m.
func (l DailyLog) MealCalories(m Meal) int {
	switch m {
	case Breakfast:
		return l.BreakfastCalories
	case Lunch:
		return l.LunchCalories
	case Dinner:
		return l.DinnerCalories
	case Snack:
		return l.SnackCalories
	}
	return 0
}

// Clone returns a deep copy so callers cannot alias the entry slice.
func (l DailyLog) Clone() DailyLog {
	entries := make([]FoodEntry, len(l.Entries))
	copy(entries, l.Entries)
	l.Entries = entries
	return l
}
