// Package catalog is the built-in food list used to fill in new entries.
package catalog

import (
	"math"
	"sort"
	"strings"

	"github.com/mmynk/caltrack/internal/apperr"
)

// Category groups foods for browsing.
type Category string

const (
	Fruits     Category = "fruits"
	Proteins   Category = "proteins"
	Dairy      Category = "dairy"
	Beverages  Category = "beverages"
	Grains     Category = "grains"
	Vegetables Category = "vegetables"
)

// Categories lists every category in display order.
var Categories = []Category{Fruits, Proteins, Dairy, Beverages, Grains, Vegetables}

// Food is one catalog item.
type Food struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Category        Category `json:"category"`
	CaloriesPer100g int      `json:"caloriesPer100g"`
}

var foods = []Food{
	{"f1", "Apple", Fruits, 52},
	{"f2", "Banana", Fruits, 89},
	{"f3", "Orange", Fruits, 47},
	{"f4", "Mango", Fruits, 60},
	{"f5", "Watermelon", Fruits, 30},
	{"f6", "Strawberry", Fruits, 32},
	{"f7", "Grape", Fruits, 69},
	{"f8", "Pineapple", Fruits, 50},
	{"p1", "Chicken", Proteins, 165},
	{"p2", "Beef", Proteins, 250},
	{"p3", "Fish", Proteins, 206},
	{"p4", "Egg", Proteins, 155},
	{"p5", "Beans", Proteins, 127},
	{"p6", "Lentils", Proteins, 116},
	{"p7", "Tuna", Proteins, 132},
	{"d1", "Milk", Dairy, 42},
	{"d2", "Yogurt", Dairy, 59},
	{"d3", "Cheese", Dairy, 402},
	{"d4", "Fresh cheese", Dairy, 264},
	{"b1", "Soda", Beverages, 42},
	{"b2", "Orange juice", Beverages, 45},
	{"b3", "Coffee", Beverages, 1},
	{"b4", "Water", Beverages, 0},
	{"b5", "Tea", Beverages, 1},
	{"g1", "Rice", Grains, 130},
	{"g2", "Pasta", Grains, 131},
	{"g3", "Bread", Grains, 265},
	{"g4", "Tortilla", Grains, 218},
	{"g5", "Oats", Grains, 389},
	{"v1", "Lettuce", Vegetables, 15},
	{"v2", "Tomato", Vegetables, 18},
	{"v3", "Carrot", Vegetables, 41},
	{"v4", "Broccoli", Vegetables, 34},
	{"v5", "Spinach", Vegetables, 23},
	{"v6", "Cucumber", Vegetables, 16},
}

var byID = func() map[string]Food {
	m := make(map[string]Food, len(foods))
	for _, f := range foods {
		m[f.ID] = f
	}
	return m
}()

// All returns every food in catalog order.
func All() []Food {
	out := make([]Food, len(foods))
	copy(out, foods)
	return out
}

// Get looks a food up by ID.
func Get(id string) (Food, error) {
	f, ok := byID[id]
	if !ok {
		return Food{}, apperr.ErrNotFound
	}
	return f, nil
}

// Search returns foods whose name contains query (case-insensitive),
// optionally restricted to one category, sorted by name. An empty query
// matches everything.
func Search(query string, category Category) []Food {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Food
	for _, f := range foods {
		if category != "" && f.Category != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(f.Name), q) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Calories returns the energy of grams of f, rounded to the nearest kcal.
func (f Food) Calories(grams float64) (int, error) {
	if !(grams > 0) || math.IsInf(grams, 0) {
		return 0, apperr.Invalid("grams must be positive, got %g", grams)
	}
	return int(math.Round(float64(f.CaloriesPer100g) * grams / 100)), nil
}
