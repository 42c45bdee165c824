package catalog

import (
	"errors"
	"testing"

	"github.com/mmynk/caltrack/internal/apperr"
)

func TestCatalogSize(t *testing.T) {
	if got := len(All()); got != 35 {
		t.Errorf("catalog has %d foods, want 35", got)
	}
	counts := map[Category]int{}
	for _, f := range All() {
		counts[f.Category]++
	}
	for _, c := range Categories {
		if counts[c] == 0 {
			t.Errorf("category %s is empty", c)
		}
	}
}

func TestGet(t *testing.T) {
	f, err := Get("g1")
	if err != nil {
		t.Fatalf("Get(g1): %v", err)
	}
	if f.Name != "Rice" || f.CaloriesPer100g != 130 {
		t.Errorf("Get(g1) = %+v", f)
	}
	if _, err := Get("zz"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		category Category
		want     []string
	}{
		{"substring any case", "CHEESE", "", []string{"Cheese", "Fresh cheese"}},
		{"category filter", "", Beverages, []string{"Coffee", "Orange juice", "Soda", "Tea", "Water"}},
		{"query and category", "orange", Fruits, []string{"Orange"}},
		{"no match", "pizza", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Search(tt.query, tt.category)
			if len(got) != len(tt.want) {
				t.Fatalf("Search returned %d foods, want %d", len(got), len(tt.want))
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("result %d = %s, want %s", i, got[i].Name, name)
				}
			}
		})
	}
}

func TestCalories(t *testing.T) {
	apple, _ := Get("f1")
	tests := []struct {
		grams   float64
		want    int
		wantErr bool
	}{
		{100, 52, false},
		{150, 78, false},
		{33, 17, false}, // 17.16
		{0, 0, true},
		{-10, 0, true},
	}
	for _, tt := range tests {
		got, err := apple.Calories(tt.grams)
		if (err != nil) != tt.wantErr {
			t.Errorf("Calories(%v) err = %v, wantErr %v", tt.grams, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Calories(%v) = %d, want %d", tt.grams, got, tt.want)
		}
	}
}
