package rpc

import (
	"testing"
)

func TestCodec(t *testing.T) {
	c := Codec{}
	if c.Name() != "json" {
		t.Fatalf("Name = %q", c.Name())
	}

	data, err := c.Marshal(&AddFoodRequest{FoodID: "f1", Grams: 150, Meal: "breakfast"})
	if err != nil {
		t.Fatal(err)
	}
	var got AddFoodRequest
	if err := c.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got.FoodID != "f1" || got.Grams != 150 || got.Calories != nil {
		t.Errorf("decoded %+v", got)
	}

	var empty LogoutRequest
	if err := c.Unmarshal(nil, &empty); err != nil {
		t.Errorf("empty body should decode, got %v", err)
	}
	if err := c.Unmarshal([]byte("{"), &got); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestIsProcedure(t *testing.T) {
	if !IsProcedure(DiaryServiceAddFoodProcedure) {
		t.Error("AddFood should be an API procedure")
	}
	if IsProcedure("/index.html") || IsProcedure("/metrics") {
		t.Error("non-API path matched")
	}
}
