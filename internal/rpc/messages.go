package rpc

import (
	"github.com/mmynk/caltrack/internal/catalog"
	"github.com/mmynk/caltrack/internal/ledger"
	"github.com/mmynk/caltrack/internal/models"
)

// User is the public view of an account.
type User struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"displayName"`
	AuthMethod  models.AuthMethod `json:"authMethod"`
}

/* ─── AuthService ────────────────────────────────────────────────────── */

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginFederatedRequest struct {
	IDToken string `json:"idToken"`
}

// AuthResponse is returned by every sign-in procedure. State is the session
// state after the user document was loaded; Pending is set by
// LoginFederated when no credential was supplied yet.
type AuthResponse struct {
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	State   string `json:"state"`
	Pending bool   `json:"pending,omitempty"`
}

type LogoutRequest struct{}

type LogoutResponse struct{}

/* ─── ProfileService ─────────────────────────────────────────────────── */

type GetProfileRequest struct{}

type CreateProfileRequest struct {
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	Sex           string  `json:"sex"`
	Weight        float64 `json:"weight"`
	Height        float64 `json:"height"`
	ActivityLevel string  `json:"activityLevel"`
}

// UpdateProfileRequest carries only the fields being changed.
type UpdateProfileRequest struct {
	Name          *string  `json:"name,omitempty"`
	Email         *string  `json:"email,omitempty"`
	Age           *int     `json:"age,omitempty"`
	Sex           *string  `json:"sex,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	ActivityLevel *string  `json:"activityLevel,omitempty"`
}

type ProfileResponse struct {
	Profile       models.Profile `json:"profile"`
	ActivityLabel string         `json:"activityLabel"`
	State         string         `json:"state"`
}

/* ─── DiaryService ───────────────────────────────────────────────────── */

// Dates are YYYY-MM-DD; empty means today in the server's zone.

type GetLogRequest struct {
	Date string `json:"date,omitempty"`
}

type LogResponse struct {
	Log      models.DailyLog `json:"log"`
	Progress ledger.Progress `json:"progress"`
}

// AddFoodRequest logs a catalog food by FoodID and Grams, or a free-form
// entry with explicit Calories.
type AddFoodRequest struct {
	Date     string      `json:"date,omitempty"`
	FoodID   string      `json:"foodId,omitempty"`
	FoodName string      `json:"foodName,omitempty"`
	Grams    float64     `json:"grams"`
	Calories *int        `json:"calories,omitempty"`
	Meal     models.Meal `json:"meal"`
	Quantity float64     `json:"quantity,omitempty"`
	Unit     models.Unit `json:"unit,omitempty"`
}

type AddFoodResponse struct {
	Entry    models.FoodEntry `json:"entry"`
	Log      models.DailyLog  `json:"log"`
	Progress ledger.Progress  `json:"progress"`
}

type RemoveFoodRequest struct {
	Date    string `json:"date,omitempty"`
	EntryID string `json:"entryId"`
}

type RemoveFoodResponse struct {
	Removed  bool            `json:"removed"`
	Log      models.DailyLog `json:"log"`
	Progress ledger.Progress `json:"progress"`
}

type ClearLogRequest struct {
	Date string `json:"date,omitempty"`
}

type ClearLogResponse struct{}

type GetHistoryRequest struct {
	Days int `json:"days"`
}

type GetHistoryResponse struct {
	Logs   []models.DailyLog `json:"logs"`
	Target int               `json:"target"`
}

type SearchFoodsRequest struct {
	Query    string           `json:"query,omitempty"`
	Category catalog.Category `json:"category,omitempty"`
}

type SearchFoodsResponse struct {
	Foods []catalog.Food `json:"foods"`
}

/* ─── WeightService ──────────────────────────────────────────────────── */

type AddWeightRequest struct {
	Weight float64 `json:"weight"`
}

type AddWeightResponse struct {
	Entry             models.WeightEntry `json:"entry"`
	DailyEnergyTarget int                `json:"dailyEnergyTarget"`
}

type GetLatestRequest struct{}

type GetLatestResponse struct {
	Entry *models.WeightEntry `json:"entry,omitempty"`
}

type GetWeightHistoryRequest struct {
	Days int `json:"days"`
}

type GetWeightHistoryResponse struct {
	Entries []models.WeightEntry `json:"entries"`
}
