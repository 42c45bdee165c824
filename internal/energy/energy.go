// Package energy computes basal metabolic rate and daily energy targets.
//
// BasalRate uses the revised Harris-Benedict equations. Range checks on the
// body measurements belong to the input boundary (see ValidateBody); the
// formulas themselves only reject values that are not finite numbers.
package energy

import (
	"math"
	"strings"

	"github.com/mmynk/caltrack/internal/apperr"
)

// Sex selects the coefficient set of the basal-rate formula.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// ActivityLevel selects the multiplier applied to the basal rate.
type ActivityLevel string

const (
	Sedentary ActivityLevel = "sedentary"
	Light     ActivityLevel = "light"
	Moderate  ActivityLevel = "moderate"
	Intense   ActivityLevel = "intense"
)

// activityFactors is the single source of truth for valid activity levels.
var activityFactors = map[ActivityLevel]float64{
	Sedentary: 1.2,
	Light:     1.375,
	Moderate:  1.55,
	Intense:   1.725,
}

var activityLabels = map[ActivityLevel]string{
	Sedentary: "Sedentary",
	Light:     "Light activity",
	Moderate:  "Moderate activity",
	Intense:   "Intense activity",
}

// Input-boundary limits for body measurements.
const (
	MinAge, MaxAge       = 10, 120
	MinWeight, MaxWeight = 20.0, 300.0
	MinHeight, MaxHeight = 100.0, 250.0
)

// BasalRate returns the estimated basal metabolic rate in kcal/day. The
// result is not rounded.
func BasalRate(age int, sex Sex, weight, height float64) (float64, error) {
	if !finite(weight) || !finite(height) {
		return 0, apperr.Invalid("weight and height must be finite numbers")
	}
	a := float64(age)
	switch sex {
	case Male:
		return 88.362 + 13.397*weight + 4.799*height - 5.677*a, nil
	case Female:
		return 447.593 + 9.247*weight + 3.098*height - 4.330*a, nil
	default:
		return 0, apperr.Invalid("unknown sex %q", sex)
	}
}

// DailyTarget multiplies basal by the activity factor and rounds half away
// from zero.
func DailyTarget(basal float64, level ActivityLevel) (int, error) {
	if !finite(basal) {
		return 0, apperr.Invalid("basal rate must be a finite number")
	}
	factor, ok := activityFactors[level]
	if !ok {
		return 0, apperr.Invalid("unknown activity level %q", level)
	}
	return int(math.Round(basal * factor)), nil
}

// TargetFor chains BasalRate and DailyTarget.
func TargetFor(age int, sex Sex, weight, height float64, level ActivityLevel) (int, error) {
	basal, err := BasalRate(age, sex, weight, height)
	if err != nil {
		return 0, err
	}
	return DailyTarget(basal, level)
}

// Factor returns the multiplier for level.
func Factor(level ActivityLevel) (float64, bool) {
	f, ok := activityFactors[level]
	return f, ok
}

// Label returns a human-readable name for level, or the raw value if unknown.
func Label(level ActivityLevel) string {
	if l, ok := activityLabels[level]; ok {
		return l
	}
	return string(level)
}

// ValidateBody enforces the accepted ranges for user-entered measurements.
func ValidateBody(age int, weight, height float64) error {
	if err := apperr.CheckRange("age", float64(age), MinAge, MaxAge); err != nil {
		return err
	}
	if err := apperr.CheckRange("weight", weight, MinWeight, MaxWeight); err != nil {
		return err
	}
	return apperr.CheckRange("height", height, MinHeight, MaxHeight)
}

// ParseSex normalizes s into a Sex.
func ParseSex(s string) (Sex, error) {
	switch sex := Sex(strings.ToLower(strings.TrimSpace(s))); sex {
	case Male, Female:
		return sex, nil
	default:
		return "", apperr.Invalid("sex must be one of: male, female")
	}
}

// ParseActivityLevel normalizes s into an ActivityLevel.
func ParseActivityLevel(s string) (ActivityLevel, error) {
	level := ActivityLevel(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := activityFactors[level]; !ok {
		return "", apperr.Invalid("activity_level must be one of: sedentary, light, moderate, intense")
	}
	return level, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
