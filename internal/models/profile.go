package models

import (
	"time"

	"github.com/mmynk/caltrack/internal/energy"
)

// Profile is the signed-in user's demographic data.
//
// DailyEnergyTarget is derived: it always equals energy.TargetFor over the
// current Age, Sex, Weight, Height and ActivityLevel. Use Recompute after
// changing any of them.
type Profile struct {
	Name              string               `json:"name"`
	Email             string               `json:"email,omitempty"`
	Age               int                  `json:"age"`
	Sex               energy.Sex           `json:"sex"`
	Weight            float64              `json:"weight"` // kg, latest measurement
	Height            float64              `json:"height"` // cm
	ActivityLevel     energy.ActivityLevel `json:"activityLevel"`
	DailyEnergyTarget int                  `json:"dailyEnergyTarget"` // kcal
	CreatedAt         time.Time            `json:"createdAt"`
	AuthMethod        AuthMethod           `json:"authMethod,omitempty"`
}

// Recompute refreshes DailyEnergyTarget from the body fields.
func (p *Profile) Recompute() error {
	target, err := energy.TargetFor(p.Age, p.Sex, p.Weight, p.Height, p.ActivityLevel)
	if err != nil {
		return err
	}
	p.DailyEnergyTarget = target
	return nil
}

// ProfileUpdate is a partial profile edit. Only non-nil fields are applied.
type ProfileUpdate struct {
	Name          *string
	Email         *string
	Age           *int
	Sex           *energy.Sex
	Weight        *float64
	Height        *float64
	ActivityLevel *energy.ActivityLevel
}

// TouchesTarget reports whether the update changes a formula input.
func (u ProfileUpdate) TouchesTarget() bool {
	return u.Age != nil || u.Sex != nil || u.Weight != nil || u.Height != nil || u.ActivityLevel != nil
}

// Apply returns a copy of p with the update merged in. The target is
// recomputed when a formula input changed.
func (u ProfileUpdate) Apply(p Profile) (Profile, error) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.Sex != nil {
		p.Sex = *u.Sex
	}
	if u.Weight != nil {
		p.Weight = *u.Weight
	}
	if u.Height != nil {
		p.Height = *u.Height
	}
	if u.ActivityLevel != nil {
		p.ActivityLevel = *u.ActivityLevel
	}
	if u.TouchesTarget() {
		if err := p.Recompute(); err != nil {
			return Profile{}, err
		}
	}
	return p, nil
}
