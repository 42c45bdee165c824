package ledger

import "github.com/mmynk/caltrack/internal/models"

// Status classifies a day's intake against its target.
type Status string

const (
	StatusUnder    Status = "under"
	StatusOnTarget Status = "on_target"
	StatusOver     Status = "over"
)

// On-target band, as a percentage of the daily target.
const (
	onTargetLow  = 90
	onTargetHigh = 110
)

// Progress is the dashboard view of one day.
type Progress struct {
	Consumed  int     `json:"consumed"`
	Target    int     `json:"target"`
	Remaining int     `json:"remaining"` // negative once the target is exceeded
	Percent   float64 `json:"percent"`
	Status    Status  `json:"status"`
}

// ProgressOf compares log's total against target.
func ProgressOf(target int, log models.DailyLog) Progress {
	p := Progress{
		Consumed:  log.TotalCalories,
		Target:    target,
		Remaining: target - log.TotalCalories,
	}
	if target > 0 {
		p.Percent = float64(log.TotalCalories) / float64(target) * 100
	}
	// Compare in integers so the band edges are exact.
	scaled := log.TotalCalories * 100
	switch {
	case target <= 0:
		p.Status = StatusUnder
	case scaled > target*onTargetHigh:
		p.Status = StatusOver
	case scaled >= target*onTargetLow:
		p.Status = StatusOnTarget
	default:
		p.Status = StatusUnder
	}
	return p
}
