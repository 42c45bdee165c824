package models

import (
	"time"

	"github.com/mmynk/caltrack/internal/calendar"
)

// WeightEntry is one body-weight measurement. Several entries may share a date.
type WeightEntry struct {
	ID        string       `json:"id"`
	Weight    float64      `json:"weight"` // kg
	Date      calendar.Day `json:"date"`
	Timestamp time.Time    `json:"timestamp"`
}
