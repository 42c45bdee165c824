// Package weight keeps a user's append-only body-weight history.
package weight

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/energy"
	"github.com/mmynk/caltrack/internal/models"
)

// Series is an insertion-ordered list of weight samples. There is no update
// or delete: corrections are made by adding a newer sample.
type Series struct {
	mu      sync.RWMutex
	clock   calendar.Clock
	newID   func() string
	entries []models.WeightEntry
}

// New builds a series seeded with entries in their stored order.
func New(clock calendar.Clock, entries []models.WeightEntry) *Series {
	seeded := make([]models.WeightEntry, len(entries))
	copy(seeded, entries)
	return &Series{
		clock:   clock,
		newID:   func() string { return uuid.New().String() },
		entries: seeded,
	}
}

// Validate checks w against the accepted range without recording anything.
func Validate(w float64) error {
	return apperr.CheckRange("weight", w, energy.MinWeight, energy.MaxWeight)
}

// Add records a sample dated today. Weights outside [20, 300] kg fail with
// apperr.ErrOutOfRange.
func (s *Series) Add(w float64) (models.WeightEntry, error) {
	if err := Validate(w); err != nil {
		return models.WeightEntry{}, err
	}
	now := s.clock.Now()
	entry := models.WeightEntry{
		ID:        s.newID(),
		Weight:    w,
		Date:      calendar.DayOf(now),
		Timestamp: now,
	}

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return entry, nil
}

// Latest returns the sample with the greatest timestamp. On equal timestamps
// the one added last wins.
func (s *Series) Latest() (models.WeightEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return models.WeightEntry{}, false
	}
	latest := s.entries[0]
	for _, e := range s.entries[1:] {
		if !e.Timestamp.Before(latest.Timestamp) {
			latest = e
		}
	}
	return latest, true
}

// MaxWindowDays bounds Window.
const MaxWindowDays = 3660

// Window returns samples dated on or after today-days, ascending by date.
// Samples sharing a date keep their insertion order. days=0 means today only.
func (s *Series) Window(days int) ([]models.WeightEntry, error) {
	if days < 0 || days > MaxWindowDays {
		return nil, apperr.Invalid("days must be between 0 and %d, got %d", MaxWindowDays, days)
	}
	cutoff := calendar.Today(s.clock).AddDays(-days)

	s.mu.RLock()
	out := make([]models.WeightEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.Date.Before(cutoff) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// Entries returns a copy of every sample in insertion order.
func (s *Series) Entries() []models.WeightEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.WeightEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of samples.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
