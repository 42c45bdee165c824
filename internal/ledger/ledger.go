// Package ledger keeps the per-day food logs of one user.
//
// Every mutation is a full read-modify-write of the affected DailyLog under
// the ledger's lock, followed by a from-scratch recompute of its totals.
// Readers get copies.
package ledger

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/models"
)

// Ledger maps calendar days to daily logs.
type Ledger struct {
	mu    sync.Mutex
	clock calendar.Clock
	newID func() string
	logs  map[calendar.Day]models.DailyLog
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator used for new entries.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New builds a ledger seeded with logs. Totals of the seed logs are
// recomputed, so stale stored totals never survive a load.
func New(clock calendar.Clock, logs []models.DailyLog, opts ...Option) *Ledger {
	l := &Ledger{
		clock: clock,
		newID: func() string { return uuid.New().String() },
		logs:  make(map[calendar.Day]models.DailyLog, len(logs)),
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, log := range logs {
		log = log.Clone()
		if log.Entries == nil {
			log.Entries = []models.FoodEntry{}
		}
		log.Recompute()
		if existing, ok := l.logs[log.Date]; ok {
			// Duplicate day keys in a stored document are merged rather than dropped.
			existing.Entries = append(existing.Entries, log.Entries...)
			existing.Recompute()
			log = existing
		}
		l.logs[log.Date] = log
	}
	return l
}

// Log returns the stored log for day, or a fresh zero log that is not stored.
// A zero day means today.
func (l *Ledger) Log(day calendar.Day) models.DailyLog {
	day = calendar.Resolve(l.clock, day)

	l.mu.Lock()
	defer l.mu.Unlock()
	if log, ok := l.logs[day]; ok {
		return log.Clone()
	}
	return models.EmptyLog(day)
}

// Has reports whether a log is stored for day.
func (l *Ledger) Has(day calendar.Day) bool {
	day = calendar.Resolve(l.clock, day)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.logs[day]
	return ok
}

// Add appends a new entry to day's log, creating the log if needed.
func (l *Ledger) Add(day calendar.Day, in models.NewFoodEntry) (models.FoodEntry, error) {
	if err := validate(in); err != nil {
		return models.FoodEntry{}, err
	}
	day = calendar.Resolve(l.clock, day)

	entry := models.FoodEntry{
		ID:        l.newID(),
		FoodID:    in.FoodID,
		FoodName:  in.FoodName,
		Grams:     in.Grams,
		Calories:  in.Calories,
		Timestamp: l.clock.Now(),
		Meal:      in.Meal,
		Quantity:  in.Quantity,
		Unit:      in.Unit,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	log, ok := l.logs[day]
	if !ok {
		log = models.EmptyLog(day)
	}
	log = log.Clone()
	log.Entries = append(log.Entries, entry)
	log.Recompute()
	l.logs[day] = log
	return entry, nil
}

// Remove deletes the entry with id from day's log. It reports whether an
// entry was removed; a missing log or id is not an error.
func (l *Ledger) Remove(id string, day calendar.Day) bool {
	day = calendar.Resolve(l.clock, day)

	l.mu.Lock()
	defer l.mu.Unlock()

	log, ok := l.logs[day]
	if !ok {
		return false
	}
	kept := make([]models.FoodEntry, 0, len(log.Entries))
	for _, e := range log.Entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(log.Entries)
	log.Entries = kept
	log.Recompute()
	l.logs[day] = log
	return removed
}

// Clear drops day's log entirely. Calling it again is a no-op.
func (l *Ledger) Clear(day calendar.Day) {
	day = calendar.Resolve(l.clock, day)

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.logs, day)
}

// Range returns the stored logs with from <= date <= to, ascending by date.
func (l *Ledger) Range(from, to calendar.Day) []models.DailyLog {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []models.DailyLog
	for day, log := range l.logs {
		if !day.Before(from) && !day.After(to) {
			out = append(out, log.Clone())
		}
	}
	sortByDate(out)
	return out
}

// MaxHistoryDays bounds History.
const MaxHistoryDays = 366

// History returns one log per day for the last days days ending today,
// oldest first. Days without a stored log are zero-filled.
func (l *Ledger) History(days int) ([]models.DailyLog, error) {
	if days <= 0 || days > MaxHistoryDays {
		return nil, apperr.Invalid("days must be between 1 and %d, got %d", MaxHistoryDays, days)
	}
	today := calendar.Today(l.clock)

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.DailyLog, days)
	for i := 0; i < days; i++ {
		day := today.AddDays(i - (days - 1))
		if log, ok := l.logs[day]; ok {
			out[i] = log.Clone()
		} else {
			out[i] = models.EmptyLog(day)
		}
	}
	return out, nil
}

// Snapshot returns every stored log, ascending by date.
func (l *Ledger) Snapshot() []models.DailyLog {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]models.DailyLog, 0, len(l.logs))
	for _, log := range l.logs {
		out = append(out, log.Clone())
	}
	sortByDate(out)
	return out
}

func sortByDate(logs []models.DailyLog) {
	sort.Slice(logs, func(i, j int) bool { return logs[i].Date < logs[j].Date })
}

func validate(in models.NewFoodEntry) error {
	if !in.Meal.Valid() {
		return apperr.Invalid("meal must be one of: breakfast, lunch, dinner, snack")
	}
	if !(in.Grams > 0) {
		return apperr.Invalid("grams must be positive, got %g", in.Grams)
	}
	if in.Calories < 0 {
		return apperr.Invalid("calories must not be negative, got %d", in.Calories)
	}
	return nil
}
