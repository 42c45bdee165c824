package weight

import (
	"errors"
	"testing"
	"time"

	"github.com/mmynk/caltrack/internal/apperr"
	"github.com/mmynk/caltrack/internal/calendar"
	"github.com/mmynk/caltrack/internal/models"
)

var start = time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC)

func TestAddBoundaries(t *testing.T) {
	tests := []struct {
		weight  float64
		wantErr bool
	}{
		{19.9, true},
		{20, false},
		{300, false},
		{300.1, true},
	}
	for _, tt := range tests {
		s := New(calendar.NewManual(start), nil)
		entry, err := s.Add(tt.weight)
		if tt.wantErr {
			if !errors.Is(err, apperr.ErrOutOfRange) {
				t.Errorf("Add(%v): expected ErrOutOfRange, got %v", tt.weight, err)
			}
			if s.Len() != 0 {
				t.Errorf("Add(%v): rejected sample was stored", tt.weight)
			}
			continue
		}
		if err != nil {
			t.Errorf("Add(%v): unexpected error %v", tt.weight, err)
			continue
		}
		if entry.Date != "2026-10-17" || entry.ID == "" || !entry.Timestamp.Equal(start) {
			t.Errorf("Add(%v) = %+v", tt.weight, entry)
		}
	}
}

func TestLatest(t *testing.T) {
	clock := calendar.NewManual(start)
	s := New(clock, nil)

	if _, ok := s.Latest(); ok {
		t.Fatal("empty series should have no latest")
	}

	s.Add(80)
	clock.Advance(time.Hour)
	s.Add(79.5)

	latest, ok := s.Latest()
	if !ok || latest.Weight != 79.5 {
		t.Errorf("Latest = %+v, want 79.5", latest)
	}
}

func TestLatestTieBreakIsLastInserted(t *testing.T) {
	ts := start
	s := New(calendar.NewManual(start), []models.WeightEntry{
		{ID: "a", Weight: 81, Date: "2026-10-17", Timestamp: ts},
		{ID: "b", Weight: 80, Date: "2026-10-17", Timestamp: ts},
		{ID: "c", Weight: 82, Date: "2026-10-16", Timestamp: ts.Add(-time.Hour)},
	})
	latest, _ := s.Latest()
	if latest.ID != "b" {
		t.Errorf("Latest = %s, want b", latest.ID)
	}
}

func TestWindow(t *testing.T) {
	s := New(calendar.NewManual(start), []models.WeightEntry{
		{ID: "today-1", Weight: 80, Date: "2026-10-17"},
		{ID: "91d", Weight: 90, Date: "2026-07-18"},
		{ID: "90d", Weight: 89, Date: "2026-07-19"},
		{ID: "yesterday", Weight: 81, Date: "2026-10-16"},
		{ID: "today-2", Weight: 79, Date: "2026-10-17"},
		{ID: "30d", Weight: 85, Date: "2026-09-17"},
	})

	t.Run("days=0 is today only", func(t *testing.T) {
		got, err := s.Window(0)
		if err != nil {
			t.Fatalf("Window(0): %v", err)
		}
		assertIDs(t, got, "today-1", "today-2")
	})

	t.Run("days=90 excludes 91 days ago", func(t *testing.T) {
		got, err := s.Window(90)
		if err != nil {
			t.Fatalf("Window(90): %v", err)
		}
		assertIDs(t, got, "90d", "30d", "yesterday", "today-1", "today-2")
	})

	t.Run("negative days", func(t *testing.T) {
		if _, err := s.Window(-1); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("days above the bound", func(t *testing.T) {
		if _, err := s.Window(MaxWindowDays); err != nil {
			t.Errorf("Window(%d): %v", MaxWindowDays, err)
		}
		if _, err := s.Window(1 << 40); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestEntriesPreservesInsertionOrderAndDuplicates(t *testing.T) {
	clock := calendar.NewManual(start)
	s := New(clock, nil)
	s.Add(80)
	s.Add(80)
	s.Add(79)

	entries := s.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3 (no same-day dedup)", len(entries))
	}
	if entries[2].Weight != 79 {
		t.Errorf("last entry = %v, want 79", entries[2].Weight)
	}
	entries[0].Weight = 1
	if s.Entries()[0].Weight != 80 {
		t.Error("Entries aliases internal state")
	}
}

func assertIDs(t *testing.T, got []models.WeightEntry, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("entry %d = %s, want %s", i, got[i].ID, want[i])
		}
	}
}
