package apperr

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestRangeErrorMatchesTaxonomy(t *testing.T) {
	err := CheckRange("weight", 300.1, 20, 300)
	if err == nil {
		t.Fatal("expected error for 300.1")
	}
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	var re *RangeError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &re) {
		t.Fatal("expected *RangeError in chain")
	}
	if re.Field != "weight" {
		t.Errorf("field = %q, want weight", re.Field)
	}
}

func TestCheckRangeInclusiveBounds(t *testing.T) {
	tests := []struct {
		v       float64
		wantErr bool
	}{
		{19.9, true},
		{20, false},
		{150, false},
		{300, false},
		{300.1, true},
		{math.NaN(), true},
	}
	for _, tt := range tests {
		err := CheckRange("weight", tt.v, 20, 300)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckRange(%v) err = %v, wantErr %v", tt.v, err, tt.wantErr)
		}
	}
}

func TestUnavailable(t *testing.T) {
	if Unavailable("get", nil) != nil {
		t.Error("expected nil for nil cause")
	}

	cause := errors.New("connection refused")
	err := Unavailable("get user", cause)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Errorf("expected ErrBackendUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause in chain, got %v", err)
	}

	// Already classified errors are not wrapped twice.
	if again := Unavailable("retry", err); again != err {
		t.Errorf("expected same error back, got %v", again)
	}
}
