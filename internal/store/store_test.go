package store

import (
	"context"
	"errors"
	"testing"
)

// A nil store stands in for disabled persistence; every method must be safe
// to call on it.
func TestNilStoreIsDisabled(t *testing.T) {
	var s *Store
	ctx := context.Background()

	if s.Enabled() {
		t.Error("nil store reports enabled")
	}

	if _, err := s.SaveRun(ctx, "AAPL", "dcf", map[string]int{"x": 1}); !errors.Is(err, ErrDisabled) {
		t.Errorf("SaveRun err = %v, want ErrDisabled", err)
	}
	if _, err := s.History(ctx, "AAPL", 10); !errors.Is(err, ErrDisabled) {
		t.Errorf("History err = %v, want ErrDisabled", err)
	}
	if _, err := s.Latest(ctx, "AAPL", "dcf"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Latest err = %v, want ErrDisabled", err)
	}

	s.Close() // must not panic
}

func TestOpenEmptyURLDisables(t *testing.T) {
	s, err := Open(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("Open(\"\") err = %v", err)
	}
	if s != nil {
		t.Error("Open with empty URL should return a nil store")
	}
}
