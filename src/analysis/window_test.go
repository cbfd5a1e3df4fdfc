package analysis

import (
	"errors"
	"testing"
)

func TestTrimWindowNoCut(t *testing.T) {
	w, err := TrimWindow(600, 1000, nil)
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if w.Start != 0 || w.End != 1000 || w.Len() != 1000 {
		t.Fatalf("unexpected window %+v", w)
	}
	w, _ = TrimWindow(600, 1000, Float(0))
	if w.Start != 0 || w.End != 1000 {
		t.Fatalf("cut=0 should keep everything: %+v", w)
	}
}

func TestTrimWindowLinear(t *testing.T) {
	// 10 s trace, 1000 records, cut 1 s -> 100 records each side.
	w, err := TrimWindow(10, 1000, Float(1))
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if w.Start != 100 || w.End != 900 || w.Len() != 800 {
		t.Fatalf("unexpected window %+v", w)
	}
	// floor, not round
	w, _ = TrimWindow(10, 1000, Float(0.0199))
	if w.Start != 1 {
		t.Fatalf("expected floor to 1, got %+v", w)
	}
}

func TestTrimWindowMonotonic(t *testing.T) {
	const total = 12345
	prev := Window{Start: 0, End: total}
	for c := 0.0; c <= 40; c += 0.37 {
		w, err := TrimWindow(33.3, total, Float(c))
		if err != nil {
			t.Fatalf("cut %v: %v", c, err)
		}
		if w.Start < prev.Start || w.End > prev.End {
			t.Fatalf("cut %v: bounds not monotonic %+v after %+v", c, w, prev)
		}
		if w.Start < 0 || w.Start > total || w.End < 0 || w.End > total {
			t.Fatalf("cut %v: bounds out of range %+v", c, w)
		}
		prev = w
	}
	if !prev.Empty() {
		t.Fatalf("expected window to collapse for a cut beyond the duration: %+v", prev)
	}
}

func TestTrimWindowDegenerate(t *testing.T) {
	w, err := TrimWindow(10, 100, Float(6))
	if err != nil {
		t.Fatalf("trim: %v", err)
	}
	if !w.Empty() || w.Len() != 0 {
		t.Fatalf("expected empty window, got %+v", w)
	}
	w, _ = TrimWindow(0, 1, Float(0.5))
	if !w.Empty() {
		t.Fatalf("zero duration with a cut should be empty: %+v", w)
	}
	w, _ = TrimWindow(0, 0, nil)
	if !w.Empty() {
		t.Fatalf("expected empty window for empty trace")
	}
}

func TestTrimWindowRejectsNegativeCut(t *testing.T) {
	_, err := TrimWindow(10, 100, Float(-1))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "cut" {
		t.Fatalf("expected cut ConfigError, got %v", err)
	}
}
