package windows

import (
	"testing"
	"time"
)

func TestCatalogNamesUnique(t *testing.T) {
	seen := make(map[Name]struct{})
	for _, w := range Catalog() {
		if _, dup := seen[w.Name]; dup {
			t.Fatalf("duplicate window name %q", w.Name)
		}
		seen[w.Name] = struct{}{}
	}
}

func TestCatalogShape(t *testing.T) {
	var anchors, offsets int
	for _, w := range Catalog() {
		if w.Anchor {
			anchors++
			if w.Offset != 0 {
				t.Fatalf("anchor %q must carry a zero offset", w.Name)
			}
		} else {
			offsets++
			if w.Offset == 0 {
				t.Fatalf("offset window %q has zero offset", w.Name)
			}
		}
		if w.Tolerance <= 0 {
			t.Fatalf("window %q has non-positive tolerance", w.Name)
		}
	}
	if anchors != 3 {
		t.Fatalf("expected 3 anchors, got %d", anchors)
	}
	if offsets != 22 {
		t.Fatalf("expected 22 offset windows, got %d", offsets)
	}
	if Count() != 25 {
		t.Fatalf("expected 25 total windows, got %d", Count())
	}
}

func TestToleranceMonotonicWithOffset(t *testing.T) {
	last := time.Duration(0)
	for _, off := range []time.Duration{
		time.Minute, 5 * time.Minute, 10 * time.Minute, 30 * time.Minute,
		time.Hour, 4 * time.Hour, 24 * time.Hour, 7 * 24 * time.Hour,
		30 * 24 * time.Hour, 180 * 24 * time.Hour, 365 * 24 * time.Hour,
	} {
		tol := ToleranceFor(off)
		if tol < last {
			t.Fatalf("tolerance for offset %s shrank: %s < %s", off, tol, last)
		}
		last = tol
	}
}

func TestToleranceSymmetric(t *testing.T) {
	for _, off := range []time.Duration{time.Minute, time.Hour, 24 * time.Hour} {
		if ToleranceFor(off) != ToleranceFor(-off) {
			t.Fatalf("tolerance must depend on offset magnitude only (offset %s)", off)
		}
	}
}

func TestTargetForOffsets(t *testing.T) {
	event := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)
	for _, w := range Catalog() {
		if w.Anchor {
			continue
		}
		got := TargetFor(w, event)
		if want := event.Add(w.Offset); !got.Equal(want) {
			t.Fatalf("window %q: target %s, want %s", w.Name, got, want)
		}
	}
}

func TestTargetForAnchors(t *testing.T) {
	// 14:30 UTC on 2024-07-01 is 10:30 exchange-local.
	event := time.Date(2024, 7, 1, 14, 30, 0, 0, time.UTC)

	for _, tc := range []struct {
		name Name
		want time.Time
	}{
		{AtEvent, event},
		{DailyOpen, time.Date(2024, 7, 1, 13, 30, 0, 0, time.UTC)},
		{DailyClose, time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC)},
	} {
		w, ok := lookup(tc.name)
		if !ok {
			t.Fatalf("window %q missing from catalog", tc.name)
		}
		if got := TargetFor(w, event); !got.Equal(tc.want) {
			t.Fatalf("anchor %q: target %s, want %s", tc.name, got.UTC(), tc.want)
		}
	}
}

func lookup(name Name) (Window, bool) {
	for _, w := range Catalog() {
		if w.Name == name {
			return w, true
		}
	}
	return Window{}, false
}
