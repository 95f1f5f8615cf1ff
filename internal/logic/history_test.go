package logic

import "testing"

func conf(c float64) Detection {
	return Detection{Objects: 1, Confidence: c}
}

func TestHistoryEmpty(t *testing.T) {
	h := newHistory(10)
	got := h.newestFirst()
	if len(got) != 0 {
		t.Errorf("expected no items, got %d", len(got))
	}
	if h.len() != 0 {
		t.Errorf("expected len 0, got %d", h.len())
	}
}

func TestHistoryPushOrder(t *testing.T) {
	h := newHistory(10)
	for i := 0; i < 5; i++ {
		if h.push(conf(float64(i))) {
			t.Errorf("push %d: unexpected eviction", i)
		}
	}

	got := h.newestFirst()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		want := float64(4 - i)
		if got[i].Confidence != want {
			t.Errorf("item %d: expected %v, got %v", i, want, got[i].Confidence)
		}
	}
}

func TestHistoryOverflow(t *testing.T) {
	capacity := 5
	h := newHistory(capacity)

	// Push capacity+3 items (0..7); the most recent 5 (7..3) remain
	for i := 0; i < capacity+3; i++ {
		evicted := h.push(conf(float64(i)))
		if wantEvict := i >= capacity; evicted != wantEvict {
			t.Errorf("push %d: evicted=%v, want %v", i, evicted, wantEvict)
		}
	}

	got := h.newestFirst()
	if len(got) != capacity {
		t.Fatalf("expected %d items, got %d", capacity, len(got))
	}
	for i := 0; i < capacity; i++ {
		want := float64(capacity + 2 - i)
		if got[i].Confidence != want {
			t.Errorf("item %d: expected %v, got %v", i, want, got[i].Confidence)
		}
	}
}

func TestHistoryCapacityOne(t *testing.T) {
	h := newHistory(1)
	h.push(conf(1))
	h.push(conf(2))

	got := h.newestFirst()
	if len(got) != 1 || got[0].Confidence != 2 {
		t.Errorf("expected only the latest item, got %+v", got)
	}
}

func TestHistoryReadDoesNotConsume(t *testing.T) {
	h := newHistory(3)
	h.push(conf(1))
	h.newestFirst()
	if h.len() != 1 {
		t.Errorf("expected len 1 after read, got %d", h.len())
	}
}
