package logic

import "slices"

// history is a fixed-capacity ring of detections. Pushing onto a full ring
// overwrites the oldest entry.
// Not safe for concurrent use; the caller must synchronize.
type history struct {
	buf      []Detection
	capacity int
	head     int // next write position
	count    int
}

func newHistory(capacity int) *history {
	return &history{
		buf:      make([]Detection, capacity),
		capacity: capacity,
	}
}

// push stores d and reports whether an older entry was evicted.
func (h *history) push(d Detection) bool {
	evicted := h.count == h.capacity
	h.buf[h.head] = d
	h.head = (h.head + 1) % h.capacity
	if !evicted {
		h.count++
	}
	return evicted
}

// newestFirst returns a copy of the stored detections, most recent first.
func (h *history) newestFirst() []Detection {
	result := make([]Detection, h.count)
	// Newest item is just behind head
	for i := 0; i < h.count; i++ {
		d := h.buf[(h.head-1-i+h.capacity)%h.capacity]
		d.Labels = slices.Clone(d.Labels)
		result[i] = d
	}
	return result
}

// newest returns the most recent detection, if any.
func (h *history) newest() (Detection, bool) {
	if h.count == 0 {
		return Detection{}, false
	}
	d := h.buf[(h.head-1+h.capacity)%h.capacity]
	d.Labels = slices.Clone(d.Labels)
	return d, true
}

func (h *history) len() int {
	return h.count
}
