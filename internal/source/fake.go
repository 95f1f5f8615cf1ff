package source

import (
	"time"

	"github.com/sweeney/detection-dashboard/internal/logic"
)

// FakeSource is a test double that returns scripted detections.
type FakeSource struct {
	// Detections are returned in order, one per call to Next.
	// A zero Timestamp is replaced with the frame time.
	// Once exhausted, Next reports nothing.
	Detections []logic.Detection

	// index tracks current position in Detections
	index int

	// Calls counts calls to Next
	Calls int

	// Closed tracks if Close was called
	Closed bool

	// NextError, if set, will be returned by Next
	NextError error
}

// NewFakeSource creates a FakeSource with the given detections.
func NewFakeSource(detections []logic.Detection) *FakeSource {
	return &FakeSource{Detections: detections}
}

// Next returns the next scripted detection.
func (f *FakeSource) Next(now time.Time) (logic.Detection, bool, error) {
	f.Calls++
	if f.NextError != nil {
		return logic.Detection{}, false, f.NextError
	}
	if f.index >= len(f.Detections) {
		return logic.Detection{}, false, nil
	}

	d := f.Detections[f.index]
	f.index++
	if d.Timestamp.IsZero() {
		d.Timestamp = now
	}
	return d, true, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}

// Remaining returns how many scripted detections have not been returned yet.
func (f *FakeSource) Remaining() int {
	return len(f.Detections) - f.index
}
