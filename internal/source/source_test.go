package source

import (
	"errors"
	"testing"
	"time"

	"github.com/sweeney/detection-dashboard/internal/logic"
)

var now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestRandomSourceRanges(t *testing.T) {
	s := NewRandomSource(42)
	for i := 0; i < 1000; i++ {
		d, ok, err := s.Next(now)
		if err != nil {
			t.Fatalf("frame %d: unexpected error: %v", i, err)
		}
		if !ok {
			t.Fatalf("frame %d: random source should always yield", i)
		}
		if d.Objects < 1 || d.Objects > MaxSimulatedObjects {
			t.Errorf("frame %d: objects %d out of range", i, d.Objects)
		}
		if d.Confidence < MinSimulatedConfidence || d.Confidence >= MinSimulatedConfidence+SimulatedSpread {
			t.Errorf("frame %d: confidence %v out of range", i, d.Confidence)
		}
		if !d.Timestamp.Equal(now) {
			t.Errorf("frame %d: timestamp %v, want %v", i, d.Timestamp, now)
		}
	}
}

func TestRandomSourceSeedIsDeterministic(t *testing.T) {
	a := NewRandomSource(7)
	b := NewRandomSource(7)
	for i := 0; i < 20; i++ {
		da, _, _ := a.Next(now)
		db, _, _ := b.Next(now)
		if da.Objects != db.Objects || da.Confidence != db.Confidence {
			t.Fatalf("frame %d: same seed diverged: %+v vs %+v", i, da, db)
		}
	}
}

func TestFakeSourceScript(t *testing.T) {
	stamped := now.Add(-time.Second)
	f := NewFakeSource([]logic.Detection{
		{Objects: 3, Confidence: 80},
		{Objects: 2, Confidence: 90, Timestamp: stamped},
	})

	d, ok, err := f.Next(now)
	if err != nil || !ok {
		t.Fatalf("first: ok=%v err=%v", ok, err)
	}
	if d.Objects != 3 || !d.Timestamp.Equal(now) {
		t.Errorf("first: got %+v", d)
	}

	d, ok, _ = f.Next(now)
	if !ok || d.Objects != 2 || !d.Timestamp.Equal(stamped) {
		t.Errorf("second: got %+v ok=%v", d, ok)
	}

	if _, ok, _ := f.Next(now); ok {
		t.Error("exhausted source should report nothing")
	}
	if f.Calls != 3 {
		t.Errorf("Calls: got %d, want 3", f.Calls)
	}
	if f.Remaining() != 0 {
		t.Errorf("Remaining: got %d, want 0", f.Remaining())
	}
}

func TestFakeSourceError(t *testing.T) {
	f := NewFakeSource([]logic.Detection{{Objects: 1}})
	f.NextError = errors.New("detector offline")

	if _, ok, err := f.Next(now); err == nil || ok {
		t.Errorf("expected error, got ok=%v err=%v", ok, err)
	}
	if f.Remaining() != 1 {
		t.Error("error should not consume a detection")
	}
}

func TestFakeSourceClose(t *testing.T) {
	f := NewFakeSource(nil)
	if f.Closed {
		t.Error("should not be closed initially")
	}
	f.Close()
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}
