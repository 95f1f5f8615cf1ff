package source

import (
	"math/rand"
	"time"

	"github.com/sweeney/detection-dashboard/internal/logic"
)

// RandomSource simulates a detector: every frame yields 1 to
// MaxSimulatedObjects objects with a confidence between
// MinSimulatedConfidence and MinSimulatedConfidence+SimulatedSpread.
type RandomSource struct {
	rng *rand.Rand
}

// NewRandomSource creates a simulated source. A zero seed picks one from
// the clock.
func NewRandomSource(seed int64) *RandomSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomSource{rng: rand.New(rand.NewSource(seed))}
}

// Next always returns a detection.
func (s *RandomSource) Next(now time.Time) (logic.Detection, bool, error) {
	return logic.Detection{
		Timestamp:  now,
		Objects:    s.rng.Intn(MaxSimulatedObjects) + 1,
		Confidence: s.rng.Float64()*SimulatedSpread + MinSimulatedConfidence,
	}, true, nil
}

// Close is a no-op.
func (s *RandomSource) Close() error {
	return nil
}
