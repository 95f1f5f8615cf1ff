package mqtt

import (
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/sweeney/detection-dashboard/internal/logic"
)

// DefaultQueueDepth is how many received detections wait for the next frames.
const DefaultQueueDepth = 64

// Subscriber queues detections received from an inference node and hands
// them out one per frame. It implements source.Source.
type Subscriber struct {
	log         logs.Log
	queue       chan logic.Detection
	dropped     atomic.Uint64
	invalid     atomic.Uint64
	now         func() time.Time
	unsubscribe func() error
}

// NewSubscriber creates a Subscriber with the given queue depth.
func NewSubscriber(log logs.Log, depth int) *Subscriber {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Subscriber{
		log:   log,
		queue: make(chan logic.Detection, depth),
		now:   time.Now,
	}
}

// Handle decodes one message payload and queues the detection.
// Invalid payloads are counted and logged; when the queue is full the new
// detection is dropped.
func (s *Subscriber) Handle(payload []byte) {
	d, err := ParsePayload(payload, s.now())
	if err != nil {
		n := s.invalid.Add(1)
		s.log.Warnf("mqtt: ignoring detection payload (%d so far): %v", n, err)
		return
	}

	select {
	case s.queue <- d:
	default:
		if s.dropped.Add(1) == 1 {
			s.log.Warnf("mqtt: detection queue full (%d), dropping", cap(s.queue))
		}
	}
}

// Next returns a queued detection if one is waiting.
func (s *Subscriber) Next(now time.Time) (logic.Detection, bool, error) {
	select {
	case d := <-s.queue:
		return d, true, nil
	default:
		return logic.Detection{}, false, nil
	}
}

// Discard empties the queue and returns how many detections it held.
// Detections that arrive while detection is stopped are discarded this way
// rather than recorded late.
func (s *Subscriber) Discard() int {
	n := 0
	for {
		select {
		case <-s.queue:
			n++
		default:
			return n
		}
	}
}

// Dropped returns how many detections were dropped on a full queue.
func (s *Subscriber) Dropped() uint64 {
	return s.dropped.Load()
}

// Invalid returns how many payloads could not be decoded.
func (s *Subscriber) Invalid() uint64 {
	return s.invalid.Load()
}

// Close removes the broker subscription, if any.
func (s *Subscriber) Close() error {
	if s.unsubscribe == nil {
		return nil
	}
	return s.unsubscribe()
}
