package faultinj

import (
	"math"
	"math/rand"
	"sync"
)

// scriptedSource replays a fixed sequence of Int63 values, then repeats
// the last one. Combined with rand.New, it gives a Policy deterministic
// control over exactly which forwarded datagram is dropped or corrupted,
// which a plain probability can't guarantee in a specific test scenario.
type scriptedSource struct {
	mu     sync.Mutex
	values []int64
	next   int
}

func (s *scriptedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return math.MaxInt64
	}
	v := s.values[s.next]
	if s.next < len(s.values)-1 {
		s.next++
	}
	return v
}

func (s *scriptedSource) Seed(int64) {}

// Pass is a scriptedSource value that always makes Policy.roll() return
// close to 1.0 (1 - 2^-53), i.e. never below any
// DropProbability/CorruptProbability less than 1. It is not math.MaxInt64,
// which converts to exactly 1.0 and makes rand.Float64 resample.
const Pass int64 = 1<<63 - 1<<10

// Drop is a scriptedSource value that always makes Policy.roll() return
// 0.0, i.e. below any DropProbability/CorruptProbability greater than 0.
const Drop int64 = 0

// NewScriptedRand returns a *rand.Rand whose Float64() outputs follow
// sequence exactly, then holds at the last entry. Use with Policy.Rand
// and the Pass/Drop constants to script an exact sequence of per-packet
// decisions for a Relay.
func NewScriptedRand(sequence ...int64) *rand.Rand {
	return rand.New(&scriptedSource{values: sequence})
}
