// Package history records a bounded time series of simulation frames.
package history

import "github.com/san-kum/chaoskit/internal/dynamo"

const (
	// DefaultStride samples one record every N accepted steps.
	DefaultStride = 5
	// DefaultCapacity bounds the record count; oldest entries are
	// evicted first on overflow.
	DefaultCapacity = 1000
)

// Record is one sampled frame.
type Record struct {
	Time   float64
	Step   int
	State  dynamo.State
	Energy float64
	Drift  float64
}

// Store is a FIFO ring buffer of Records.
type Store struct {
	stride   int
	capacity int
	records  []Record
	head     int
	count    int
}

func New(stride, capacity int) *Store {
	if stride <= 0 {
		stride = DefaultStride
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		stride:   stride,
		capacity: capacity,
		records:  make([]Record, capacity),
	}
}

func (s *Store) Stride() int { return s.stride }
func (s *Store) Len() int    { return s.count }

// Due reports whether the given accepted-step count falls on the
// sampling stride.
func (s *Store) Due(step int) bool {
	return step%s.stride == 0
}

// Append stores a record, evicting the oldest when full. The state is
// cloned; callers may keep mutating theirs.
func (s *Store) Append(r Record) {
	r.State = r.State.Clone()
	s.records[(s.head+s.count)%s.capacity] = r
	if s.count < s.capacity {
		s.count++
	} else {
		s.head = (s.head + 1) % s.capacity
	}
}

// Records returns records oldest-first.
func (s *Store) Records() []Record {
	out := make([]Record, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.records[(s.head+i)%s.capacity]
	}
	return out
}

// Clear drops all records.
func (s *Store) Clear() {
	s.head = 0
	s.count = 0
}
