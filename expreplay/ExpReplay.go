// Package expreplay implements a fixed-capacity experience replay
// buffer used to decorrelate value-based training updates
package expreplay

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Experience is a single environment transition. An Experience is
// immutable once constructed and is owned by the Buffer after
// insertion.
type Experience struct {
	State     mat.Vector
	Action    int
	Reward    float64
	NextState mat.Vector
	Done      bool
}

// Buffer implements a fixed-capacity circular store of Experiences
// with uniform without-replacement batch sampling.
//
// While the buffer holds fewer than maxCapacity transitions, pushes
// append. Once full, each push overwrites the slot at the write cursor
// and advances the cursor modulo the capacity, so the oldest-inserted
// transition is always evicted first.
//
// The buffer owns a mutable random generator used only for sampling;
// sampling therefore advances the generator but never changes the
// stored transitions.
type Buffer struct {
	experiences []Experience
	maxCapacity int
	writeIndex  int
	rng         *rand.Rand
}

// New creates and returns a new replay Buffer holding at most capacity
// transitions
func New(capacity int, seed int64) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("new: capacity must be >= 1 \n\thave(%v)",
			capacity)
	}

	return &Buffer{
		experiences: make([]Experience, 0, capacity),
		maxCapacity: capacity,
		rng:         rand.New(rand.NewSource(seed)),
	}, nil
}

// Push adds a transition to the buffer, evicting the oldest-inserted
// transition if the buffer is full
func (b *Buffer) Push(experience Experience) {
	if len(b.experiences) < b.maxCapacity {
		b.experiences = append(b.experiences, experience)
		return
	}

	b.experiences[b.writeIndex] = experience
	b.writeIndex = (b.writeIndex + 1) % b.maxCapacity
}

// Sample draws batchSize transitions from the buffer, each from a
// distinct slot. Sampling permutes all currently held indices and
// takes the first batchSize of them, so its cost is proportional to
// the buffer's current size. Repeated calls are independent: the same
// transition may appear across separate batches.
func (b *Buffer) Sample(batchSize int) ([]Experience, error) {
	if len(b.experiences) < batchSize {
		return nil, &ExpReplayError{
			Op:  "sample",
			Err: errInsufficientSamples,
		}
	}

	indices := b.rng.Perm(len(b.experiences))

	batch := make([]Experience, batchSize)
	for i := 0; i < batchSize; i++ {
		batch[i] = b.experiences[indices[i]]
	}
	return batch, nil
}

// CanSample returns whether the buffer currently holds at least n
// transitions. CanSample has no side effects.
func (b *Buffer) CanSample(n int) bool {
	return len(b.experiences) >= n
}

// Capacity returns the current number of transitions in the buffer
func (b *Buffer) Capacity() int {
	return len(b.experiences)
}

// MaxCapacity returns the maximum number of transitions the buffer can
// hold
func (b *Buffer) MaxCapacity() int {
	return b.maxCapacity
}

// Clear drops all stored transitions. The write cursor is left as is;
// it is only consulted once the buffer has filled again.
func (b *Buffer) Clear() {
	b.experiences = b.experiences[:0]
}
