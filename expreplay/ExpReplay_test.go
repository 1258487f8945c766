package expreplay

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// tagged returns an Experience whose Reward tags its insertion order
func tagged(i int) Experience {
	return Experience{
		State:     mat.NewVecDense(4, []float64{float64(i), 0, 0, 0}),
		Action:    i % 2,
		Reward:    float64(i),
		NextState: mat.NewVecDense(4, nil),
		Done:      false,
	}
}

func TestNewInvalidCapacity(t *testing.T) {
	if _, err := New(0, 12345); err == nil {
		t.Error("expected construction error for capacity 0")
	}
}

func TestPushEvictsOldestFirst(t *testing.T) {
	capacity := 10
	extra := 7
	buffer, err := New(capacity, 12345)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < capacity+extra; i++ {
		buffer.Push(tagged(i))
	}

	if buffer.Capacity() != capacity {
		t.Fatalf("wrong size after overfill \n\twant(%v)\n\thave(%v)",
			capacity, buffer.Capacity())
	}

	// The buffer must contain exactly the last capacity pushes. Slots
	// [writeIndex, capacity) hold the oldest retained transitions in
	// insertion order; slots [0, writeIndex) hold the newest.
	next := extra
	for i := buffer.writeIndex; i < capacity; i++ {
		if have := buffer.experiences[i].Reward; have != float64(next) {
			t.Errorf("slot %v \n\twant(tag %v)\n\thave(tag %v)", i, next,
				have)
		}
		next++
	}
	for i := 0; i < buffer.writeIndex; i++ {
		if have := buffer.experiences[i].Reward; have != float64(next) {
			t.Errorf("slot %v \n\twant(tag %v)\n\thave(tag %v)", i, next,
				have)
		}
		next++
	}
}

func TestSampleDistinctSlots(t *testing.T) {
	buffer, err := New(50, 12345)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		buffer.Push(tagged(i))
	}

	for trial := 0; trial < 10; trial++ {
		batch, err := buffer.Sample(32)
		if err != nil {
			t.Fatal(err)
		}
		if len(batch) != 32 {
			t.Fatalf("wrong batch size \n\twant(%v)\n\thave(%v)", 32,
				len(batch))
		}

		seen := make(map[float64]bool)
		for _, experience := range batch {
			if seen[experience.Reward] {
				t.Errorf("trial %v: duplicate slot with tag %v in one batch",
					trial, experience.Reward)
			}
			seen[experience.Reward] = true
		}
	}
}

func TestSampleInsufficientSamples(t *testing.T) {
	buffer, err := New(100, 12345)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		buffer.Push(tagged(i))
	}

	_, err = buffer.Sample(6)
	if err == nil {
		t.Fatal("expected error when sampling more than stored")
	}
	if !IsInsufficientSamples(err) {
		t.Errorf("wrong error type: %v", err)
	}
}

func TestCanSample(t *testing.T) {
	buffer, err := New(100, 12345)
	if err != nil {
		t.Fatal(err)
	}

	if buffer.CanSample(1) {
		t.Error("empty buffer claims it can sample")
	}
	for i := 0; i < 4; i++ {
		buffer.Push(tagged(i))
	}
	if !buffer.CanSample(4) {
		t.Error("buffer with 4 transitions cannot sample 4")
	}
	if buffer.CanSample(5) {
		t.Error("buffer with 4 transitions claims it can sample 5")
	}
}

func TestClear(t *testing.T) {
	capacity := 8
	buffer, err := New(capacity, 12345)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < capacity+3; i++ {
		buffer.Push(tagged(i))
	}

	buffer.Clear()
	if buffer.Capacity() != 0 {
		t.Errorf("size not zero after clear: %v", buffer.Capacity())
	}
	if buffer.CanSample(1) {
		t.Error("cleared buffer claims it can sample")
	}

	// The buffer must fill and wrap correctly again after a clear
	for i := 0; i < capacity+1; i++ {
		buffer.Push(tagged(100 + i))
	}
	if buffer.Capacity() != capacity {
		t.Errorf("wrong size after refill \n\twant(%v)\n\thave(%v)",
			capacity, buffer.Capacity())
	}
}
