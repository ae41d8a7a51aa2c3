package features

// ringBuffer is a fixed-capacity FIFO of scalar history values. Oldest
// values are evicted once capacity is exceeded; length never exceeds
// capacity.
type ringBuffer struct {
	buf   []float64
	head  int // index of the oldest value
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]float64, capacity)}
}

func (r *ringBuffer) Push(v float64) {
	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = v
	if r.count < len(r.buf) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
}

func (r *ringBuffer) Len() int { return r.count }

// At returns the value stepsBack positions behind the most recent push.
// At(0) is the latest value. ok is false when the buffer is too short.
func (r *ringBuffer) At(stepsBack int) (float64, bool) {
	if stepsBack < 0 || stepsBack >= r.count {
		return 0, false
	}
	idx := (r.head + r.count - 1 - stepsBack) % len(r.buf)
	return r.buf[idx], true
}

// Last copies out the most recent n values in chronological order. ok is
// false when fewer than n values are held.
func (r *ringBuffer) Last(n int) ([]float64, bool) {
	if n <= 0 || n > r.count {
		return nil, false
	}
	out := make([]float64, n)
	start := r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.head+start+i)%len(r.buf)]
	}
	return out, true
}

// historyArena owns one ring buffer per metric name. The arena is owned by
// a single pipeline instance; concurrent engineering calls against the same
// pipeline are serialized by the pipeline's lock.
type historyArena struct {
	capacity int
	buffers  map[string]*ringBuffer
}

func newHistoryArena(capacity int) *historyArena {
	return &historyArena{
		capacity: capacity,
		buffers:  make(map[string]*ringBuffer),
	}
}

func (a *historyArena) buffer(name string) *ringBuffer {
	b, ok := a.buffers[name]
	if !ok {
		b = newRingBuffer(a.capacity)
		a.buffers[name] = b
	}
	return b
}

// Push appends a value to the named metric's history and returns the buffer.
func (a *historyArena) Push(name string, v float64) *ringBuffer {
	b := a.buffer(name)
	b.Push(v)
	return b
}

// Reset drops all held history.
func (a *historyArena) Reset() {
	a.buffers = make(map[string]*ringBuffer)
}
