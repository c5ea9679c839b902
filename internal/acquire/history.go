package acquire

import "sync"

// History is the bounded time series fed to the display: frame indices on x,
// photon counts on y. It is a fixed-capacity ring with FIFO eviction, the
// same shape as a sliding plot window: once full, each append overwrites the
// oldest pair. It never reorders or interpolates.
//
// Snapshots are copy-on-read so the display can render without racing the
// eviction on the acquisition tick.
type History struct {
	mu   sync.Mutex
	xs   []int64
	ys   []float64
	head int // next write position
	size int
}

// NewHistory creates an empty history with the given capacity.
// Capacity must be positive; that is enforced by config validation.
func NewHistory(maxPoints int) *History {
	return &History{
		xs: make([]int64, maxPoints),
		ys: make([]float64, maxPoints),
	}
}

// Append adds one (frame index, photons) pair, evicting the oldest pair if
// the buffer is at capacity. O(1).
func (h *History) Append(x int64, y float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.xs[h.head] = x
	h.ys[h.head] = y
	h.head = (h.head + 1) % len(h.xs)
	if h.size < len(h.xs) {
		h.size++
	}
}

// Len returns the number of stored pairs.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

// Cap returns the maximum number of pairs the buffer can hold.
func (h *History) Cap() int {
	return len(h.xs)
}

// Clear atomically empties both sequences.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.head = 0
	h.size = 0
}

// Snapshot returns copies of the x and y sequences ordered oldest to newest.
// The returned slices are owned by the caller.
func (h *History) Snapshot() (xs []int64, ys []float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	xs = make([]int64, h.size)
	ys = make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - h.size + i + len(h.xs)) % len(h.xs)
		xs[i] = h.xs[idx]
		ys[i] = h.ys[idx]
	}
	return xs, ys
}
