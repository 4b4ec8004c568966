package warmup

import (
	"sync"
	"time"
)

const meterWindow = 64

// Meter tracks the recent frame rate from the last 64 arrival times.
// Safe for concurrent use.
type Meter struct {
	mu    sync.Mutex
	times [meterWindow]time.Time
	count int
	index int
}

// Mark records a frame arrival.
func (m *Meter) Mark(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.times[m.index] = at
	m.index = (m.index + 1) % meterWindow
	if m.count < meterWindow {
		m.count++
	}
}

// Rate returns frames per second across the buffered window, counting
// silence up to now. Zero with fewer than two samples.
func (m *Meter) Rate(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count < 2 {
		return 0
	}
	oldest := m.times[(m.index-m.count+meterWindow)%meterWindow]
	span := now.Sub(oldest).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(m.count-1) / span
}

// Reset clears the window.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count, m.index = 0, 0
}
