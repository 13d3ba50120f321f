package monitor

import (
	"sync"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

// Watermarks tracks, per lowercased wallet address, the newest transfer
// timestamp already delivered. Values never move backwards.
type Watermarks struct {
	mu    sync.RWMutex
	marks map[string]int64
}

// NewWatermarks creates an empty set
func NewWatermarks() *Watermarks {
	return &Watermarks{marks: make(map[string]int64)}
}

// Get returns the watermark of addr, zero when unknown
func (w *Watermarks) Get(addr string) int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.marks[entities.NormalizeAddress(addr)]
}

// Advance moves the watermark of addr to ts if ts is newer. It reports
// whether the value changed.
func (w *Watermarks) Advance(addr string, ts int64) bool {
	key := entities.NormalizeAddress(addr)

	w.mu.Lock()
	defer w.mu.Unlock()
	if ts <= w.marks[key] {
		return false
	}
	w.marks[key] = ts
	return true
}

// Load merges persisted marks, keeping the larger value per address
func (w *Watermarks) Load(marks map[string]int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for addr, ts := range marks {
		key := entities.NormalizeAddress(addr)
		if ts > w.marks[key] {
			w.marks[key] = ts
		}
	}
}

// Snapshot copies the current marks
func (w *Watermarks) Snapshot() map[string]int64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]int64, len(w.marks))
	for k, v := range w.marks {
		out[k] = v
	}
	return out
}

// Len returns the number of tracked wallets
func (w *Watermarks) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.marks)
}
