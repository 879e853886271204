package resilience

import "runtime"

// MemoryGate is a simple admission check: when heap usage is above the
// configured ceiling the scheduling loop skips starting new work for the
// current run. It never cancels work already in flight.
type MemoryGate struct {
	maxHeapBytes uint64
	readMem      func(*runtime.MemStats)
}

// NewMemoryGate creates a gate with the given heap ceiling in bytes.
// A zero ceiling disables the gate.
func NewMemoryGate(maxHeapBytes uint64) *MemoryGate {
	return &MemoryGate{maxHeapBytes: maxHeapBytes, readMem: runtime.ReadMemStats}
}

// Allow reports whether new work may start this run.
func (g *MemoryGate) Allow() bool {
	if g.maxHeapBytes == 0 {
		return true
	}
	var ms runtime.MemStats
	g.readMem(&ms)
	return ms.HeapAlloc < g.maxHeapBytes
}

// HeapAlloc returns the current heap allocation for observability.
func (g *MemoryGate) HeapAlloc() uint64 {
	var ms runtime.MemStats
	g.readMem(&ms)
	return ms.HeapAlloc
}
