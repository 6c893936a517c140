package paper

import (
	"sync"

	"kingbot-go/internal/execution"
)

// Ledger keeps the most recent fills in memory for inspection. The bot runs indefinitely,
// so only the last limit fills are retained.
type Ledger struct {
	mu    sync.Mutex
	limit int
	fills []execution.Fill
}

// NewLedger creates an empty ledger retaining at most limit fills; limit <= 0 keeps everything.
func NewLedger(limit int) *Ledger {
	if limit < 0 {
		limit = 0
	}
	return &Ledger{limit: limit, fills: make([]execution.Fill, 0, limit)}
}

// Record appends a fill, dropping the oldest once the limit is reached.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit > 0 && len(l.fills) == l.limit {
		copy(l.fills, l.fills[1:])
		l.fills = l.fills[:len(l.fills)-1]
	}
	l.fills = append(l.fills, fill)
}

// Snapshot returns a copy of the retained fills, oldest first.
func (l *Ledger) Snapshot() []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]execution.Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

// MultiRecorder fans a fill out to several recorders.
type MultiRecorder []execution.FillRecorder

// Record implements execution.FillRecorder.
func (m MultiRecorder) Record(fill execution.Fill) {
	for _, r := range m {
		if r != nil {
			r.Record(fill)
		}
	}
}
