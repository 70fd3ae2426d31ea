package runner

import (
	"encoding/json"
	"sync"
)

// logBuffer keeps a bounded history of a run's log lines and fans new
// lines out to live subscribers (the websocket stream). Lines are raw
// zerolog JSON.
type logBuffer struct {
	mu      sync.Mutex
	max     int
	entries []json.RawMessage
	subs    map[chan json.RawMessage]struct{}
	closed  bool
}

func newLogBuffer(max int) *logBuffer {
	if max <= 0 {
		max = 512
	}
	return &logBuffer{max: max, subs: make(map[chan json.RawMessage]struct{})}
}

func (b *logBuffer) append(line []byte) {
	cp := make(json.RawMessage, len(line))
	copy(cp, line)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.entries = append(b.entries, cp)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
	for ch := range b.subs {
		select {
		case ch <- cp:
		default:
			// Slow subscriber; drop the line rather than stall the run.
		}
	}
}

// subscribe returns the history so far plus a channel of future lines.
// The channel is closed when the run finishes or cancel is called.
func (b *logBuffer) subscribe() ([]json.RawMessage, <-chan json.RawMessage, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	history := make([]json.RawMessage, len(b.entries))
	copy(history, b.entries)

	ch := make(chan json.RawMessage, 64)
	if b.closed {
		close(ch)
		return history, ch, func() {}
	}
	b.subs[ch] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return history, ch, cancel
}

func (b *logBuffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = make(map[chan json.RawMessage]struct{})
}

// logWriter adapts a logBuffer into a zerolog sink.
type logWriter struct {
	buf *logBuffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf.append(p)
	return len(p), nil
}
