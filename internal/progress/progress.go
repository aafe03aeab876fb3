// Package progress carries transfer progress, and the log text interleaved
// with it, from the download core to whatever renders it. The core only ever
// writes; presentation code decides how and when to draw.
package progress

import (
	"io"
	"sync"
)

// Update is one progress report. Fraction is in [0, 1] and only meaningful
// while Visible is true.
type Update struct {
	Fraction float64
	Visible  bool
}

// Hidden is the update sent when a transfer ends.
var Hidden = Update{}

// Sink accepts progress updates.
type Sink interface {
	Report(Update)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Update)

func (f SinkFunc) Report(u Update) { f(u) }

// Discard drops every update.
var Discard Sink = SinkFunc(func(Update) {})

type monotonic struct {
	mu   sync.Mutex
	next Sink
	last float64
	on   bool
}

// Monotonic wraps next so that, while visible, reported fractions never
// decrease and stay within [0, 1]. A hidden update resets the high-water mark.
func Monotonic(next Sink) Sink {
	if next == nil {
		next = Discard
	}
	return &monotonic{next: next}
}

func (m *monotonic) Report(u Update) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !u.Visible {
		m.last = 0
		m.on = false
		m.next.Report(Hidden)
		return
	}

	f := min(max(u.Fraction, 0), 1)
	if m.on && f < m.last {
		return
	}
	m.on = true
	m.last = f
	m.next.Report(Update{Fraction: f, Visible: true})
}

// Event is one item drained by the presentation layer: either a progress
// Update or a line of log text, never both.
type Event struct {
	Update Update
	Text   string
	IsText bool
}

// Queue is a channel-backed Sink and io.Writer. Background work reports
// progress and writes log text into it; the presentation layer drains Events
// and applies both in the order they were produced.
type Queue struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

// NewQueue returns a Queue buffering up to size undelivered events. Report
// and Write block when the buffer is full so nothing is lost or reordered.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

// Report enqueues u. Updates reported after Close are dropped.
func (q *Queue) Report(u Update) {
	q.send(Event{Update: u})
}

// Write enqueues p as log text. It fails with io.ErrClosedPipe after Close.
func (q *Queue) Write(p []byte) (int, error) {
	if !q.send(Event{Text: string(p), IsText: true}) {
		return 0, io.ErrClosedPipe
	}
	return len(p), nil
}

func (q *Queue) send(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.ch <- e
	return true
}

// Events returns the channel the renderer drains. It is closed by Close.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Close stops the queue. It is safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
