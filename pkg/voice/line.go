package voice

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrBusy is returned when Start is called while a pass is still running.
var ErrBusy = errors.New("recognizer busy")

// LineRecognizer treats each line read from r as one spoken transcript.
// A pass emits started, then ended and result once a line arrives. A blank
// line is reported as "no speech", end of input as an error.
type LineRecognizer struct {
	r io.Reader

	once  sync.Once
	lines chan string
	err   error // read error, valid once lines is closed

	mu   sync.Mutex
	stop chan struct{}
}

// NewLineRecognizer returns a recognizer reading transcripts from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: r, lines: make(chan string)}
}

func (l *LineRecognizer) readLoop() {
	go func() {
		defer close(l.lines)
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			l.lines <- sc.Text()
		}
		l.err = sc.Err()
	}()
}

// Start begins a pass. ctx bounds how long the pass waits for a line.
func (l *LineRecognizer) Start(ctx context.Context, sink Sink) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		return ErrBusy
	}
	l.once.Do(l.readLoop)

	stop := make(chan struct{})
	l.stop = stop
	go l.run(ctx, stop, sink)
	return nil
}

func (l *LineRecognizer) run(ctx context.Context, stop chan struct{}, sink Sink) {
	sink(Event{Kind: EventStarted})

	select {
	case <-ctx.Done():
		l.finish(stop)
		sink(Event{Kind: EventError, Reason: ctx.Err().Error()})
	case <-stop:
	case line, ok := <-l.lines:
		l.finish(stop)
		if !ok {
			reason := "input closed"
			if l.err != nil {
				reason = l.err.Error()
			}
			sink(Event{Kind: EventError, Reason: reason})
			return
		}
		sink(Event{Kind: EventEnded})
		if strings.TrimSpace(line) == "" {
			sink(Event{Kind: EventError, Reason: "no speech"})
			return
		}
		sink(Event{Kind: EventResult, Text: line})
	}
}

// finish marks the pass done before its final events go out, so the session
// may start the next pass from inside its change listeners.
func (l *LineRecognizer) finish(stop chan struct{}) {
	l.mu.Lock()
	if l.stop == stop {
		l.stop = nil
	}
	l.mu.Unlock()
}

// Stop aborts the running pass, if any. A line already being read stays
// queued for the next pass.
func (l *LineRecognizer) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop != nil {
		close(l.stop)
		l.stop = nil
	}
	return nil
}
