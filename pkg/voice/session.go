// CLAUDE:SUMMARY Voice session state machine: Idle/Listening/Processing driven by recognizer events, forwarding final text to the dataset filter.
package voice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

// Snapshot is everything the presentation layer renders for a session.
type Snapshot struct {
	ID         string           `json:"id"`
	Dataset    string           `json:"dataset"`
	Query      string           `json:"query"`
	Normalized string           `json:"normalized"`
	Results    []dataset.Record `json:"results"`
	Status     string           `json:"status"`
	State      State            `json:"state"`
}

// Option configures a Session.
type Option func(*Session)

// WithGate sets the permission gate consulted before each pass.
func WithGate(g Gate) Option {
	return func(s *Session) { s.gate = g }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session binds a query, its filtered results and a recognizer together.
// The matching itself stays in the dataset; the session only decides when
// text reaches it.
type Session struct {
	id   string
	data *dataset.Dataset
	rec  Recognizer
	gate Gate

	logger *slog.Logger
	now    func() time.Time

	// ctl serializes Toggle so Start/Stop never interleave.
	ctl sync.Mutex

	mu         sync.Mutex
	state      State
	status     string
	query      string
	results    []dataset.Record
	pass       uint64
	lastActive time.Time
	listeners  []func(Snapshot)
}

// NewSession creates an idle session over data with an empty query, so every
// record is shown.
func NewSession(id string, data *dataset.Dataset, rec Recognizer, opts ...Option) *Session {
	s := &Session{
		id:     id,
		data:   data,
		rec:    rec,
		gate:   AlwaysGranted,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", id)
	s.results = data.Search("")
	s.lastActive = s.now()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// OnChange registers fn to be called with a fresh snapshot after every change.
// Listeners run outside the session lock.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns the current query, results, status and state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	results := make([]dataset.Record, len(s.results))
	copy(results, s.results)
	return Snapshot{
		ID:         s.id,
		Dataset:    s.data.Manifest.ID,
		Query:      s.query,
		Normalized: s.data.NormalizeQuery(s.query),
		Results:    results,
		Status:     s.status,
		State:      s.state,
	}
}

// LastActive returns the time of the last user action or accepted event.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SetQuery replaces the query with typed input and re-runs the filter.
// The listening state is not touched.
func (s *Session) SetQuery(text string) Snapshot {
	s.mu.Lock()
	s.setQueryLocked(text)
	s.lastActive = s.now()
	return s.unlockAndNotify()
}

func (s *Session) setQueryLocked(text string) {
	s.query = text
	s.results = s.data.Search(text)
}

// Toggle is the microphone control. From Idle it checks the gate and starts a
// recognition pass; from Listening or Processing it stops the current pass.
// A refused permission returns ErrPermissionDenied and changes nothing.
func (s *Session) Toggle(ctx context.Context) (Snapshot, error) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	if s.state != Idle {
		s.pass++
		s.state = Idle
		s.status = ""
		s.lastActive = s.now()
		snap := s.unlockAndNotify()
		if err := s.rec.Stop(); err != nil {
			s.logger.Warn("stop recognizer", "error", err)
		}
		return snap, nil
	}

	if !s.gate.Authorized(ctx) {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Info("recognition refused: permission denied")
		return snap, ErrPermissionDenied
	}

	s.pass++
	pass := s.pass
	s.state = Listening
	s.status = StatusListening
	s.lastActive = s.now()
	s.unlockAndNotify()

	if err := s.rec.Start(ctx, s.sink(pass)); err != nil {
		s.logger.Warn("start recognizer", "error", err)
		s.handle(pass, Event{Kind: EventError, Reason: err.Error()})
	}
	return s.Snapshot(), nil
}

// Dispatch feeds an event into the current pass. Events arriving while the
// session is idle are dropped; the return value reports whether ev was applied.
func (s *Session) Dispatch(ev Event) bool {
	s.mu.Lock()
	pass := s.pass
	s.mu.Unlock()
	return s.handle(pass, ev)
}

// Close stops any running pass.
func (s *Session) Close() {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	active := s.state != Idle
	s.pass++
	s.state = Idle
	s.status = ""
	s.mu.Unlock()

	if active {
		if err := s.rec.Stop(); err != nil {
			s.logger.Warn("stop recognizer", "error", err)
		}
	}
}

func (s *Session) sink(pass uint64) Sink {
	return func(ev Event) { s.handle(pass, ev) }
}

func (s *Session) handle(pass uint64, ev Event) bool {
	s.mu.Lock()
	if pass != s.pass || s.state == Idle {
		s.mu.Unlock()
		return false
	}

	switch ev.Kind {
	case EventStarted:
		s.state = Listening
		s.status = StatusListening
	case EventEnded:
		s.state = Processing
		s.status = StatusProcessing
	case EventResult:
		s.setQueryLocked(ev.Text)
		s.state = Idle
		s.status = ""
	case EventError:
		s.logger.Warn("recognition error", "reason", ev.Reason)
		s.state = Idle
		s.status = StatusError
	default:
		s.mu.Unlock()
		return false
	}
	s.lastActive = s.now()
	s.unlockAndNotify()
	return true
}

// unlockAndNotify releases s.mu and calls the listeners with the new snapshot.
func (s *Session) unlockAndNotify() Snapshot {
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}
