package voice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/voxsearch/pkg/dataset"
)

// fakeRecognizer records Start/Stop calls and keeps each pass's sink.
type fakeRecognizer struct {
	mu       sync.Mutex
	sinks    []Sink
	starts   int
	stops    int
	startErr error
}

func (f *fakeRecognizer) Start(_ context.Context, sink Sink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.sinks = append(f.sinks, sink)
	return nil
}

func (f *fakeRecognizer) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeRecognizer) sink(i int) Sink {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sinks[i]
}

func newTestSession(rec Recognizer, opts ...Option) *Session {
	return NewSession("s1", dataset.Builtin(), rec, opts...)
}

func TestNewSession_ShowsAllRecords(t *testing.T) {
	s := newTestSession(&fakeRecognizer{})
	snap := s.Snapshot()

	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Status)
	assert.Empty(t, snap.Query)
	assert.Len(t, snap.Results, len(dataset.Builtin().Records))
	assert.Equal(t, dataset.BuiltinID, snap.Dataset)
}

func TestSetQuery_FiltersWithoutChangingState(t *testing.T) {
	s := newTestSession(&fakeRecognizer{})

	snap := s.SetQuery("Ten MM glass")
	assert.Equal(t, "10 mm glass", snap.Normalized)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "10 mm tempered glass", snap.Results[0].Text)
	assert.Equal(t, Idle, snap.State)
}

func TestToggle_FullPass(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)
	ctx := context.Background()

	snap, err := s.Toggle(ctx)
	require.NoError(t, err)
	assert.Equal(t, Listening, snap.State)
	assert.Equal(t, StatusListening, snap.Status)
	require.Equal(t, 1, rec.starts)

	sink := rec.sink(0)
	sink(Event{Kind: EventStarted})
	assert.Equal(t, Listening, s.Snapshot().State)

	sink(Event{Kind: EventEnded})
	snap = s.Snapshot()
	assert.Equal(t, Processing, snap.State)
	assert.Equal(t, StatusProcessing, snap.Status)

	sink(Event{Kind: EventResult, Text: "DM zero zero zero zero zero one one"})
	snap = s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Status)
	assert.Equal(t, "DM zero zero zero zero zero one one", snap.Query)
	// Each spoken digit is its own word, so both codes contain all of them.
	require.Len(t, snap.Results, 2)
	assert.Equal(t, "DM0000011", snap.Results[0].Text)
	assert.Equal(t, "DM0000012", snap.Results[1].Text)
}

func TestToggle_OnlyFirstResultApplies(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)

	_, err := s.Toggle(context.Background())
	require.NoError(t, err)
	sink := rec.sink(0)

	sink(Event{Kind: EventResult, Text: "glass"})
	sink(Event{Kind: EventResult, Text: "steel"})
	sink(Event{Kind: EventEnded})

	snap := s.Snapshot()
	assert.Equal(t, "glass", snap.Query)
	assert.Equal(t, Idle, snap.State)
}

func TestToggle_StopWhileListening(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)
	s.SetQuery("glass")

	_, err := s.Toggle(context.Background())
	require.NoError(t, err)

	snap, err := s.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Status)
	assert.Equal(t, 1, rec.stops)
	assert.Equal(t, "glass", snap.Query)

	// Late events from the stopped pass are ignored.
	rec.sink(0)(Event{Kind: EventResult, Text: "steel"})
	assert.Equal(t, "glass", s.Snapshot().Query)
}

func TestToggle_StalePassEventsIgnored(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)
	ctx := context.Background()

	s.Toggle(ctx) // pass 1
	s.Toggle(ctx) // stop
	s.Toggle(ctx) // pass 2
	require.Len(t, rec.sinks, 2)

	rec.sink(0)(Event{Kind: EventError, Reason: "old"})
	snap := s.Snapshot()
	assert.Equal(t, Listening, snap.State)
	assert.Equal(t, StatusListening, snap.Status)

	rec.sink(1)(Event{Kind: EventResult, Text: "cement"})
	snap = s.Snapshot()
	assert.Equal(t, "cement", snap.Query)
	require.Len(t, snap.Results, 1)
}

func TestRecognitionError_KeepsQuery(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)
	s.SetQuery("glass")
	before := s.Snapshot().Results

	s.Toggle(context.Background())
	rec.sink(0)(Event{Kind: EventError, Reason: "network"})

	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "glass", snap.Query)
	assert.Equal(t, before, snap.Results)
}

func TestToggle_StartFailureIsRecognitionError(t *testing.T) {
	rec := &fakeRecognizer{startErr: errors.New("no microphone")}
	s := newTestSession(rec)

	snap, err := s.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Idle, snap.State)
	assert.Equal(t, StatusError, snap.Status)
}

func TestToggle_PermissionDenied(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec, WithGate(ContextGate))
	s.SetQuery("glass")

	snap, err := s.Toggle(context.Background())
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, Idle, snap.State)
	assert.Empty(t, snap.Status)
	assert.Equal(t, "glass", snap.Query)
	assert.Equal(t, 0, rec.starts)

	snap, err = s.Toggle(WithAuthorization(context.Background(), true))
	require.NoError(t, err)
	assert.Equal(t, Listening, snap.State)
}

func TestDispatch_IdleDropsEvents(t *testing.T) {
	s := newTestSession(External{})

	assert.False(t, s.Dispatch(Event{Kind: EventResult, Text: "glass"}))
	assert.Empty(t, s.Snapshot().Query)

	s.Toggle(context.Background())
	assert.True(t, s.Dispatch(Event{Kind: EventEnded}))
	assert.True(t, s.Dispatch(Event{Kind: EventResult, Text: "glass"}))
	assert.Equal(t, "glass", s.Snapshot().Query)
	assert.False(t, s.Dispatch(Event{Kind: EventResult, Text: "steel"}))
}

func TestDispatch_UnknownKind(t *testing.T) {
	s := newTestSession(External{})
	s.Toggle(context.Background())

	assert.False(t, s.Dispatch(Event{Kind: "volume"}))
	assert.Equal(t, Listening, s.Snapshot().State)
}

func TestOnChange(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)

	var states []State
	s.OnChange(func(snap Snapshot) {
		// Reading the session from a listener must not deadlock.
		_ = s.Snapshot()
		states = append(states, snap.State)
	})

	s.Toggle(context.Background())
	rec.sink(0)(Event{Kind: EventEnded})
	rec.sink(0)(Event{Kind: EventResult, Text: "glass"})
	s.SetQuery("steel")

	assert.Equal(t, []State{Listening, Processing, Idle, Idle}, states)
}

func TestClose_StopsActivePass(t *testing.T) {
	rec := &fakeRecognizer{}
	s := newTestSession(rec)

	s.Close()
	assert.Equal(t, 0, rec.stops)

	s.Toggle(context.Background())
	s.Close()
	assert.Equal(t, 1, rec.stops)
	assert.Equal(t, Idle, s.Snapshot().State)
}

func TestStateMarshalText(t *testing.T) {
	for st, want := range map[State]string{Idle: "idle", Listening: "listening", Processing: "processing"} {
		b, err := st.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}
