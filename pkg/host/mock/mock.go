// Package mock provides in-memory mock implementations of the [host.Platform]
// and [host.Session] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	sess := mock.NewSession("sess-1")
//	platform := mock.NewPlatform()
//	platform.EmitStarted(sess)
//	sess.TranscriptionsCh <- host.TranscriptionEvent{Text: "weather in tokyo", IsFinal: true}
package mock

import (
	"context"
	"sync"

	"github.com/skylens/skylens/pkg/host"
)

// ─── Session ─────────────────────────────────────────────────────────────────

// locationSub is one registered location callback.
type locationSub struct {
	id int
	cb func(host.Location)
}

// Session is a mock implementation of [host.Session].
// Push events through TranscriptionsCh / ButtonsCh and location fixes through
// [Session.PushLocation]; inspect recorded output via the accessor methods.
type Session struct {
	mu sync.Mutex

	// IDResult is returned by [Session.ID].
	IDResult string

	// TranscriptionsCh is the channel returned by [Session.Transcriptions].
	// Tests send events into it and close it to end the stream.
	TranscriptionsCh chan host.TranscriptionEvent

	// ButtonsCh is the channel returned by [Session.Buttons].
	ButtonsCh chan host.ButtonEvent

	// SubscribeLocationErr is returned by [Session.SubscribeLocation].
	SubscribeLocationErr error

	// ShowCardErr, ShowTextErr, SpeakErr, and WriteDashboardErr are returned
	// by the corresponding sink methods.
	ShowCardErr       error
	ShowTextErr       error
	SpeakErr          error
	WriteDashboardErr error

	// SubscribeAccuracies records the accuracy hint of every SubscribeLocation
	// call, in order.
	SubscribeAccuracies []string

	// CancelCount records how many times a returned cancel function ran.
	CancelCount int

	subs   []locationSub
	nextID int

	cards      []host.Card
	texts      []string
	spoken     []string
	dashboards []string
}

// NewSession creates a mock session with buffered event channels.
func NewSession(id string) *Session {
	return &Session{
		IDResult:         id,
		TranscriptionsCh: make(chan host.TranscriptionEvent, 16),
		ButtonsCh:        make(chan host.ButtonEvent, 16),
	}
}

// ID implements [host.Session].
func (s *Session) ID() string { return s.IDResult }

// Transcriptions implements [host.Session].
func (s *Session) Transcriptions() <-chan host.TranscriptionEvent {
	return s.TranscriptionsCh
}

// Buttons implements [host.Session].
func (s *Session) Buttons() <-chan host.ButtonEvent {
	return s.ButtonsCh
}

// SubscribeLocation implements [host.Session]. The callback stays registered
// until the returned cancel function runs; [Session.PushLocation] invokes all
// registered callbacks.
func (s *Session) SubscribeLocation(_ context.Context, accuracy string, cb func(host.Location)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SubscribeAccuracies = append(s.SubscribeAccuracies, accuracy)
	if s.SubscribeLocationErr != nil {
		return nil, s.SubscribeLocationErr
	}

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, locationSub{id: id, cb: cb})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.CancelCount++
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					break
				}
			}
		})
	}
	return cancel, nil
}

// PushLocation delivers a location fix to every registered callback, in
// registration order. Callbacks run on the caller's goroutine.
func (s *Session) PushLocation(loc host.Location) {
	s.mu.Lock()
	cbs := make([]func(host.Location), len(s.subs))
	for i, sub := range s.subs {
		cbs[i] = sub.cb
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(loc)
	}
}

// ActiveSubscriptions returns the number of location callbacks currently
// registered.
func (s *Session) ActiveSubscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// ShowCard implements [host.Session]. The card is recorded.
func (s *Session) ShowCard(_ context.Context, card host.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = append(s.cards, card)
	return s.ShowCardErr
}

// ShowText implements [host.Session]. The text is recorded.
func (s *Session) ShowText(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.ShowTextErr
}

// Speak implements [host.Session]. The utterance is recorded.
func (s *Session) Speak(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
	return s.SpeakErr
}

// WriteDashboard implements [host.Session]. The line is recorded.
func (s *Session) WriteDashboard(_ context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dashboards = append(s.dashboards, line)
	return s.WriteDashboardErr
}

// Cards returns a copy of all cards shown so far.
func (s *Session) Cards() []host.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]host.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// Texts returns a copy of all plain texts shown so far.
func (s *Session) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

// Spoken returns a copy of all utterances spoken so far.
func (s *Session) Spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.spoken))
	copy(out, s.spoken)
	return out
}

// Dashboards returns a copy of all dashboard lines written so far.
func (s *Session) Dashboards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.dashboards))
	copy(out, s.dashboards)
	return out
}

// Close closes the event channels, ending the session's streams.
func (s *Session) Close() {
	close(s.TranscriptionsCh)
	close(s.ButtonsCh)
}

// ─── Platform ────────────────────────────────────────────────────────────────

// Platform is a mock implementation of [host.Platform]. Emit lifecycle events
// with [Platform.EmitStarted] and [Platform.EmitStopped].
type Platform struct {
	mu sync.Mutex

	// CloseErr is returned by [Platform.Close].
	CloseErr error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	events chan host.SessionEvent
	closed bool
}

// NewPlatform creates a mock platform with a buffered event channel.
func NewPlatform() *Platform {
	return &Platform{events: make(chan host.SessionEvent, 16)}
}

// Events implements [host.Platform].
func (p *Platform) Events() <-chan host.SessionEvent {
	return p.events
}

// EmitStarted announces sess as a started session.
func (p *Platform) EmitStarted(sess host.Session) {
	p.events <- host.SessionEvent{Type: host.SessionStarted, Session: sess}
}

// EmitStopped announces sess as a stopped session.
func (p *Platform) EmitStopped(sess host.Session) {
	p.events <- host.SessionEvent{Type: host.SessionStopped, Session: sess}
}

// Close implements [host.Platform]. The first call closes the event channel.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountClose++
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return p.CloseErr
}

// Connected reports whether Close has been called. Satisfies the readiness
// probe contract.
func (p *Platform) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}
