// Package lenshost implements the host.Platform and host.Session interfaces
// for the lens host runtime's WebSocket protocol.
//
// The client dials the runtime's WebSocket endpoint, authenticating with app
// ID/key headers, and exchanges JSON events: the runtime announces session
// lifecycle changes, transcriptions, button presses and location updates;
// the client sends display, speech, dashboard and location-subscription
// commands. All outgoing writes are serialized on a single mutex.
package lenshost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"github.com/skylens/skylens/pkg/host"
)

// Compile-time assertions that Platform and session satisfy the host interfaces.
var _ host.Platform = (*Platform)(nil)
var _ host.Session = (*session)(nil)

// ── Protocol message types (outgoing) ─────────────────────────────────────────

type showCardMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

type showTextMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

type speakMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// dashboardMessage updates the app's dashboard line. Line is deliberately not
// omitempty: an empty line clears the dashboard entry.
type dashboardMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Line      string `json:"line"`
}

type locationSubscribeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Accuracy  string `json:"accuracy,omitempty"`
}

type locationUnsubscribeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ── Protocol message types (incoming) ─────────────────────────────────────────

// hostEvent is the union of all event shapes the runtime sends. Type selects
// which of the optional fields are meaningful.
type hostEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`

	// transcription
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"is_final,omitempty"`

	// button
	Button string `json:"button,omitempty"`
	Action string `json:"action,omitempty"`

	// location
	Lat      float64 `json:"lat,omitempty"`
	Lng      float64 `json:"lng,omitempty"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// ── Platform ──────────────────────────────────────────────────────────────────

// Platform is the WebSocket client for the lens host runtime.
type Platform struct {
	conn   *websocket.Conn
	events chan host.SessionEvent

	// writeMu serializes outgoing frames; coder/websocket allows only one
	// concurrent writer.
	writeMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session

	connected atomic.Bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Dial connects to the lens host runtime at url, authenticating with the
// given app credentials, and starts the event read loop. The context bounds
// the handshake only; the connection itself lives until Close.
func Dial(ctx context.Context, url, appID, appKey string) (*Platform, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"X-App-ID":  []string{appID},
			"X-App-Key": []string{appKey},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("lenshost: dial: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p := &Platform{
		conn:     conn,
		events:   make(chan host.SessionEvent, 16),
		sessions: make(map[string]*session),
		ctx:      runCtx,
		cancel:   cancel,
	}
	p.connected.Store(true)

	go p.readLoop()

	return p, nil
}

// Events returns the session lifecycle event stream. The channel is closed
// when the connection to the runtime ends.
func (p *Platform) Events() <-chan host.SessionEvent { return p.events }

// Connected reports whether the WebSocket connection is still alive. Used by
// readiness checks.
func (p *Platform) Connected() bool { return p.connected.Load() }

// Close disconnects from the runtime. Idempotent.
func (p *Platform) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		p.conn.Close(websocket.StatusNormalClosure, "client shutdown")
	})
	return nil
}

// readLoop reads events from the WebSocket and dispatches them. It owns the
// events channel and every session's streams: all are closed when it exits.
func (p *Platform) readLoop() {
	defer func() {
		p.connected.Store(false)

		p.mu.Lock()
		sessions := make([]*session, 0, len(p.sessions))
		for _, s := range p.sessions {
			sessions = append(sessions, s)
		}
		p.sessions = make(map[string]*session)
		p.mu.Unlock()

		for _, s := range sessions {
			s.end()
		}
		close(p.events)
	}()

	for {
		_, data, err := p.conn.Read(p.ctx)
		if err != nil {
			return
		}

		var evt hostEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}

		p.handleEvent(&evt)
	}
}

func (p *Platform) handleEvent(evt *hostEvent) {
	switch evt.Type {
	case "session_started":
		if evt.SessionID == "" {
			return
		}
		sess := newSession(p, evt.SessionID)

		p.mu.Lock()
		if _, exists := p.sessions[evt.SessionID]; exists {
			p.mu.Unlock()
			return
		}
		p.sessions[evt.SessionID] = sess
		p.mu.Unlock()

		p.emit(host.SessionEvent{Type: host.SessionStarted, Session: sess})

	case "session_stopped":
		p.mu.Lock()
		sess, ok := p.sessions[evt.SessionID]
		delete(p.sessions, evt.SessionID)
		p.mu.Unlock()
		if !ok {
			return
		}
		sess.end()
		p.emit(host.SessionEvent{Type: host.SessionStopped, Session: sess})

	case "transcription":
		if sess, ok := p.lookup(evt.SessionID); ok {
			sess.deliverTranscription(host.TranscriptionEvent{
				Text:    evt.Text,
				IsFinal: evt.IsFinal,
			})
		}

	case "button":
		if sess, ok := p.lookup(evt.SessionID); ok {
			sess.deliverButton(host.ButtonEvent{
				Button: host.Button(evt.Button),
				Action: host.ButtonAction(evt.Action),
			})
		}

	case "location":
		if sess, ok := p.lookup(evt.SessionID); ok {
			sess.deliverLocation(host.Location{
				Lat:      evt.Lat,
				Lng:      evt.Lng,
				Accuracy: evt.Accuracy,
			})
		}
	}
}

func (p *Platform) lookup(id string) (*session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[id]
	return s, ok
}

func (p *Platform) emit(evt host.SessionEvent) {
	select {
	case p.events <- evt:
	case <-p.ctx.Done():
	}
}

// send marshals v and writes it as a single text frame.
func (p *Platform) send(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("lenshost: marshal: %w", err)
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("lenshost: write: %w", err)
	}
	return nil
}

// ── session ───────────────────────────────────────────────────────────────────

type session struct {
	id string
	p  *Platform

	transcriptions chan host.TranscriptionEvent
	buttons        chan host.ButtonEvent

	mu          sync.Mutex
	locationCbs map[int]func(host.Location)
	nextSubID   int

	endOnce sync.Once
}

func newSession(p *Platform, id string) *session {
	return &session{
		id:             id,
		p:              p,
		transcriptions: make(chan host.TranscriptionEvent, 16),
		buttons:        make(chan host.ButtonEvent, 16),
		locationCbs:    make(map[int]func(host.Location)),
	}
}

// ID returns the runtime-assigned session identifier.
func (s *session) ID() string { return s.id }

// Transcriptions returns the speech-to-text event stream for this session.
func (s *session) Transcriptions() <-chan host.TranscriptionEvent { return s.transcriptions }

// Buttons returns the button event stream for this session.
func (s *session) Buttons() <-chan host.ButtonEvent { return s.buttons }

// SubscribeLocation registers cb for location updates. The first subscriber
// triggers a location_subscribe command to the runtime; removing the last one
// sends location_unsubscribe.
func (s *session) SubscribeLocation(ctx context.Context, accuracy string, cb func(host.Location)) (func(), error) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.locationCbs[id] = cb
	first := len(s.locationCbs) == 1
	s.mu.Unlock()

	if first {
		msg := locationSubscribeMessage{
			Type:      "location_subscribe",
			SessionID: s.id,
			Accuracy:  accuracy,
		}
		if err := s.p.send(ctx, msg); err != nil {
			s.mu.Lock()
			delete(s.locationCbs, id)
			s.mu.Unlock()
			return nil, err
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.locationCbs, id)
			last := len(s.locationCbs) == 0
			s.mu.Unlock()

			if last {
				_ = s.p.send(s.p.ctx, locationUnsubscribeMessage{
					Type:      "location_unsubscribe",
					SessionID: s.id,
				})
			}
		})
	}
	return cancel, nil
}

// ShowCard renders a title + body card on the glasses' main layout.
func (s *session) ShowCard(ctx context.Context, card host.Card) error {
	return s.p.send(ctx, showCardMessage{
		Type:      "show_card",
		SessionID: s.id,
		Title:     card.Title,
		Content:   card.Content,
	})
}

// ShowText renders a plain text wall on the glasses' main layout.
func (s *session) ShowText(ctx context.Context, text string) error {
	return s.p.send(ctx, showTextMessage{
		Type:      "show_text",
		SessionID: s.id,
		Text:      text,
	})
}

// Speak plays text through the glasses' text-to-speech output.
func (s *session) Speak(ctx context.Context, text string) error {
	return s.p.send(ctx, speakMessage{
		Type:      "speak",
		SessionID: s.id,
		Text:      text,
	})
}

// WriteDashboard updates this app's line on the glasses dashboard. An empty
// line clears it.
func (s *session) WriteDashboard(ctx context.Context, line string) error {
	return s.p.send(ctx, dashboardMessage{
		Type:      "dashboard",
		SessionID: s.id,
		Line:      line,
	})
}

func (s *session) deliverTranscription(evt host.TranscriptionEvent) {
	select {
	case s.transcriptions <- evt:
	case <-s.p.ctx.Done():
	}
}

func (s *session) deliverButton(evt host.ButtonEvent) {
	select {
	case s.buttons <- evt:
	case <-s.p.ctx.Done():
	}
}

func (s *session) deliverLocation(loc host.Location) {
	s.mu.Lock()
	cbs := make([]func(host.Location), 0, len(s.locationCbs))
	for _, cb := range s.locationCbs {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(loc)
	}
}

// end closes the session's event streams and drops its location callbacks.
// Idempotent.
func (s *session) end() {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.locationCbs = make(map[int]func(host.Location))
		s.mu.Unlock()

		close(s.transcriptions)
		close(s.buttons)
	})
}
