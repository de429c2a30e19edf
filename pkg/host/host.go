// Package host defines the interfaces and types for connecting to a
// smart-glasses host runtime.
//
// The two primary abstractions are:
//
//   - [Platform] — maintains the connection to the host runtime and announces
//     user sessions as they start and stop.
//   - [Session] — represents one active glasses session, giving callers the
//     transcription and button event streams, a location subscription, and
//     write-only display/speech/dashboard sinks.
//
// Implementations are provided by runtime-specific adapter packages (e.g.,
// host/lenshost for the WebSocket-based lens host protocol). The interfaces
// are intentionally narrow so that the application layer composes with the
// runtime instead of extending it.
//
// This package lives under pkg/ because external code (alternative runtime
// adapters) is expected to implement [Platform] and [Session].
package host

import "context"

// TranscriptionEvent is a speech-to-text result delivered by the host runtime.
// Both partial (interim) and final transcripts use this type; only final
// events should trigger command handling.
type TranscriptionEvent struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript.
	IsFinal bool
}

// Button identifies a physical control on the glasses.
type Button string

const (
	// ButtonPrimary is the main action button.
	ButtonPrimary Button = "primary"

	// ButtonSecondary is the auxiliary button, if the hardware has one.
	ButtonSecondary Button = "secondary"
)

// ButtonAction classifies how a button was actuated.
type ButtonAction string

const (
	ActionPress ButtonAction = "press"
	ActionLong  ButtonAction = "long_press"
)

// ButtonEvent is a physical button actuation delivered by the host runtime.
type ButtonEvent struct {
	Button Button
	Action ButtonAction
}

// Location is a geographic fix reported by the glasses' location service.
type Location struct {
	Lat float64
	Lng float64

	// Accuracy is the horizontal accuracy radius in meters. Zero when the
	// runtime does not report accuracy.
	Accuracy float64
}

// Card is a title + multi-line body shown on the glasses' main layout.
type Card struct {
	Title   string
	Content string
}

// SessionEventType classifies session lifecycle events emitted by a [Platform].
type SessionEventType int

const (
	// SessionStarted is emitted when a user session connects.
	SessionStarted SessionEventType = iota

	// SessionStopped is emitted when a user session disconnects.
	SessionStopped
)

// String returns the human-readable name of the event type.
func (t SessionEventType) String() string {
	switch t {
	case SessionStarted:
		return "STARTED"
	case SessionStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// SessionEvent describes a session lifecycle change on the host runtime.
type SessionEvent struct {
	// Type indicates whether the session started or stopped.
	Type SessionEventType

	// Session is the session the event refers to. For [SessionStopped] events
	// the session's streams are already closed; only its ID remains usable.
	Session Session
}

// Session represents one active glasses session on the host runtime.
//
// A Session is announced via [Platform.Events] and remains valid until the
// matching [SessionStopped] event. The event channels returned by
// Transcriptions and Buttons are closed automatically when the session ends.
//
// The display, speech, and dashboard sinks are write-only outputs: the host
// runtime does not acknowledge individual writes, so errors only indicate
// that the write could not be handed to the runtime at all.
//
// Implementations must be safe for concurrent use.
type Session interface {
	// ID returns the runtime-assigned unique identifier for this session.
	ID() string

	// Transcriptions returns the stream of speech-to-text events for this
	// session. The host runtime delivers events one at a time, in order.
	Transcriptions() <-chan TranscriptionEvent

	// Buttons returns the stream of button events for this session.
	Buttons() <-chan ButtonEvent

	// SubscribeLocation asks the runtime to stream location updates with the
	// given accuracy hint (e.g. "high", "balanced") and invokes cb for each
	// update. The returned cancel function unsubscribes and releases the
	// callback; it is safe to call more than once.
	//
	// cb is invoked on an internal goroutine — callers must not block.
	SubscribeLocation(ctx context.Context, accuracy string, cb func(Location)) (cancel func(), err error)

	// ShowCard renders a title + body card on the glasses' main layout.
	ShowCard(ctx context.Context, card Card) error

	// ShowText renders a plain text wall on the glasses' main layout.
	ShowText(ctx context.Context, text string) error

	// Speak plays the given text through the glasses' text-to-speech output.
	Speak(ctx context.Context, text string) error

	// WriteDashboard updates this app's single line on the glasses dashboard.
	WriteDashboard(ctx context.Context, line string) error
}

// Platform is the entry point for a host runtime adapter.
//
// Implementations wrap the runtime-specific transport (WebSocket protocol,
// vendor SDK, …) and expose a uniform session abstraction.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Events returns the stream of session lifecycle events. The channel is
	// closed when the platform shuts down.
	Events() <-chan SessionEvent

	// Close disconnects from the host runtime and ends all active sessions.
	// It is safe to call Close more than once; subsequent calls are no-ops.
	Close() error
}
