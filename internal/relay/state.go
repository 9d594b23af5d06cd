package relay

import "github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/upstream"

// State tracks where a session is in the conversation loop. It is advanced
// only by upstream events, so the client view and the model view never race.
type State int

const (
	// StateIdle is a session that exists but has not started its legs.
	StateIdle State = iota
	// StateConnecting covers dial through session configuration.
	StateConnecting
	// StateConnected means the session is configured and idle.
	StateConnected
	// StateListening means the model detected user speech.
	StateListening
	// StateProcessing means the user stopped and a response is being formed.
	StateProcessing
	// StateSpeaking means assistant audio is streaming out.
	StateSpeaking
	// StateError is terminal: a transport leg failed.
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Transition returns the state after observing one upstream event. Events
// that carry no conversational meaning leave the state unchanged. StateError
// is terminal and is entered by the transport, not by an event.
func Transition(s State, ev any) State {
	if s == StateError {
		return s
	}
	switch ev.(type) {
	case *upstream.SessionUpdated:
		if s == StateConnecting {
			return StateConnected
		}
	case *upstream.SpeechStarted:
		return StateListening
	case *upstream.SpeechStopped:
		return StateProcessing
	case *upstream.AudioDelta:
		return StateSpeaking
	case *upstream.ResponseDone:
		return StateConnected
	}
	return s
}
