// Package upstream implements the WebSocket client for the remote speech-AI
// realtime endpoint: session configuration, audio append, response control,
// and the typed server event vocabulary the relay consumes.
package upstream

import (
	"encoding/json"
	"fmt"
)

// envelope is decoded first to pick the concrete event type.
type envelope struct {
	Type string `json:"type"`
}

// ErrorDetail carries the upstream error payload.
type ErrorDetail struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SessionCreated is emitted once when the upstream session is established.
type SessionCreated struct {
	Type string `json:"type"`
}

// SessionUpdated acknowledges a session.update; configuration is in effect.
type SessionUpdated struct {
	Type string `json:"type"`
}

// SpeechStarted: upstream turn detection heard the user start speaking.
type SpeechStarted struct {
	Type string `json:"type"`
}

// SpeechStopped: upstream turn detection heard the user stop speaking.
type SpeechStopped struct {
	Type string `json:"type"`
}

// ResponseCreated: the model started generating a response.
type ResponseCreated struct {
	Type string `json:"type"`
}

// AudioDelta is one chunk of synthesized speech, base64 PCM16.
type AudioDelta struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id,omitempty"`
	Delta  string `json:"delta"`
}

// AudioTranscriptDone is the completed transcript of a spoken response.
type AudioTranscriptDone struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

// InputTranscriptionCompleted is the completed transcript of user speech.
type InputTranscriptionCompleted struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

// ResponseDone: generation finished.
type ResponseDone struct {
	Type string `json:"type"`
}

// OutputItemDone carries a completed output item; function calls arrive here.
type OutputItemDone struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

// ErrorEvent is a terminal or recoverable upstream failure.
type ErrorEvent struct {
	Type  string       `json:"type"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// UnknownEvent preserves events outside the consumed vocabulary so the relay
// can log rather than drop them silently.
type UnknownEvent struct {
	Type string
}

// Server event type discriminators.
const (
	TypeSessionCreated       = "session.created"
	TypeSessionUpdated       = "session.updated"
	TypeSpeechStarted        = "input_audio_buffer.speech_started"
	TypeSpeechStopped        = "input_audio_buffer.speech_stopped"
	TypeResponseCreated      = "response.created"
	TypeAudioDelta           = "response.output_audio.delta"
	TypeAudioDone            = "response.output_audio.done"
	TypeAudioTranscriptDone  = "response.output_audio_transcript.done"
	TypeInputTranscriptDone  = "conversation.item.input_audio_transcription.completed"
	TypeResponseDone         = "response.done"
	TypeOutputItemDone       = "response.output_item.done"
	TypeError                = "error"
)

// ParseEvent decodes a raw upstream frame into its typed event.
func ParseEvent(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode upstream event: %w", err)
	}

	decode := func(v any) (any, error) {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return v, nil
	}

	switch env.Type {
	case TypeSessionCreated:
		return decode(&SessionCreated{})
	case TypeSessionUpdated:
		return decode(&SessionUpdated{})
	case TypeSpeechStarted:
		return decode(&SpeechStarted{})
	case TypeSpeechStopped:
		return decode(&SpeechStopped{})
	case TypeResponseCreated:
		return decode(&ResponseCreated{})
	case TypeAudioDelta:
		return decode(&AudioDelta{})
	case TypeAudioTranscriptDone:
		return decode(&AudioTranscriptDone{})
	case TypeInputTranscriptDone:
		return decode(&InputTranscriptionCompleted{})
	case TypeResponseDone:
		return decode(&ResponseDone{})
	case TypeOutputItemDone:
		return decode(&OutputItemDone{})
	case TypeError:
		return decode(&ErrorEvent{})
	default:
		return &UnknownEvent{Type: env.Type}, nil
	}
}
