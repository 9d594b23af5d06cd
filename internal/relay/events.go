package relay

// Client-to-server frame types.
const (
	MsgAudioChunk = "audio_chunk"
	MsgCancel     = "cancel"
	MsgPing       = "ping"
)

// Server-to-client frame types.
const (
	MsgReady          = "ready"
	MsgListening      = "listening"
	MsgProcessing     = "processing"
	MsgAudioDelta     = "audio_delta"
	MsgText           = "text"
	MsgTranscription  = "transcription"
	MsgResponseDone   = "response_done"
	MsgContactSaved   = "contact_saved"
	MsgContactUpdated = "contact_updated"
	MsgError          = "error"
	MsgPong           = "pong"
)

// ClientMessage is one JSON frame from the client. Data carries base64 PCM16
// for audio_chunk and is empty otherwise.
type ClientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// ServerMessage is one JSON frame to the client. Data is a base64 chunk for
// audio_delta, plain text for text/transcription/error, and a contact record
// for contact_saved/contact_updated.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
