package upstream

// Client events sent from the relay to the speech-AI endpoint.

// clientEvent is the base shape shared by all client events.
type clientEvent struct {
	EventID string `json:"event_id,omitempty"`
	Type    string `json:"type"`
}

// sessionUpdateEvent applies SessionConfig to the live session.
type sessionUpdateEvent struct {
	clientEvent
	Session SessionConfig `json:"session"`
}

// audioAppendEvent appends one base64 PCM16 chunk to the input buffer.
type audioAppendEvent struct {
	clientEvent
	Audio string `json:"audio"`
}

// responseCreateEvent requests a generation. For the one-shot greeting the
// response carries empty input plus greeting instructions; a bare event asks
// the model to continue after a tool result.
type responseCreateEvent struct {
	clientEvent
	Response *responseParams `json:"response,omitempty"`
}

type responseParams struct {
	Input        []any  `json:"input"`
	Instructions string `json:"instructions,omitempty"`
}

// responseCancelEvent aborts the in-flight generation.
type responseCancelEvent struct {
	clientEvent
}

// itemTruncateEvent trims an already-streamed response item so upstream model
// state matches what the user actually heard.
type itemTruncateEvent struct {
	clientEvent
	ItemID       string `json:"item_id"`
	ContentIndex int    `json:"content_index"`
	AudioEndMs   int    `json:"audio_end_ms"`
}

// itemCreateEvent adds a conversation item; used for function_call_output.
type itemCreateEvent struct {
	clientEvent
	Item ConversationItem `json:"item"`
}

// ConversationItem is a conversation entry. Function calls arrive as items
// with Name/Arguments/CallID set; tool results go back as function_call_output
// items correlated by the same CallID.
type ConversationItem struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

// ItemTypeFunctionCall marks an item carrying a tool invocation.
const ItemTypeFunctionCall = "function_call"

// SessionConfig describes the desired session: audio formats, transcription
// model, turn-detection mode, and tool definitions.
type SessionConfig struct {
	Type             string      `json:"type"`
	Instructions     string      `json:"instructions"`
	OutputModalities []string    `json:"output_modalities"`
	Audio            AudioConfig `json:"audio"`
	Tools            []ToolDef   `json:"tools"`
	ToolChoice       string      `json:"tool_choice"`
}

type AudioConfig struct {
	Input  AudioInput  `json:"input"`
	Output AudioOutput `json:"output"`
}

type AudioInput struct {
	Format        AudioFormat          `json:"format"`
	Transcription *TranscriptionConfig `json:"transcription,omitempty"`
	TurnDetection *TurnDetection       `json:"turn_detection,omitempty"`
}

type AudioOutput struct {
	Format AudioFormat `json:"format"`
	Voice  string      `json:"voice,omitempty"`
}

type AudioFormat struct {
	Type string `json:"type"`
	Rate int    `json:"rate"`
}

type TranscriptionConfig struct {
	Model string `json:"model"`
}

type TurnDetection struct {
	Type string `json:"type"`
}

// ToolDef declares a callable function with a JSON-schema parameter shape.
type ToolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}
