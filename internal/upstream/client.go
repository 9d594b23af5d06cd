package upstream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is the upstream leg of a relay session: a single WebSocket
// connection to the speech-AI endpoint. Writes are serialized by a mutex;
// ReadEvent is driven by exactly one reader goroutine in the relay.
type Client struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

// Dial opens the upstream connection with bearer authentication. The caller
// must send a session configuration before any audio.
func Dial(ctx context.Context, url, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("speech-AI API key is empty")
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("upstream dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("upstream dial failed: %w", err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("upstream connection closed")
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("upstream send: %w", err)
	}
	return nil
}

func event(typ string) clientEvent {
	return clientEvent{EventID: uuid.NewString(), Type: typ}
}

// Configure sends session.update with the desired formats, transcription,
// turn detection, and tool definitions.
func (c *Client) Configure(cfg SessionConfig) error {
	return c.send(sessionUpdateEvent{clientEvent: event("session.update"), Session: cfg})
}

// AppendAudio forwards one base64 PCM16 chunk verbatim.
func (c *Client) AppendAudio(b64 string) error {
	return c.send(audioAppendEvent{clientEvent: event("input_audio_buffer.append"), Audio: b64})
}

// CreateResponse requests a generation with no user input, carrying the given
// instructions. Used for the one-shot greeting.
func (c *Client) CreateResponse(instructions string) error {
	return c.send(responseCreateEvent{
		clientEvent: event("response.create"),
		Response:    &responseParams{Input: []any{}, Instructions: instructions},
	})
}

// ContinueResponse prompts the model to keep generating, e.g. after a failed
// tool call, so the conversation never stalls.
func (c *Client) ContinueResponse() error {
	return c.send(responseCreateEvent{clientEvent: event("response.create")})
}

// CancelResponse aborts the in-flight generation. Fire-and-forget: callers do
// not wait for acknowledgement.
func (c *Client) CancelResponse() error {
	return c.send(responseCancelEvent{clientEvent: event("response.cancel")})
}

// TruncateItem trims the referenced response item at zero elapsed audio so
// the model's view matches what was actually heard before barge-in.
func (c *Client) TruncateItem(itemID string) error {
	return c.send(itemTruncateEvent{
		clientEvent:  event("conversation.item.truncate"),
		ItemID:       itemID,
		ContentIndex: 0,
		AudioEndMs:   0,
	})
}

// SendToolResult answers a function call, correlated by call_id.
func (c *Client) SendToolResult(callID, output string) error {
	return c.send(itemCreateEvent{
		clientEvent: event("conversation.item.create"),
		Item: ConversationItem{
			Type:   "function_call_output",
			CallID: callID,
			Output: output,
		},
	})
}

// ReadEvent blocks for the next upstream frame and decodes it.
func (c *Client) ReadEvent() (any, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("upstream read: %w", err)
	}
	return ParseEvent(data)
}

// Close shuts the upstream leg. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
