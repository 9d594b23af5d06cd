// Package relay bridges one client WebSocket to one upstream speech-AI
// session: audio chunks go up verbatim, upstream events come back translated
// into the client wire vocabulary, and function calls are dispatched against
// the contact store.
package relay

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/contacts"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/upstream"
)

// Upstream is the speech-AI leg of a session. *upstream.Client satisfies it;
// tests substitute a scripted fake.
type Upstream interface {
	Configure(cfg upstream.SessionConfig) error
	AppendAudio(b64 string) error
	CreateResponse(instructions string) error
	ContinueResponse() error
	CancelResponse() error
	TruncateItem(itemID string) error
	SendToolResult(callID, output string) error
	ReadEvent() (any, error)
	Close() error
}

const (
	defaultSetupTimeout  = 60 * time.Second
	defaultSendQueueSize = 256

	// Policy-violation close code, shared with the capacity check in the
	// HTTP layer.
	CloseCodePolicy = 1008
)

// Options tune a session. Zero values pick the defaults.
type Options struct {
	SetupTimeout  time.Duration
	SendQueueSize int
}

// Session is one live client connection and its upstream counterpart.
type Session struct {
	id     string
	client *websocket.Conn
	up     Upstream
	tools  *ToolDispatcher

	sendq    chan ServerMessage
	done     chan struct{}
	once     sync.Once
	failOnce sync.Once
	wmu      sync.Mutex

	setupTimeout time.Duration
	setupTimer   *time.Timer

	mu             sync.Mutex
	state          State
	hasGreeted     bool
	responseActive bool
	lastItemID     string
}

// NewSession wires a freshly upgraded client connection to a dialed upstream.
func NewSession(client *websocket.Conn, up Upstream, store contacts.Store, opts Options) *Session {
	if opts.SetupTimeout <= 0 {
		opts.SetupTimeout = defaultSetupTimeout
	}
	if opts.SendQueueSize <= 0 {
		opts.SendQueueSize = defaultSendQueueSize
	}
	id := uuid.NewString()
	tools := NewToolDispatcher(store)
	tools.OnSaved = func(c contacts.Contact) {
		log.Printf("[%s] contact saved: %s <%s> %s", id, c.Name, c.Email, c.Phone)
	}
	return &Session{
		id:           id,
		client:       client,
		up:           up,
		tools:        tools,
		sendq:        make(chan ServerMessage, opts.SendQueueSize),
		done:         make(chan struct{}),
		setupTimeout: opts.SetupTimeout,
		state:        StateConnecting,
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State reports the current conversation state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// fail marks the session terminally failed. Transitions stop applying.
func (s *Session) fail() {
	s.mu.Lock()
	s.state = StateError
	s.mu.Unlock()
}

// failTransport handles a broken upstream leg, whichever call exposed it:
// mark the session failed, deliver the single error frame, close both legs.
// After a normal teardown it does nothing.
func (s *Session) failTransport(reason string) {
	select {
	case <-s.done:
		return
	default:
	}
	s.failOnce.Do(func() {
		s.fail()
		_ = s.write(ServerMessage{Type: MsgError, Data: reason})
	})
	s.teardown()
}

// Run drives the session until either leg closes. It blocks the caller.
func (s *Session) Run(ctx context.Context) {
	log.Printf("[%s] session started", s.id)

	var writerDone sync.WaitGroup
	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		s.writeLoop()
	}()

	if err := s.up.Configure(upstream.DefaultSessionConfig()); err != nil {
		log.Printf("[%s] configure upstream: %v", s.id, err)
		s.failTransport("failed to configure session")
		writerDone.Wait()
		return
	}

	// If the upstream never acknowledges configuration the client must not
	// hang forever.
	timer := time.AfterFunc(s.setupTimeout, func() {
		log.Printf("[%s] setup timed out after %s", s.id, s.setupTimeout)
		s.closeClient(CloseCodePolicy, "Connection timeout")
		s.teardown()
	})
	s.mu.Lock()
	s.setupTimer = timer
	s.mu.Unlock()

	go s.clientLoop()
	s.upstreamLoop(ctx)

	s.teardown()
	writerDone.Wait()
	log.Printf("[%s] session closed", s.id)
}

// send queues a frame for the client. A slow client drops frames rather than
// stalling the upstream read loop.
func (s *Session) send(msg ServerMessage) {
	select {
	case s.sendq <- msg:
	case <-s.done:
	default:
		log.Printf("[%s] send queue full, dropping %s", s.id, msg.Type)
	}
}

// write serializes frames onto the client socket. Shared by the writer
// goroutine and the final error frame on upstream failure.
func (s *Session) write(msg ServerMessage) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.client.WriteJSON(msg)
}

func (s *Session) writeLoop() {
	for {
		select {
		case msg := <-s.sendq:
			if err := s.write(msg); err != nil {
				log.Printf("[%s] client write: %v", s.id, err)
				s.teardown()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) clientLoop() {
	defer s.teardown()
	for {
		var msg ClientMessage
		if err := s.client.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("[%s] client read: %v", s.id, err)
				s.fail()
			}
			return
		}
		switch msg.Type {
		case MsgAudioChunk:
			if msg.Data == "" {
				continue
			}
			if err := s.up.AppendAudio(msg.Data); err != nil {
				log.Printf("[%s] append audio: %v", s.id, err)
				s.failTransport("speech service connection lost")
				return
			}
		case MsgCancel:
			s.cancelResponse()
		case MsgPing:
			// Keepalive is answered locally, never forwarded.
			s.send(ServerMessage{Type: MsgPong})
		default:
			log.Printf("[%s] unknown client message %q", s.id, msg.Type)
		}
	}
}

// cancelResponse aborts the in-flight generation exactly once per barge-in:
// repeated cancels while nothing is active are no-ops.
func (s *Session) cancelResponse() {
	s.mu.Lock()
	active := s.responseActive
	itemID := s.lastItemID
	s.responseActive = false
	s.lastItemID = ""
	s.mu.Unlock()

	if !active {
		return
	}
	if err := s.up.CancelResponse(); err != nil {
		log.Printf("[%s] cancel response: %v", s.id, err)
		s.failTransport("speech service connection lost")
		return
	}
	if itemID != "" {
		if err := s.up.TruncateItem(itemID); err != nil {
			log.Printf("[%s] truncate item: %v", s.id, err)
			s.failTransport("speech service connection lost")
		}
	}
}

func (s *Session) upstreamLoop(ctx context.Context) {
	for {
		ev, err := s.up.ReadEvent()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Printf("[%s] upstream read: %v", s.id, err)
				s.failTransport("speech service connection lost")
			}
			return
		}

		s.mu.Lock()
		s.state = Transition(s.state, ev)
		s.mu.Unlock()

		switch e := ev.(type) {
		case *upstream.SessionCreated:
			log.Printf("[%s] upstream session created", s.id)

		case *upstream.SessionUpdated:
			s.onConfigured()

		case *upstream.SpeechStarted:
			s.send(ServerMessage{Type: MsgListening})

		case *upstream.SpeechStopped:
			s.send(ServerMessage{Type: MsgProcessing})

		case *upstream.ResponseCreated:
			s.mu.Lock()
			s.responseActive = true
			s.mu.Unlock()

		case *upstream.AudioDelta:
			s.mu.Lock()
			s.lastItemID = e.ItemID
			s.mu.Unlock()
			s.send(ServerMessage{Type: MsgAudioDelta, Data: e.Delta})

		case *upstream.AudioTranscriptDone:
			s.send(ServerMessage{Type: MsgText, Data: e.Transcript})

		case *upstream.InputTranscriptionCompleted:
			s.send(ServerMessage{Type: MsgTranscription, Data: e.Transcript})

		case *upstream.ResponseDone:
			s.mu.Lock()
			s.responseActive = false
			s.lastItemID = ""
			s.mu.Unlock()
			s.send(ServerMessage{Type: MsgResponseDone})

		case *upstream.OutputItemDone:
			if e.Item.Type == upstream.ItemTypeFunctionCall {
				if msg := s.tools.Dispatch(ctx, s.up, e.Item); msg != nil {
					s.send(*msg)
				}
			}

		case *upstream.ErrorEvent:
			text := "upstream error"
			if e.Error != nil && e.Error.Message != "" {
				text = e.Error.Message
			}
			log.Printf("[%s] upstream error: %s", s.id, text)
			s.send(ServerMessage{Type: MsgError, Data: text})

		case *upstream.UnknownEvent:
			// Forward-compatible: unrecognized event types are ignored.
		}
	}
}

// onConfigured fires on session.updated: the session is usable, so stop the
// setup timer, tell the client, and request the one-shot greeting. Repeated
// session.updated events must not greet again.
func (s *Session) onConfigured() {
	s.mu.Lock()
	first := !s.hasGreeted
	s.hasGreeted = true
	timer := s.setupTimer
	s.mu.Unlock()
	if !first {
		return
	}

	if timer != nil {
		timer.Stop()
	}
	s.send(ServerMessage{Type: MsgReady})
	if err := s.up.CreateResponse(upstream.GreetingInstructions); err != nil {
		log.Printf("[%s] greeting request: %v", s.id, err)
		s.failTransport("speech service connection lost")
	}
}

func (s *Session) closeClient(code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = s.client.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

// teardown closes both legs. Either loop may trigger it; only the first call
// does the work.
func (s *Session) teardown() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		timer := s.setupTimer
		s.mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		_ = s.up.Close()
		_ = s.client.Close()
	})
}
