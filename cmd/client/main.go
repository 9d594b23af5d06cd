// Command client is a native terminal voice client: it captures the
// microphone, streams chunks to the relay server, and plays assistant audio
// back through the default output device.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/gorilla/websocket"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/audio"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/capture"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/playback"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/relay"
)

const (
	micSampleRate   = 48000
	micFrameSamples = 2400 // 50ms at 48kHz
	outFrameSamples = 1200 // 50ms at 24kHz
	pingInterval    = 30 * time.Second
)

// micSource reads the default input device and feeds 50ms frames to the
// encoder, which resamples down to the wire rate.
type micSource struct {
	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	running bool
}

func (m *micSource) Start(onFrame func(samples []int16, sampleRate int)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.buf = make([]int16, micFrameSamples)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(micSampleRate), micFrameSamples, m.buf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}
	m.stream = stream
	m.running = true
	go m.readLoop(onFrame)
	return nil
}

func (m *micSource) readLoop(onFrame func([]int16, int)) {
	for {
		m.mu.Lock()
		stream, running := m.stream, m.running
		m.mu.Unlock()
		if !running || stream == nil {
			return
		}
		if err := stream.Read(); err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		frame := make([]int16, len(m.buf))
		copy(frame, m.buf)
		onFrame(frame, micSampleRate)
	}
}

func (m *micSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	if m.stream != nil {
		_ = m.stream.Stop()
		_ = m.stream.Close()
		m.stream = nil
	}
	return nil
}

// wallClock drives the playback scheduler off wall time.
type wallClock struct{ start time.Time }

func (c wallClock) Now() float64 { return time.Since(c.start).Seconds() }

type playItem struct {
	samples []int16
	onDone  func()
}

// speaker plays scheduled chunks in order on the default output device. The
// scheduler hands chunks back-to-back, so queue order is playback order.
type speaker struct {
	mu    sync.Mutex
	queue []playItem

	wake   chan struct{}
	done   chan struct{}
	stream *portaudio.Stream
	out    []int16
}

func newSpeaker() (*speaker, error) {
	s := &speaker{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make([]int16, outFrameSamples),
	}
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(audio.WireSampleRate), outFrameSamples, s.out)
	if err != nil {
		return nil, fmt.Errorf("open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start output stream: %w", err)
	}
	s.stream = stream
	go s.run()
	return s, nil
}

func (s *speaker) PlayAt(samples []int16, _ float64, onDone func()) {
	s.mu.Lock()
	s.queue = append(s.queue, playItem{samples: samples, onDone: onDone})
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// StopAll drops everything queued. The chunk currently on the device plays
// out; it is at most 50ms.
func (s *speaker) StopAll() {
	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

func (s *speaker) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			item := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.play(item.samples)
			if item.onDone != nil {
				item.onDone()
			}
		}
	}
}

func (s *speaker) play(samples []int16) {
	for off := 0; off < len(samples); off += len(s.out) {
		n := copy(s.out, samples[off:])
		for i := n; i < len(s.out); i++ {
			s.out[i] = 0
		}
		if err := s.stream.Write(); err != nil {
			return
		}
	}
}

func (s *speaker) Close() {
	close(s.done)
	_ = s.stream.Stop()
	_ = s.stream.Close()
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	serverURL := flag.String("server", "ws://localhost:3001/ws", "relay WebSocket URL")
	flag.Parse()

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("initialize portaudio: %v", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	conn, _, err := websocket.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		log.Fatalf("connect %s: %v", *serverURL, err)
	}
	defer func() { _ = conn.Close() }()

	var writeMu sync.Mutex
	send := func(msg relay.ClientMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("send %s: %v", msg.Type, err)
		}
	}

	spk, err := newSpeaker()
	if err != nil {
		log.Fatalf("speaker: %v", err)
	}
	defer spk.Close()

	sched := playback.New(wallClock{start: time.Now()}, spk, playback.DefaultConfig(), func() {
		log.Println("assistant finished speaking")
	})

	enc := capture.New(&micSource{}, capture.DefaultConfig(),
		func(b64 string) {
			send(relay.ClientMessage{Type: relay.MsgAudioChunk, Data: b64})
		},
		func(started bool) {
			// Barge-in: local speech while audio is queued cuts playback
			// and tells the server to cancel the response.
			if started && sched.Pending() > 0 {
				sched.Cancel()
				send(relay.ClientMessage{Type: relay.MsgCancel})
			}
		})
	if err := enc.Start(); err != nil {
		log.Fatalf("microphone: %v", err)
	}
	defer func() { _ = enc.Stop() }()

	go func() {
		t := time.NewTicker(pingInterval)
		defer t.Stop()
		for range t.C {
			send(relay.ClientMessage{Type: relay.MsgPing})
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Println("hanging up")
		_ = conn.Close()
	}()

	for {
		var msg relay.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("connection closed: %v", err)
			return
		}
		switch msg.Type {
		case relay.MsgReady:
			log.Println("session ready, start talking")
		case relay.MsgListening:
			log.Println("listening...")
		case relay.MsgProcessing:
			log.Println("thinking...")
		case relay.MsgAudioDelta:
			if b64, ok := msg.Data.(string); ok {
				if err := sched.Schedule(b64); err != nil {
					log.Printf("schedule audio: %v", err)
				}
			}
		case relay.MsgText:
			log.Printf("assistant: %v", msg.Data)
		case relay.MsgTranscription:
			log.Printf("you: %v", msg.Data)
		case relay.MsgContactSaved:
			log.Printf("contact saved: %s", renderContact(msg.Data))
		case relay.MsgContactUpdated:
			log.Printf("contact updated: %s", renderContact(msg.Data))
		case relay.MsgError:
			log.Printf("server error: %v", msg.Data)
		case relay.MsgResponseDone, relay.MsgPong:
			// Nothing to show.
		}
	}
}

func renderContact(data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
