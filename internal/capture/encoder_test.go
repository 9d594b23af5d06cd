package capture

import (
	"sync"
	"testing"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/audio"
)

// fakeSource records start/stop calls and lets the test push frames directly.
type fakeSource struct {
	mu      sync.Mutex
	starts  int
	stops   int
	onFrame func([]int16, int)
}

func (f *fakeSource) Start(onFrame func([]int16, int)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.onFrame = onFrame
	return nil
}

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

func (f *fakeSource) push(samples []int16, rate int) {
	f.mu.Lock()
	cb := f.onFrame
	f.mu.Unlock()
	if cb != nil {
		cb(samples, rate)
	}
}

func TestEncoderEmitsExactChunks(t *testing.T) {
	src := &fakeSource{}
	cfg := DefaultConfig()
	cfg.ChunkSamples = 100

	var chunks []string
	enc := New(src, cfg, func(c string) { chunks = append(chunks, c) }, nil)
	if err := enc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 250 samples already at wire rate: two full chunks, 50 left over.
	frame := make([]int16, 250)
	for i := range frame {
		frame[i] = int16(i)
	}
	src.push(frame, cfg.WireRate)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		got, err := audio.DecodeChunk(c)
		if err != nil {
			t.Fatalf("chunk %d decode: %v", i, err)
		}
		if len(got) != 100 {
			t.Fatalf("chunk %d: expected 100 samples, got %d", i, len(got))
		}
		for j, s := range got {
			if want := int16(i*100 + j); s != want {
				t.Fatalf("chunk %d sample %d: got %d want %d", i, j, s, want)
			}
		}
	}

	// The leftover 50 samples complete a chunk after 50 more arrive.
	src.push(make([]int16, 50), cfg.WireRate)
	if len(chunks) != 3 {
		t.Fatalf("expected leftover to complete a third chunk, got %d", len(chunks))
	}
}

func TestEncoderResamplesDeviceRate(t *testing.T) {
	src := &fakeSource{}
	cfg := DefaultConfig()
	cfg.ChunkSamples = 1200

	var chunks []string
	enc := New(src, cfg, func(c string) { chunks = append(chunks, c) }, nil)
	if err := enc.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	// 2400 samples at 48kHz resample to 1200 at 24kHz: exactly one chunk.
	src.push(make([]int16, 2400), 48000)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk from a 48kHz frame, got %d", len(chunks))
	}
}

func TestEncoderStartIdempotent(t *testing.T) {
	src := &fakeSource{}
	enc := New(src, DefaultConfig(), nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = enc.Start()
		}()
	}
	wg.Wait()

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.starts != 1 {
		t.Fatalf("source acquired %d times, want 1", src.starts)
	}
}

func TestEncoderStopDiscardsPartialAndResets(t *testing.T) {
	src := &fakeSource{}
	cfg := DefaultConfig()
	cfg.ChunkSamples = 100

	var chunks []string
	enc := New(src, cfg, func(c string) { chunks = append(chunks, c) }, nil)
	_ = enc.Start()

	// Loud partial frame: VAD counters advance, buffer holds 60 samples.
	loud := make([]int16, 60)
	for i := range loud {
		loud[i] = 8000
	}
	src.push(loud, cfg.WireRate)
	src.push(loud, cfg.WireRate)

	if err := enc.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly the one full chunk emitted before stop, got %d", len(chunks))
	}
	if enc.Speaking() {
		t.Fatalf("stop must reset VAD state")
	}

	// Frames after stop are ignored until restarted.
	src.push(make([]int16, 200), cfg.WireRate)
	if len(chunks) != 1 {
		t.Fatalf("frames after stop must be dropped")
	}

	// Restart begins from an empty buffer.
	_ = enc.Start()
	src.push(make([]int16, 100), cfg.WireRate)
	if len(chunks) != 2 {
		t.Fatalf("expected a fresh chunk after restart, got %d", len(chunks))
	}
	got, _ := audio.DecodeChunk(chunks[1])
	if len(got) != 100 {
		t.Fatalf("restart chunk wrong size: %d", len(got))
	}
}

func TestEncoderSpeechTransitions(t *testing.T) {
	src := &fakeSource{}
	cfg := DefaultConfig()
	cfg.VAD = audio.VADConfig{Threshold: 0.025, SpeechOnFrames: 2, SilenceOffFrames: 2, HoldDuration: 0}

	var events []bool
	enc := New(src, cfg, nil, func(started bool) { events = append(events, started) })
	_ = enc.Start()

	loud := make([]int16, 1200)
	for i := range loud {
		loud[i] = 8000
	}
	for i := 0; i < 3; i++ {
		src.push(loud, cfg.WireRate)
	}
	for i := 0; i < 4; i++ {
		src.push(make([]int16, 1200), cfg.WireRate)
	}

	if len(events) != 2 || events[0] != true || events[1] != false {
		t.Fatalf("expected [start stop], got %v", events)
	}
}
