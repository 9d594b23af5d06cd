// Package playback schedules decoded audio chunks on a virtual output
// timeline with gapless concatenation and immediate barge-in cancellation.
package playback

import (
	"sync"
	"time"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/audio"
)

// Clock reports the output device's current time in seconds. All scheduling
// decisions are made against this clock, never wall time, so playback cannot
// drift from the device.
type Clock interface {
	Now() float64
}

// Output plays a buffer starting at the given device time and invokes onDone
// when the buffer has finished (or been stopped). StopAll discards everything
// currently scheduled; a hard stop, no fade-out. The Scheduler calls PlayAt
// with its own lock held: implementations must enqueue without blocking and
// must not invoke onDone synchronously.
type Output interface {
	PlayAt(samples []int16, when float64, onDone func())
	StopAll()
}

// Config tunes the scheduler.
type Config struct {
	SampleRate int
	// GapResetThreshold in seconds: if the device clock has run past the
	// cursor by more than this, the next chunk starts a new utterance.
	GapResetThreshold float64
	// FadeSamples is the linear fade-in length applied to the first chunk of
	// a (re)started utterance to avoid a click.
	FadeSamples int
	// DoneDelay debounces the finished signal to absorb network jitter
	// between chunks of the same utterance.
	DoneDelay time.Duration
}

// DefaultConfig mirrors the wire protocol: 24kHz, 50ms gap reset, 128-sample
// fade, 150ms done debounce.
func DefaultConfig() Config {
	return Config{
		SampleRate:        audio.WireSampleRate,
		GapResetThreshold: 0.05,
		FadeSamples:       128,
		DoneDelay:         150 * time.Millisecond,
	}
}

// Scheduler maintains a monotonically advancing next-play-time cursor.
// Chunks queue back-to-back with no gap and no overlap; stale chunks are
// invalidated by a generation tag on barge-in.
type Scheduler struct {
	cfg        Config
	clock      Clock
	out        Output
	onFinished func()

	mu           sync.Mutex
	nextPlayTime float64
	chunkCount   int
	generation   int
	pending      int
	doneTimer    *time.Timer
}

// New constructs a Scheduler. onFinished fires once per utterance, after the
// last scheduled chunk ends and no new chunk arrives within DoneDelay. It may
// be nil.
func New(clock Clock, out Output, cfg Config, onFinished func()) *Scheduler {
	if cfg.SampleRate == 0 {
		cfg = DefaultConfig()
	}
	return &Scheduler{cfg: cfg, clock: clock, out: out, onFinished: onFinished}
}

// Schedule decodes one base64 PCM16 chunk and queues it on the timeline.
// Empty chunks are valid no-ops.
func (s *Scheduler) Schedule(b64 string) error {
	samples, err := audio.DecodeChunk(b64)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	now := s.clock.Now()

	// Heal small timeline drift: if the device clock overran the cursor,
	// treat this chunk as the start of a new utterance.
	if now > s.nextPlayTime+s.cfg.GapResetThreshold {
		s.nextPlayTime = now
		s.chunkCount = 0
	}
	s.chunkCount++

	if s.chunkCount == 1 {
		fade := s.cfg.FadeSamples
		if fade > len(samples) {
			fade = len(samples)
		}
		for i := 0; i < fade; i++ {
			samples[i] = int16(int(samples[i]) * i / fade)
		}
	}

	start := s.nextPlayTime
	if now > start {
		start = now
	}
	s.nextPlayTime = start + float64(len(samples))/float64(s.cfg.SampleRate)

	s.pending++
	gen := s.generation
	if s.doneTimer != nil {
		s.doneTimer.Stop()
		s.doneTimer = nil
	}

	// Hand off before releasing the lock so a concurrent Cancel cannot flush
	// the output first and then receive this chunk after the flush.
	s.out.PlayAt(samples, start, func() { s.chunkDone(gen) })
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) chunkDone(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	if s.pending > 0 {
		s.pending--
	}
	if s.pending != 0 {
		return
	}
	if s.doneTimer != nil {
		s.doneTimer.Stop()
	}
	s.doneTimer = time.AfterFunc(s.cfg.DoneDelay, func() {
		s.mu.Lock()
		fire := s.pending == 0 && gen == s.generation
		s.mu.Unlock()
		if fire && s.onFinished != nil {
			s.onFinished()
		}
	})
}

// Cancel implements barge-in: every scheduled chunk is stopped and discarded,
// the queue is cleared, and the timeline cursor resets. Chunks still in
// flight when this runs are invalidated by the generation bump.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	s.generation++
	s.pending = 0
	s.chunkCount = 0
	s.nextPlayTime = 0
	if s.doneTimer != nil {
		s.doneTimer.Stop()
		s.doneTimer = nil
	}
	s.mu.Unlock()

	s.out.StopAll()
}

// Pending reports how many scheduled chunks have not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
