// Package capture turns a continuous microphone stream into fixed-size
// base64-encoded PCM16 chunks at the wire sample rate.
package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/audio"
)

// Source is an audio input device delivering raw mono int16 frames at its
// native rate. The frame callback runs on the device's capture context and
// must not block.
type Source interface {
	Start(onFrame func(samples []int16, sampleRate int)) error
	Stop() error
}

// Config tunes the encoder. ChunkSamples balances latency against message
// overhead; 1200 samples is 50ms at 24kHz.
type Config struct {
	WireRate     int
	ChunkSamples int
	VAD          audio.VADConfig
}

// DefaultConfig returns the wire-rate chunking used by the relay protocol.
func DefaultConfig() Config {
	return Config{
		WireRate:     audio.WireSampleRate,
		ChunkSamples: 1200,
		VAD:          audio.DefaultVADConfig(),
	}
}

// Encoder owns the capture source, resamples incoming frames to the wire
// rate, runs VAD, and emits exact fixed-size encoded chunks. Leftover samples
// stay buffered for the next frame; Stop discards any partial chunk.
type Encoder struct {
	cfg      Config
	src      Source
	onChunk  func(b64 string)
	onSpeech func(started bool)

	mu      sync.Mutex
	started bool
	buf     []int16
	vad     *audio.VAD
}

// New constructs an Encoder. onChunk receives each encoded chunk; onSpeech
// receives VAD transitions (true on speech-start). Either callback may be nil.
func New(src Source, cfg Config, onChunk func(string), onSpeech func(bool)) *Encoder {
	if cfg.WireRate == 0 {
		cfg.WireRate = audio.WireSampleRate
	}
	if cfg.ChunkSamples == 0 {
		cfg.ChunkSamples = DefaultConfig().ChunkSamples
	}
	return &Encoder{
		cfg:      cfg,
		src:      src,
		onChunk:  onChunk,
		onSpeech: onSpeech,
		vad:      audio.NewVAD(cfg.VAD),
	}
}

// Start acquires the audio source and begins processing. Idempotent: a second
// call while started is a no-op and never duplicates source acquisition.
func (e *Encoder) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}
	if err := e.src.Start(e.processFrame); err != nil {
		return fmt.Errorf("start capture source: %w", err)
	}
	e.started = true
	return nil
}

// Stop releases the audio source and resets all accumulation and VAD state.
// Any partial buffered chunk is discarded, not flushed.
func (e *Encoder) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	err := e.src.Stop()
	e.started = false
	e.buf = nil
	e.vad.Reset()
	return err
}

// Speaking reports the VAD hysteresis state.
func (e *Encoder) Speaking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vad.Speaking()
}

// processFrame runs inline on the capture context: resample, VAD, chunk,
// encode. All work is in-memory; the encoded chunk is handed to onChunk which
// must hand off without blocking.
func (e *Encoder) processFrame(samples []int16, sampleRate int) {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return
	}

	resampled := audio.Resample(samples, sampleRate, e.cfg.WireRate)

	var speech *bool
	switch e.vad.Process(resampled, time.Now()) {
	case audio.VADSpeechStart:
		v := true
		speech = &v
	case audio.VADSpeechStop:
		v := false
		speech = &v
	}

	e.buf = append(e.buf, resampled...)

	var chunks []string
	for len(e.buf) >= e.cfg.ChunkSamples {
		chunks = append(chunks, audio.EncodeChunk(e.buf[:e.cfg.ChunkSamples]))
		n := copy(e.buf, e.buf[e.cfg.ChunkSamples:])
		e.buf = e.buf[:n]
	}
	e.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the encoder.
	if speech != nil && e.onSpeech != nil {
		e.onSpeech(*speech)
	}
	if e.onChunk != nil {
		for _, c := range chunks {
			e.onChunk(c)
		}
	}
}
