package audio

import "time"

// VADEvent is the outcome of processing one frame.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADSpeechStart
	VADSpeechStop
)

// VADConfig holds the detector thresholds. The values are tunable constants
// carried over from field tuning, not derived adaptively.
type VADConfig struct {
	// Threshold is the normalized RMS level above which a frame counts as speech.
	Threshold float64
	// SpeechOnFrames is how many consecutive speech frames trigger speech-start.
	SpeechOnFrames int
	// SilenceOffFrames is how many consecutive silent frames are required
	// (in addition to HoldDuration) before speech-stop fires.
	SilenceOffFrames int
	// HoldDuration is the minimum time since the last speech frame before
	// speech-stop may fire. Keeps brief mid-sentence pauses from flapping.
	HoldDuration time.Duration
}

// DefaultVADConfig returns the tuned defaults: fast onset for low-latency
// interruption, slow offset to tolerate pauses.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		Threshold:        0.025,
		SpeechOnFrames:   2,
		SilenceOffFrames: 8,
		HoldDuration:     350 * time.Millisecond,
	}
}

// VAD classifies a stream of frames into speaking/not-speaking transitions
// with hysteresis. One instance per capture session; not safe for concurrent
// use, the audio callback owns it.
type VAD struct {
	cfg          VADConfig
	speaking     bool
	speechCount  int
	silenceCount int
	lastSpeech   time.Time
}

func NewVAD(cfg VADConfig) *VAD {
	return &VAD{cfg: cfg}
}

// Process classifies one frame and returns the transition it caused, if any.
func (v *VAD) Process(samples []int16, now time.Time) VADEvent {
	if RMS(samples) > v.cfg.Threshold {
		v.silenceCount = 0
		v.speechCount++
		v.lastSpeech = now
		if !v.speaking && v.speechCount >= v.cfg.SpeechOnFrames {
			v.speaking = true
			return VADSpeechStart
		}
		return VADNone
	}

	v.speechCount = 0
	v.silenceCount++
	if v.speaking &&
		now.Sub(v.lastSpeech) >= v.cfg.HoldDuration &&
		v.silenceCount > v.cfg.SilenceOffFrames {
		v.speaking = false
		return VADSpeechStop
	}
	return VADNone
}

// Speaking reports the current hysteresis state.
func (v *VAD) Speaking() bool { return v.speaking }

// Reset clears all counters and state.
func (v *VAD) Reset() {
	v.speaking = false
	v.speechCount = 0
	v.silenceCount = 0
	v.lastSpeech = time.Time{}
}
