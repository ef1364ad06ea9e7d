package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

var (
	ErrWaitTimeout  = errors.New("no speech before timeout")
	ErrNoMicrophone = errors.New("no microphone available")
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
	frameDur   = time.Second * frameSize / SampleRate

	ambientMultiplier = 1.5
)

type Options struct {
	// EnergyThreshold is the RMS level above which a frame counts as speech.
	// Calibrate may raise it to sit above the ambient noise floor.
	EnergyThreshold float64
	// PauseThreshold is how much trailing silence ends a phrase.
	PauseThreshold time.Duration
}

func DefaultOptions() Options {
	return Options{
		EnergyThreshold: 0.015,
		PauseThreshold:  800 * time.Millisecond,
	}
}

// Recorder captures single phrases from the default input device.
type Recorder struct {
	opts Options

	mu        sync.Mutex
	threshold float64
}

func NewRecorder(opts Options) *Recorder {
	if opts.EnergyThreshold <= 0 {
		opts.EnergyThreshold = DefaultOptions().EnergyThreshold
	}
	if opts.PauseThreshold <= 0 {
		opts.PauseThreshold = DefaultOptions().PauseThreshold
	}
	return &Recorder{opts: opts, threshold: opts.EnergyThreshold}
}

func (r *Recorder) Init() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return fmt.Errorf("%w: %v", ErrNoMicrophone, err)
	}
	return nil
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

func (r *Recorder) Threshold() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.threshold
}

// Calibrate listens to the room for d and moves the speech threshold above
// the measured noise floor.
func (r *Recorder) Calibrate(ctx context.Context, d time.Duration) error {
	buf := make([]float32, frameSize)

	stream, err := openInput(buf)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	var (
		sum    float64
		frames int
	)
	for n := int(d / frameDur); frames < n; frames++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stream.Read(); err != nil {
			return fmt.Errorf("read input stream: %w", err)
		}
		sum += frameRMS(buf)
	}

	if frames == 0 {
		return nil
	}

	ambient := sum / float64(frames)
	threshold := calibratedThreshold(r.opts.EnergyThreshold, ambient)

	r.mu.Lock()
	r.threshold = threshold
	r.mu.Unlock()

	log.Debug("Calibrated microphone", "ambient", ambient, "threshold", threshold)
	return nil
}

func calibratedThreshold(base, ambient float64) float64 {
	return math.Max(base, ambient*ambientMultiplier)
}

// Capture waits up to timeout for speech to start, then records until a
// pause or until the phrase reaches phraseLimit. It returns ErrWaitTimeout
// when nobody spoke.
func (r *Recorder) Capture(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error) {
	buf := make([]float32, frameSize)
	out := make([]float32, 0, SampleRate*3)

	stream, err := openInput(buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	det := newPhraseDetector(r.Threshold(), r.opts.PauseThreshold, timeout, phraseLimit)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		switch det.feed(frameRMS(buf)) {
		case frameSkip:
		case frameKeep:
			out = append(out, buf...)
		case phraseDone:
			out = append(out, buf...)
			return out, nil
		case waitTimedOut:
			return nil, ErrWaitTimeout
		}
	}
}

func openInput(buf []float32) (*portaudio.Stream, error) {
	if _, err := portaudio.DefaultInputDevice(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMicrophone, err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	return stream, nil
}

type frameVerdict int

const (
	frameSkip frameVerdict = iota
	frameKeep
	phraseDone
	waitTimedOut
)

// phraseDetector is the energy-based endpointing state machine behind
// Capture, fed one 20ms frame at a time.
type phraseDetector struct {
	threshold float64
	pause     time.Duration
	timeout   time.Duration
	limit     time.Duration

	waited   time.Duration
	spoken   time.Duration
	silence  time.Duration
	speaking bool
}

func newPhraseDetector(threshold float64, pause, timeout, limit time.Duration) *phraseDetector {
	return &phraseDetector{
		threshold: threshold,
		pause:     pause,
		timeout:   timeout,
		limit:     limit,
	}
}

func (d *phraseDetector) feed(rms float64) frameVerdict {
	loud := rms > d.threshold

	if !d.speaking {
		if !loud {
			d.waited += frameDur
			if d.timeout > 0 && d.waited >= d.timeout {
				return waitTimedOut
			}
			return frameSkip
		}
		d.speaking = true
	}

	d.spoken += frameDur
	if loud {
		d.silence = 0
	} else {
		d.silence += frameDur
	}

	if d.silence >= d.pause || (d.limit > 0 && d.spoken >= d.limit) {
		return phraseDone
	}
	return frameKeep
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
