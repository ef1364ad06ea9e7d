// Package listen turns one spoken phrase into an utterance, retrying
// through silence and unintelligible speech.
package listen

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"devpro/internal/audio"
	"devpro/pkg/stt"
)

// Failure strings returned by RecordAudio in place of an utterance.
const (
	MsgTimeout        = "Timeout: No speech detected. Please try again."
	MsgUnintelligible = "Sorry, I couldn't understand that. Please try again."
	MsgUnavailable    = "Could not connect to speech recognition service. Error: %v"
	MsgNoMicrophone   = "Error: %v. Please check your input device."
	MsgUnexpected     = "An error occurred: %v"
)

// failureMarkers identify a RecordAudio result that is not real speech.
var failureMarkers = []string{"error", "timeout", "could not", "couldn't"}

// IsFailure reports whether a RecordAudio result is a failure message
// rather than something the user said.
func IsFailure(s string) bool {
	s = strings.ToLower(s)
	if strings.TrimSpace(s) == "" {
		return true
	}
	for _, m := range failureMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Capturer is the microphone side.
type Capturer interface {
	Calibrate(ctx context.Context, d time.Duration) error
	Capture(ctx context.Context, timeout, phraseLimit time.Duration) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type Options struct {
	Ambient     time.Duration
	Timeout     time.Duration
	PhraseLimit time.Duration
}

func DefaultOptions() Options {
	return Options{
		Ambient:     2 * time.Second,
		Timeout:     5 * time.Second,
		PhraseLimit: 7 * time.Second,
	}
}

type Adapter struct {
	mic    Capturer
	stt    Transcriber
	prompt func(ctx context.Context, text string)
	opt    Options
}

// New builds an adapter. prompt, when set, voices the optional question
// asked before each listening attempt.
func New(mic Capturer, tr Transcriber, prompt func(ctx context.Context, text string), opt Options) *Adapter {
	return &Adapter{mic: mic, stt: tr, prompt: prompt, opt: opt}
}

// RecordAudio is Listen for callers that want a single string: the
// lowercased utterance on success, one of the Msg* texts otherwise.
func (a *Adapter) RecordAudio(ctx context.Context, prompt string, maxRetries int) string {
	text, err := a.Listen(ctx, prompt, maxRetries)
	if err != nil {
		return Describe(err)
	}
	return text
}

// Describe renders a Listen error as the message shown to the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, audio.ErrWaitTimeout):
		return MsgTimeout
	case errors.Is(err, stt.ErrNoSpeech):
		return MsgUnintelligible
	case errors.Is(err, stt.ErrUnavailable):
		return fmt.Sprintf(MsgUnavailable, err)
	case errors.Is(err, audio.ErrNoMicrophone):
		return fmt.Sprintf(MsgNoMicrophone, err)
	default:
		return fmt.Sprintf(MsgUnexpected, err)
	}
}

// Listen makes up to maxRetries+1 capture attempts. Silence and
// unintelligible speech are retried; an unreachable transcription service,
// a missing microphone or any other failure ends the cycle at once.
func (a *Adapter) Listen(ctx context.Context, prompt string, maxRetries int) (string, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		var text string
		text, err = a.attempt(ctx, prompt, attempt, maxRetries+1)
		if err == nil {
			return text, nil
		}

		if !retryable(err) {
			log.Error("Listening failed", "attempt", attempt, "err", err)
			return "", err
		}
		if attempt <= maxRetries {
			log.Warn("Retrying capture", "attempt", attempt, "err", err)
		}
	}
	return "", err
}

func (a *Adapter) attempt(ctx context.Context, prompt string, n, total int) (string, error) {
	log.Info("Adjusting for ambient noise", "attempt", n, "of", total)
	if err := a.mic.Calibrate(ctx, a.opt.Ambient); err != nil {
		return "", fmt.Errorf("calibrate: %w", err)
	}

	if prompt != "" && a.prompt != nil {
		a.prompt(ctx, prompt)
	}

	log.Info("Listening")
	pcm, err := a.mic.Capture(ctx, a.opt.Timeout, a.opt.PhraseLimit)
	if err != nil {
		return "", err
	}

	log.Info("Recognizing speech", "samples", len(pcm))
	text, err := a.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", err
	}

	log.Info("Recognized", "text", text)
	return strings.ToLower(text), nil
}

func retryable(err error) bool {
	return errors.Is(err, audio.ErrWaitTimeout) || errors.Is(err, stt.ErrNoSpeech)
}

// SelfTest runs one short capture and transcription. Silence and
// unrecognizable audio pass: the point is that the device and the
// transcriber work.
func (a *Adapter) SelfTest(ctx context.Context) error {
	log.Info("Testing microphone")

	if err := a.mic.Calibrate(ctx, a.opt.Ambient); err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}

	pcm, err := a.mic.Capture(ctx, 3*time.Second, 3*time.Second)
	if errors.Is(err, audio.ErrWaitTimeout) {
		log.Info("Microphone test successful", "speech", false)
		return nil
	}
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	if _, err := a.stt.Transcribe(ctx, pcm); err != nil && !errors.Is(err, stt.ErrNoSpeech) {
		return fmt.Errorf("transcribe: %w", err)
	}

	log.Info("Microphone test successful", "speech", true)
	return nil
}
