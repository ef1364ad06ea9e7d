// Package app connects the input edges (console, microphone, audio files,
// control socket, bus) to the dispatcher and mirrors everything on the
// transcript feed.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"devpro/internal/audio"
	"devpro/internal/ipc"
	"devpro/internal/listen"
	"devpro/internal/transcript"
	"devpro/pkg/audioconv"
	"devpro/pkg/stt"
)

const (
	Welcome          = "👋 Welcome to DevPro AI Assistant! Type a command, or /listen to speak."
	NoticeListening  = "🎤 Listening... Please speak now"
	NoticeProcessing = "🤔 Processing..."
	NoticeNoSpeech   = "No speech detected. Please try again."
	NoticeBusy       = "Already listening, one moment."

	cross = "❌ "

	// Console commands; any other line is a typed utterance.
	CmdListen     = "/listen"
	CmdContinuous = "/continuous"
)

var (
	ErrBusy     = errors.New("voice capture already running")
	ErrNoVoice  = errors.New("voice input disabled")
	ErrNoSpeech = errors.New("no speech detected")
)

type Dispatcher interface {
	Submit(ctx context.Context, text string) string
	Done() <-chan struct{}
}

// Listener returns the lowercased utterance, or an error that
// listen.Describe turns into the notice shown to the user.
type Listener interface {
	Listen(ctx context.Context, prompt string, maxRetries int) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type Cue interface {
	Listening(ctx context.Context)
}

type Config struct {
	Voice Listener    // nil runs text-only
	STT   Transcriber // used for audio files
	Cue   Cue

	MaxRetries     int
	MaxFileSamples int
}

type App struct {
	dispatch Dispatcher
	feed     *transcript.Feed
	cfg      Config

	capturing  atomic.Bool
	continuous atomic.Bool

	wg sync.WaitGroup
}

func New(d Dispatcher, feed *transcript.Feed, cfg Config) *App {
	return &App{dispatch: d, feed: feed, cfg: cfg}
}

// HandleText submits one typed (or remotely sent) utterance and returns its
// task id, or "" for blank input.
func (a *App) HandleText(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	a.feed.User(text)
	return a.process(ctx, text)
}

func (a *App) process(ctx context.Context, text string) string {
	a.feed.System(NoticeProcessing)
	id := a.dispatch.Submit(ctx, text)
	log.Debug("Submitted utterance", "task", id, "text", text)
	return id
}

// HandleVoice runs one capture cycle. Only one cycle runs at a time; a
// request that arrives meanwhile is turned away with ErrBusy.
func (a *App) HandleVoice(ctx context.Context) error {
	if a.cfg.Voice == nil {
		a.feed.System(cross + ErrNoVoice.Error())
		return ErrNoVoice
	}
	if !a.capturing.CompareAndSwap(false, true) {
		a.feed.System(NoticeBusy)
		return ErrBusy
	}
	defer a.capturing.Store(false)

	if a.cfg.Cue != nil {
		a.cfg.Cue.Listening(ctx)
	}
	a.feed.System(NoticeListening)

	text, err := a.cfg.Voice.Listen(ctx, "", a.cfg.MaxRetries)
	if err != nil {
		a.feed.System(cross + listen.Describe(err))
		return err
	}
	if strings.TrimSpace(text) == "" {
		a.feed.System(cross + NoticeNoSpeech)
		return ErrNoSpeech
	}

	a.feed.User(text)
	a.process(ctx, text)
	return nil
}

// Capturing reports whether a voice cycle is in progress.
func (a *App) Capturing() bool { return a.capturing.Load() }

// HandleFile transcribes an audio file and dispatches it like a voice turn.
func (a *App) HandleFile(ctx context.Context, path string) error {
	if a.cfg.STT == nil {
		return ErrNoVoice
	}

	pcm, err := audioconv.DecodeFile(path, audioconv.Options{MaxSamples: a.cfg.MaxFileSamples})
	if err != nil {
		a.feed.System(fmt.Sprintf("%sCould not read %s: %v", cross, path, err))
		return fmt.Errorf("decode %s: %w", path, err)
	}
	log.Debug("Decoded audio file", "path", path, "samples", len(pcm))

	text, err := a.cfg.STT.Transcribe(ctx, pcm)
	if err != nil {
		a.feed.System(cross + listen.Describe(err))
		return err
	}

	text = strings.ToLower(strings.TrimSpace(text))
	a.feed.User(text)
	a.process(ctx, text)
	return nil
}

// SetContinuous turns back-to-back listening on or off. While on, a new
// capture cycle starts as soon as the previous one ends.
func (a *App) SetContinuous(ctx context.Context, on bool) {
	if !a.continuous.CompareAndSwap(!on, on) {
		return
	}
	if !on {
		a.feed.System("Continuous listening off")
		return
	}

	a.feed.System("Continuous listening on")
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for a.continuous.Load() {
			err := a.HandleVoice(ctx)
			if err != nil && !keepListening(err) {
				a.continuous.Store(false)
				a.feed.System("Continuous listening stopped")
				log.Warn("Continuous listening stopped", "err", err)
				return
			}

			// back off while a manual capture holds the gate
			wait := time.Duration(0)
			if errors.Is(err, ErrBusy) {
				wait = busyBackoff
			}
			select {
			case <-ctx.Done():
				return
			case <-a.dispatch.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}

const busyBackoff = 250 * time.Millisecond

// keepListening reports whether a failed cycle is worth repeating: nobody
// spoke, the speech was unintelligible or another capture was running.
// A missing microphone or an unreachable transcriber fails the same way
// every time.
func keepListening(err error) bool {
	return errors.Is(err, audio.ErrWaitTimeout) ||
		errors.Is(err, stt.ErrNoSpeech) ||
		errors.Is(err, ErrNoSpeech) ||
		errors.Is(err, ErrBusy)
}

// Control is the handler for control socket commands. Capture and file
// transcription outlive the request, so they are started and acknowledged.
func (a *App) Control(ctx context.Context) ipc.Handler {
	return func(msg ipc.ControlMessage) error {
		switch msg.Cmd {
		case ipc.CmdListen:
			if a.cfg.Voice == nil {
				return ErrNoVoice
			}
			if a.Capturing() {
				return ErrBusy
			}
			a.background(func() { a.HandleVoice(ctx) })
		case ipc.CmdSay:
			if a.HandleText(ctx, msg.Arg) == "" {
				return errors.New("nothing to say")
			}
		case ipc.CmdFile:
			if a.cfg.STT == nil {
				return ErrNoVoice
			}
			if msg.Arg == "" {
				return errors.New("missing file path")
			}
			a.background(func() {
				if err := a.HandleFile(ctx, msg.Arg); err != nil {
					log.Warn("Audio file failed", "path", msg.Arg, "err", err)
				}
			})
		default:
			return fmt.Errorf("unknown command %q", msg.Cmd)
		}
		return nil
	}
}

func (a *App) background(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// Run shows the welcome banner and reads console lines from r until the
// context ends, the assistant shuts down or r is exhausted.
func (a *App) Run(ctx context.Context, r io.Reader) error {
	a.feed.System(Welcome)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.dispatch.Done():
			a.SetContinuous(ctx, false)
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			a.console(ctx, line)
		}
	}
}

func (a *App) console(ctx context.Context, line string) {
	switch strings.TrimSpace(line) {
	case CmdListen:
		a.background(func() { a.HandleVoice(ctx) })
	case CmdContinuous:
		a.SetContinuous(ctx, !a.continuous.Load())
	default:
		a.HandleText(ctx, line)
	}
}

// Wait blocks until background capture and file jobs have returned.
func (a *App) Wait() {
	a.continuous.Store(false)
	a.wg.Wait()
}
