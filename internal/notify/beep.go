// Package notify signals the start of a listening cycle: a short sound on
// the speakers and a desktop notification.
package notify

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/exec"
)

type Player interface {
	Play(ctx context.Context, path string) error
}

type Notifier struct {
	player  Player
	cue     string
	desktop bool

	// run is swapped out in tests.
	run func(ctx context.Context, name string, args ...string) error
}

// New returns a notifier that plays the cue file through player and, when
// desktop is set, also posts a notify-send bubble. A missing cue file is
// not an error; the sound is just skipped.
func New(player Player, cue string, desktop bool) *Notifier {
	return &Notifier{player: player, cue: cue, desktop: desktop, run: runCmd}
}

// Listening is called right before the microphone opens.
func (n *Notifier) Listening(ctx context.Context) {
	if err := n.Beep(ctx); err != nil {
		log.Debug("Failed to play listening cue", "err", err)
	}
	if err := n.Desktop(ctx, "Listening..."); err != nil {
		log.Debug("Failed to post desktop notification", "err", err)
	}
}

func (n *Notifier) Beep(ctx context.Context) error {
	if n.player == nil || n.cue == "" {
		return nil
	}
	if _, err := os.Stat(n.cue); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := n.player.Play(ctx, n.cue); err != nil {
		return fmt.Errorf("play cue: %w", err)
	}
	return nil
}

func (n *Notifier) Desktop(ctx context.Context, msg string) error {
	if !n.desktop {
		return nil
	}
	return n.run(ctx, "notify-send", "--app-name=devpro", "--expire-time=2000", "DevPro", msg)
}

func runCmd(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}
