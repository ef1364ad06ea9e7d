package tts

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Espeak renders speech locally with the espeak-ng command line tool.
type Espeak struct {
	binary string
	voice  string
	rate   int // words per minute
}

func NewEspeak(binary, voice string, rate int) *Espeak {
	if binary == "" {
		binary = "espeak-ng"
	}
	if voice == "" {
		voice = "en"
	}
	if rate <= 0 {
		rate = 175
	}
	return &Espeak{binary: binary, voice: voice, rate: rate}
}

func (e *Espeak) Format() string { return "wav" }
func (e *Espeak) Voice() string  { return "espeak:" + e.voice }

func (e *Espeak) Synthesize(ctx context.Context, text, path string) error {
	if text == "" {
		return fmt.Errorf("espeak: empty text")
	}

	cmd := exec.CommandContext(ctx, e.binary,
		"-v", e.voice,
		"-s", strconv.Itoa(e.rate),
		"-w", path,
		"--", text,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("espeak: %w: %s", err, out)
	}
	return nil
}
