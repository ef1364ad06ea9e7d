package notify

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type recordingPlayer struct{ played []string }

func (p *recordingPlayer) Play(ctx context.Context, path string) error {
	p.played = append(p.played, path)
	return nil
}

func TestListening_PlaysCueAndNotifies(t *testing.T) {
	cue := filepath.Join(t.TempDir(), "beep.mp3")
	if err := os.WriteFile(cue, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &recordingPlayer{}
	var cmd []string
	n := New(p, cue, true)
	n.run = func(ctx context.Context, name string, args ...string) error {
		cmd = append([]string{name}, args...)
		return nil
	}

	n.Listening(context.Background())

	if !reflect.DeepEqual(p.played, []string{cue}) {
		t.Fatalf("played %q", p.played)
	}
	if len(cmd) == 0 || cmd[0] != "notify-send" || cmd[len(cmd)-1] != "Listening..." {
		t.Fatalf("notification command %q", cmd)
	}
}

func TestBeep_MissingCueIsSkipped(t *testing.T) {
	p := &recordingPlayer{}
	n := New(p, filepath.Join(t.TempDir(), "absent.mp3"), false)

	if err := n.Beep(context.Background()); err != nil {
		t.Fatalf("beep: %v", err)
	}
	if len(p.played) != 0 {
		t.Fatalf("played %q", p.played)
	}
	if err := n.Desktop(context.Background(), "x"); err != nil {
		t.Fatalf("disabled desktop notification returned %v", err)
	}
}
