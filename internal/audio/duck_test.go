package audio

import (
	"context"
	"reflect"
	"strings"
	"testing"
)

const sinkInputsFixture = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 52429 /  80% / -5.81 dB,   front-right: 52429 /  80% / -5.81 dB
	Properties:
		application.name = "Firefox"
Sink Input #57
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "devpro"
Sink Input #bogus
	Volume: front-left: 1 / 1%
`

func TestParseSinkInputs(t *testing.T) {
	got := parseSinkInputs(sinkInputsFixture)
	want := []sinkInput{
		{ID: 41, Volume: 80, AppName: "Firefox"},
		{ID: 57, Volume: 100, AppName: "devpro"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parsed %+v, want %+v", got, want)
	}

	if parseSinkInputs("") != nil {
		t.Fatalf("expected no inputs for empty output")
	}
}

func TestDucker_DuckAndRestoreForeignStreams(t *testing.T) {
	var calls []string

	d := NewDucker([]string{"devpro"}, 0.25, 10, 0)
	d.pactl = func(ctx context.Context, args ...string) ([]byte, error) {
		if args[0] == "list" {
			return []byte(sinkInputsFixture), nil
		}
		calls = append(calls, strings.Join(args, " "))
		return nil, nil
	}

	ctx := context.Background()
	if err := d.Duck(ctx); err != nil {
		t.Fatalf("duck: %v", err)
	}
	if err := d.Duck(ctx); err != nil {
		t.Fatalf("second duck: %v", err)
	}
	if err := d.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}

	want := []string{
		"set-sink-input-volume 41 20%",
		// The fixture still reports 80%, so restoring lands on 80%.
		"set-sink-input-volume 41 80%",
	}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("pactl calls %q, want %q", calls, want)
	}
}

func TestDucker_RestoreWithoutDuckIsNoop(t *testing.T) {
	d := NewDucker(nil, 0.5, 0, 0)
	d.pactl = func(ctx context.Context, args ...string) ([]byte, error) {
		t.Fatalf("unexpected pactl call %v", args)
		return nil, nil
	}
	if err := d.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
}
