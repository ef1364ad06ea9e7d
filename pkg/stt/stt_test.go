package stt

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClean(t *testing.T) {
	cases := map[string]string{
		" What's the time? ":               "What's the time?",
		"[BLANK_AUDIO] hello  there":       "hello there",
		"(wind blowing) search for pizza": "search for pizza",
	}
	for in, want := range cases {
		got, err := clean(in)
		if err != nil || got != want {
			t.Errorf("clean(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := clean(" [BLANK_AUDIO] "); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	err := classify(fmt.Errorf("dial tcp: connection refused"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("network failure should be unavailable: %v", err)
	}

	if err := classify(context.Canceled); !errors.Is(err, context.Canceled) || errors.Is(err, ErrUnavailable) {
		t.Fatalf("cancellation misclassified: %v", err)
	}
}

func TestOpenAI_EmptyAudio(t *testing.T) {
	o := &OpenAI{}
	if _, err := o.Transcribe(context.Background(), nil); !errors.Is(err, ErrNoSpeech) {
		t.Fatalf("expected ErrNoSpeech, got %v", err)
	}
}
