package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	openai "github.com/openai/openai-go/v3"

	"devpro/pkg/audioconv"
)

// OpenAI sends captured audio to the OpenAI transcription endpoint.
type OpenAI struct {
	client   openai.Client
	model    openai.AudioModel
	language string
}

func NewOpenAI(client openai.Client, model, language string) *OpenAI {
	m := openai.AudioModel(model)
	if m == "" {
		m = openai.AudioModelWhisper1
	}
	return &OpenAI{client: client, model: m, language: language}
}

func (o *OpenAI) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	if len(pcm16k) == 0 {
		return "", ErrNoSpeech
	}

	f, err := os.CreateTemp("", "devpro-capture-*.wav")
	if err != nil {
		return "", fmt.Errorf("temp wav: %w", err)
	}
	defer os.Remove(f.Name())
	defer f.Close()

	if err := audioconv.EncodeWAV(f, pcm16k, audioconv.TargetRate); err != nil {
		return "", err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return "", fmt.Errorf("rewind wav: %w", err)
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(f, "capture.wav", "audio/wav"),
		Model: o.model,
	}
	if o.language != "" && o.language != "auto" {
		params.Language = openai.String(o.language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", classify(err)
	}

	return clean(resp.Text)
}

// classify maps transport failures and server-side outages to
// ErrUnavailable. Request errors such as a rejected file stay as they are.
func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("transcribe: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
