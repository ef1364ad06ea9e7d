package tts

import (
	"context"
	"fmt"
	"io"
	"os"

	openai "github.com/openai/openai-go/v3"
)

// OpenAISynth renders mp3 speech with the OpenAI speech endpoint.
type OpenAISynth struct {
	client openai.Client
	model  string
	voice  string
}

func NewOpenAISynth(client openai.Client, model, voice string) *OpenAISynth {
	if model == "" {
		model = string(openai.SpeechModelTTS1)
	}
	if voice == "" {
		voice = string(openai.AudioSpeechNewParamsVoiceAlloy)
	}
	return &OpenAISynth{client: client, model: model, voice: voice}
}

func (o *OpenAISynth) Format() string { return "mp3" }
func (o *OpenAISynth) Voice() string  { return "openai:" + o.model + ":" + o.voice }

func (o *OpenAISynth) Synthesize(ctx context.Context, text, path string) error {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("read speech audio: %w", err)
	}
	return f.Close()
}
