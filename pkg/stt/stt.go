// Package stt holds the transcription backends: a local whisper.cpp model
// and the OpenAI transcription API.
package stt

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoSpeech means audio was processed but no words came out of it.
	ErrNoSpeech = errors.New("speech not understood")
	// ErrUnavailable means the transcription service could not be reached.
	ErrUnavailable = errors.New("transcription service unavailable")
)

// nonSpeechRe matches the annotations whisper emits for silence and noise,
// such as "[BLANK_AUDIO]" or "(wind blowing)".
var nonSpeechRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// clean strips non-speech annotations and collapses whitespace. An empty
// result is reported as ErrNoSpeech.
func clean(text string) (string, error) {
	text = strings.Join(strings.Fields(nonSpeechRe.ReplaceAllString(text, " ")), " ")
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}
