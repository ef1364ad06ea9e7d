package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

const (
	playbackRate    = beep.SampleRate(44100)
	resampleQuality = 4
)

// BeepPlayer plays mp3 and wav files on the default output device. The
// speaker is initialized once at a fixed rate and every file is resampled
// to it.
type BeepPlayer struct {
	initOnce sync.Once
	initErr  error
}

func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

func (p *BeepPlayer) init() error {
	p.initOnce.Do(func() {
		p.initErr = speaker.Init(playbackRate, playbackRate.N(time.Second/10))
	})
	return p.initErr
}

func (p *BeepPlayer) Play(ctx context.Context, path string) error {
	stream, format, err := decodeFile(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := p.init(); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	var s beep.Streamer = stream
	if format.SampleRate != playbackRate {
		s = beep.Resample(resampleQuality, format.SampleRate, playbackRate, stream)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		stream beep.StreamSeekCloser
		format beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		stream, format, err = mp3.Decode(f)
	case ".wav":
		stream, format, err = wav.Decode(f)
	default:
		err = fmt.Errorf("unsupported audio file %q", ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return stream, format, nil
}
