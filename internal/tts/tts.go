// Package tts is the assistant's voice: it renders responses to audio
// files through a synthesizer, keeps them in a content-addressed cache and
// plays them back.
package tts

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"sync"
)

var ErrDisabled = errors.New("speech synthesis disabled")

type Synthesizer interface {
	// Synthesize renders text into an audio file at path.
	Synthesize(ctx context.Context, text, path string) error
	// Format is the file extension of rendered audio, e.g. "mp3".
	Format() string
	// Voice identifies the voice so cache keys differ between voices.
	Voice() string
}

type Player interface {
	Play(ctx context.Context, path string) error
}

// Ducker quiets other audio while the assistant talks.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Config struct {
	Synth  Synthesizer // nil disables audio, every response is printed
	Player Player
	Ducker Ducker

	CacheDir string
	// CacheSize is how many renders are kept around; older files are
	// deleted as new ones arrive.
	CacheSize int

	// Echo receives every response before it is voiced.
	Echo func(text string)
	// Fallback is where the text goes when it cannot be voiced.
	Fallback io.Writer
}

type cacheEntry struct {
	key  string
	path string
}

// Speaker voices responses. It never reports failure: whatever goes wrong
// between synthesis and playback, the text is printed instead.
type Speaker struct {
	cfg Config

	mu    sync.Mutex
	index map[string]*list.Element
	lru   *list.List

	// one utterance at a time on the audio device
	playMu sync.Mutex
}

func NewSpeaker(cfg Config) (*Speaker, error) {
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(os.TempDir(), "devpro_audio")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 64
	}
	if cfg.Fallback == nil {
		cfg.Fallback = os.Stdout
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio cache: %w", err)
	}

	return &Speaker{
		cfg:   cfg,
		index: make(map[string]*list.Element),
		lru:   list.New(),
	}, nil
}

func (s *Speaker) Speak(ctx context.Context, text string) {
	if s.cfg.Echo != nil {
		s.cfg.Echo(text)
	}

	if err := s.speak(ctx, text); err != nil {
		if !errors.Is(err, ErrDisabled) {
			log.Error("Error in text-to-speech", "err", err)
		}
		fmt.Fprintf(s.cfg.Fallback, "DevPro: %s\n", text)
		return
	}

	log.Info("TTS", "text", text)
}

func (s *Speaker) speak(ctx context.Context, text string) error {
	if s.cfg.Synth == nil || s.cfg.Player == nil {
		return ErrDisabled
	}

	path, err := s.render(ctx, text)
	if err != nil {
		return err
	}

	s.playMu.Lock()
	defer s.playMu.Unlock()

	if s.cfg.Ducker != nil {
		if err := s.cfg.Ducker.Duck(ctx); err != nil {
			log.Debug("Failed to duck other streams", "err", err)
		}
		defer func() {
			if err := s.cfg.Ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Debug("Failed to restore other streams", "err", err)
			}
		}()
	}

	if err := s.cfg.Player.Play(ctx, path); err != nil {
		return fmt.Errorf("play %s: %w", filepath.Base(path), err)
	}
	return nil
}

// CacheKey is the content hash naming the rendered file for text.
func (s *Speaker) CacheKey(text string) string {
	sum := sha256.Sum256([]byte(s.cfg.Synth.Voice() + "\x00" + text))
	return hex.EncodeToString(sum[:16])
}

// render returns the cached file for text, synthesizing it on a miss.
func (s *Speaker) render(ctx context.Context, text string) (string, error) {
	key := s.CacheKey(text)
	path := filepath.Join(s.cfg.CacheDir, "audio_"+key+"."+s.cfg.Synth.Format())

	s.mu.Lock()
	if el, ok := s.index[key]; ok {
		if _, err := os.Stat(path); err == nil {
			s.lru.MoveToFront(el)
			s.mu.Unlock()
			return path, nil
		}
		s.lru.Remove(el)
		delete(s.index, key)
	}
	s.mu.Unlock()

	// Concurrent misses on the same text each render into their own file;
	// the rename makes the last one win.
	tmp, err := os.CreateTemp(s.cfg.CacheDir, "audio_"+key+"_*.part")
	if err != nil {
		return "", fmt.Errorf("create render file: %w", err)
	}
	part := tmp.Name()
	tmp.Close()

	if err := s.cfg.Synth.Synthesize(ctx, text, part); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("synthesize: %w", err)
	}
	if err := os.Rename(part, path); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("store render: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.index[key]; ok {
		s.lru.MoveToFront(el)
		return path, nil
	}
	s.index[key] = s.lru.PushFront(cacheEntry{key: key, path: path})

	for s.lru.Len() > s.cfg.CacheSize {
		oldest := s.lru.Back()
		e := oldest.Value.(cacheEntry)
		s.lru.Remove(oldest)
		delete(s.index, e.key)
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debug("Failed to remove cached audio", "path", e.path, "err", err)
		}
	}

	return path, nil
}

// Close deletes every cached render.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for el := s.lru.Front(); el != nil; el = el.Next() {
		if err := os.Remove(el.Value.(cacheEntry).path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	s.index = make(map[string]*list.Element)
	s.lru.Init()

	return errors.Join(errs...)
}
