// Package config layers the assistant's settings: built-in defaults, an
// optional YAML file, then the environment (with .env support). Command
// line flags are applied on top by the binary.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"devpro/internal/ipc"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	Transcript TranscriptConfig `yaml:"transcript"`
	Voice      VoiceConfig      `yaml:"voice"`
	TTS        TTSConfig        `yaml:"tts"`
	Net        NetConfig        `yaml:"net"`

	OpenAIKey string `yaml:"-"`
}

type TranscriptConfig struct {
	Path string `yaml:"path"`
	// Placeholder logs "Assistant response logged." instead of the reply.
	Placeholder bool `yaml:"placeholder"`
}

type VoiceConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SkipSelfTest bool   `yaml:"skip_self_test"`
	Engine       string `yaml:"engine"` // "openai" or "whisper"
	WhisperModel string `yaml:"whisper_model"`
	Language     string `yaml:"language"`

	MaxRetries      int           `yaml:"max_retries"`
	Timeout         time.Duration `yaml:"timeout"`
	PhraseLimit     time.Duration `yaml:"phrase_limit"`
	Ambient         time.Duration `yaml:"ambient"`
	PauseThreshold  time.Duration `yaml:"pause_threshold"`
	EnergyThreshold float64       `yaml:"energy_threshold"`

	Cue           string `yaml:"cue"`
	Notifications bool   `yaml:"notifications"`
}

type TTSConfig struct {
	Engine    string `yaml:"engine"` // "openai", "espeak" or "none"
	Model     string `yaml:"model"`
	Voice     string `yaml:"voice"`
	CacheDir  string `yaml:"cache_dir"`
	CacheSize int    `yaml:"cache_size"`
	Duck      bool   `yaml:"duck"`
}

type NetConfig struct {
	Proxy      string        `yaml:"proxy"`
	Timeout    time.Duration `yaml:"timeout"`
	BusURL     string        `yaml:"bus_url"`
	Socket     string        `yaml:"socket"`
	QuotesURL  string        `yaml:"quotes_url"`
	WeatherURL string        `yaml:"weather_url"`
	Browser    bool          `yaml:"browser"`
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Transcript: TranscriptConfig{
			Path: "conversation_history.txt",
		},
		Voice: VoiceConfig{
			Enabled:         true,
			Engine:          "openai",
			WhisperModel:    "models/ggml-base.en.bin",
			Language:        "en",
			MaxRetries:      3,
			Timeout:         5 * time.Second,
			PhraseLimit:     7 * time.Second,
			Ambient:         2 * time.Second,
			PauseThreshold:  800 * time.Millisecond,
			EnergyThreshold: 0.015,
			Cue:             "beep.mp3",
		},
		TTS: TTSConfig{
			Engine:    "openai",
			Model:     "tts-1",
			Voice:     "alloy",
			CacheDir:  filepath.Join(os.TempDir(), "devpro_audio"),
			CacheSize: 64,
		},
		Net: NetConfig{
			Timeout:    30 * time.Second,
			Socket:     ipc.DefaultSocketPath(),
			QuotesURL:  "https://query1.finance.yahoo.com",
			WeatherURL: "https://wttr.in",
			Browser:    true,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and the environment. envFile is loaded into the environment first;
// a missing .env file is fine.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load env file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("DEVPRO_LOG_LEVEL", &c.LogLevel)
	str("DEVPRO_TRANSCRIPT", &c.Transcript.Path)
	str("DEVPRO_STT_ENGINE", &c.Voice.Engine)
	str("DEVPRO_WHISPER_MODEL", &c.Voice.WhisperModel)
	str("DEVPRO_TTS_ENGINE", &c.TTS.Engine)
	str("DEVPRO_TTS_VOICE", &c.TTS.Voice)
	str("DEVPRO_PROXY", &c.Net.Proxy)
	str("DEVPRO_BUS_URL", &c.Net.BusURL)
	str("DEVPRO_SOCKET", &c.Net.Socket)

	if v := os.Getenv("DEVPRO_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEVPRO_MAX_RETRIES: %w", err)
		}
		c.Voice.MaxRetries = n
	}
	if v := os.Getenv("DEVPRO_VOICE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEVPRO_VOICE: %w", err)
		}
		c.Voice.Enabled = b
	}
	return nil
}

// Validate checks the settings the binary cannot start without.
func (c Config) Validate() error {
	var errs []error

	switch c.Voice.Engine {
	case "openai", "whisper":
	default:
		errs = append(errs, fmt.Errorf("unknown stt engine %q", c.Voice.Engine))
	}
	switch c.TTS.Engine {
	case "openai", "espeak", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown tts engine %q", c.TTS.Engine))
	}

	if c.Voice.MaxRetries < 0 {
		errs = append(errs, errors.New("max_retries must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"voice.timeout":      c.Voice.Timeout,
		"voice.phrase_limit": c.Voice.PhraseLimit,
		"voice.ambient":      c.Voice.Ambient,
		"net.timeout":        c.Net.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	needsKey := (c.Voice.Enabled && c.Voice.Engine == "openai") || c.TTS.Engine == "openai"
	if needsKey && c.OpenAIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY not set"))
	}

	return errors.Join(errs...)
}
