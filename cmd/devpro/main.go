package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"devpro/internal/app"
	"devpro/internal/assistant"
	"devpro/internal/audio"
	"devpro/internal/browser"
	"devpro/internal/bus"
	"devpro/internal/config"
	"devpro/internal/ipc"
	"devpro/internal/listen"
	"devpro/internal/market"
	"devpro/internal/notify"
	"devpro/internal/proxy"
	"devpro/internal/transcript"
	"devpro/internal/tts"
	"devpro/internal/weather"
	"devpro/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

func main() {
	configFile := cli.StringP("config", "c", "", "YAML config file")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address")
	busURL := cli.StringP("url", "u", "", "Url of transcript hub")
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath(), "Control socket path")
	transcriptPath := cli.StringP("transcript", "t", "", "Conversation log path")
	sttEngine := cli.String("stt", "", "Speech recognition engine (openai|whisper)")
	ttsEngine := cli.String("tts", "", "Speech synthesis engine (openai|espeak|none)")
	noVoice := cli.Bool("no-voice", false, "Text only, no microphone")
	skipSelfTest := cli.Bool("skip-selftest", false, "Skip the startup microphone test")
	placeholder := cli.Bool("placeholder", false, "Log a placeholder instead of assistant responses")
	cli.Parse()

	cfg, err := config.Load(*configFile, *envFile)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	changed := cli.CommandLine.Changed
	if changed("log") {
		cfg.LogLevel = *logLevel
	}
	if changed("proxy") {
		cfg.Net.Proxy = *proxyAddr
	}
	if changed("url") {
		cfg.Net.BusURL = *busURL
	}
	if changed("socket") {
		cfg.Net.Socket = *socket
	}
	if changed("transcript") {
		cfg.Transcript.Path = *transcriptPath
	}
	if changed("stt") {
		cfg.Voice.Engine = *sttEngine
	}
	if changed("tts") {
		cfg.TTS.Engine = *ttsEngine
	}
	if *noVoice {
		cfg.Voice.Enabled = false
	}
	if *skipSelfTest {
		cfg.Voice.SkipSelfTest = true
	}
	if *placeholder {
		cfg.Transcript.Placeholder = true
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[cfg.LogLevel],
	})))

	log.Info("Booting up")

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	httpClient, err := proxy.NewHTTPClient(cfg.Net.Proxy, cfg.Net.Timeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Net.Proxy, "err", err)
		os.Exit(1)
	}

	log.Debug("Loaded proxy", "proxy", cfg.Net.Proxy)

	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIKey),
		option.WithHTTPClient(httpClient),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := transcript.NewFeed(transcript.Console{W: os.Stdout})

	player := tts.NewBeepPlayer()
	speaker, err := tts.NewSpeaker(tts.Config{
		Synth:     synthesizer(cfg, client),
		Player:    player,
		Ducker:    ducker(cfg),
		CacheDir:  cfg.TTS.CacheDir,
		CacheSize: cfg.TTS.CacheSize,
		Echo:      feed.Assistant,
		Fallback:  os.Stdout,
	})
	if err != nil {
		log.Error("Failed to init speech output", "err", err)
		os.Exit(1)
	}
	defer speaker.Close()

	log.Debug("Loaded speaker", "engine", cfg.TTS.Engine)

	convLog, err := transcript.OpenLog(cfg.Transcript.Path)
	if err != nil {
		log.Error("Failed to open transcript", "path", cfg.Transcript.Path, "err", err)
		os.Exit(1)
	}
	defer convLog.Close()

	var opener assistant.Browser = browser.Print{W: os.Stdout}
	if cfg.Net.Browser {
		opener = browser.New()
	}

	session := assistant.NewSession()
	feed.Attach(session)

	devpro := assistant.New(assistant.Deps{
		Speaker:        speaker,
		Browser:        opener,
		Quotes:         market.NewClient(httpClient, cfg.Net.QuotesURL),
		Weather:        weather.NewReporter(httpClient, cfg.Net.WeatherURL),
		Log:            convLog,
		LogPlaceholder: cfg.Transcript.Placeholder,
	}, session)

	appCfg := app.Config{
		Cue:        notify.New(player, cfg.Voice.Cue, cfg.Voice.Notifications),
		MaxRetries: cfg.Voice.MaxRetries,
		// ten minutes of audio
		MaxFileSamples: 10 * 60 * audio.SampleRate,
	}

	if cfg.Voice.Enabled {
		rec := audio.NewRecorder(audio.Options{
			EnergyThreshold: cfg.Voice.EnergyThreshold,
			PauseThreshold:  cfg.Voice.PauseThreshold,
		})
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()

		log.Debug("Loaded recorder")

		tr, closeSTT, err := recognizer(cfg, client)
		if err != nil {
			log.Error("Failed to init speech recognition", "engine", cfg.Voice.Engine, "err", err)
			os.Exit(1)
		}
		defer closeSTT()

		log.Debug("Loaded transcriber", "engine", cfg.Voice.Engine)

		adapter := listen.New(rec, tr, speaker.Speak, listen.Options{
			Ambient:     cfg.Voice.Ambient,
			Timeout:     cfg.Voice.Timeout,
			PhraseLimit: cfg.Voice.PhraseLimit,
		})

		if !cfg.Voice.SkipSelfTest {
			if err := adapter.SelfTest(ctx); err != nil {
				log.Error("Microphone not working or not properly configured", "err", err)
				os.Exit(1)
			}
		}

		appCfg.Voice = adapter
		appCfg.STT = tr
	}

	front := app.New(devpro, feed, appCfg)

	srv, err := ipc.Listen(cfg.Net.Socket, front.Control(ctx))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	if cfg.Net.BusURL != "" {
		hub, err := bus.Dial(cfg.Net.BusURL, "devpro")
		if err != nil {
			log.Warn("Transcript hub unreachable, continuing without it", "url", cfg.Net.BusURL, "err", err)
		} else {
			defer hub.Close()
			feed.Attach(hub)
			go func() {
				if err := hub.Utterances(func(text string) { front.HandleText(ctx, text) }); err != nil {
					log.Warn("Transcript hub disconnected", "err", err)
				}
			}()
		}
	}

	log.Info("Boot up - successful")

	if err := front.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Console stopped", "err", err)
	}

	log.Info("Shutting down")
	stop()
	front.Wait()
	if !devpro.Wait(3 * time.Second) {
		log.Warn("Abandoning unfinished tasks")
	}
}

func synthesizer(cfg config.Config, client openai.Client) tts.Synthesizer {
	switch cfg.TTS.Engine {
	case "openai":
		return tts.NewOpenAISynth(client, cfg.TTS.Model, cfg.TTS.Voice)
	case "espeak":
		return tts.NewEspeak("", cfg.Voice.Language, 0)
	default:
		return nil
	}
}

func ducker(cfg config.Config) tts.Ducker {
	if !cfg.TTS.Duck {
		return nil
	}
	return audio.NewDucker([]string{"devpro"}, 0.3, 5, 200*time.Millisecond)
}

func recognizer(cfg config.Config, client openai.Client) (transcriber, func(), error) {
	if cfg.Voice.Engine == "whisper" {
		w, err := stt.NewWhisper(cfg.Voice.WhisperModel, stt.WhisperOptions{
			Language: cfg.Voice.Language,
		})
		if err != nil {
			return nil, nil, err
		}
		return w, func() { w.Close() }, nil
	}
	return stt.NewOpenAI(client, "", cfg.Voice.Language), func() {}, nil
}
