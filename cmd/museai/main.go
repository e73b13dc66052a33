// Command museai is a terminal front-end for one museum creation session.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mhpenta/museai"
	"github.com/mhpenta/museai/audio"
	"github.com/mhpenta/museai/catalog"
	"github.com/mhpenta/museai/config"
	"github.com/mhpenta/museai/provider/gemini"
	"github.com/mhpenta/museai/telemetry"
	"github.com/mhpenta/museai/workflow"
	"go.opentelemetry.io/otel"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to a YAML config file")
	museumID := flag.String("museum", "louvre", "museum id")
	themeID := flag.String("theme", "renaissance", "theme id")
	mute := flag.Bool("mute", false, "synthesize narration without playing it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := newLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	if err := run(cfg, *museumID, *themeID, *mute, logger); err != nil {
		logger.Error("museai exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Config, museumID, themeID string, mute bool, logger *slog.Logger) error {
	if cfg.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	otel.SetMeterProvider(providers.MeterProvider)
	otel.SetTracerProvider(providers.TracerProvider)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	if cfg.Telemetry.PrometheusBind != "" && providers.Handler != nil {
		go func() {
			if err := telemetry.Serve(ctx, cfg.Telemetry.PrometheusBind, providers.Handler, logger); err != nil {
				logger.Warn("metrics listener stopped", slog.String("error", err.Error()))
			}
		}()
	}

	museums, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	museum, theme, err := museums.Lookup(museumID, themeID)
	if err != nil {
		return err
	}

	gen, err := gemini.New(ctx, &museai.ProviderConfig{
		Provider: museai.ProviderGeminiAPI,
		APIKey:   cfg.Gemini.APIKey,
		BaseURL:  cfg.Gemini.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini provider: %w", err)
	}
	if settings := safetySettings(cfg.Gemini); len(settings) > 0 {
		gen.SetSafetySettings(settings)
	}

	genConfig := museai.DefaultConfig()
	genConfig.Voice = cfg.Gemini.Voice
	genConfig.WaitOnRateLimit = cfg.Gemini.WaitOnRateLimit
	genConfig.MaxWaitDuration = cfg.Gemini.MaxWait()

	storage := museai.DirStorage{Root: cfg.Storage.Dir}
	manager := museai.NewManager(gen,
		museai.WithLogger(logger),
		museai.WithStorage(storage),
		museai.WithGenerateConfig(genConfig),
		museai.WithRequestTimeout(cfg.Gemini.RequestTimeout()),
	)
	defer manager.Close()

	route(manager, museai.OpRefinePrompt, cfg.Gemini.TextModel, gemini.FlashInfo)
	route(manager, museai.OpGenerateImage, cfg.Gemini.ImageModel, gemini.FlashImageInfo)
	route(manager, museai.OpSynthesizeSpeech, cfg.Gemini.SpeechModel, gemini.FlashTTSInfo)

	var player workflow.Player
	if !mute {
		player = audio.Shared()
	}

	sh := newShell(os.Stdout, manager.Storage())
	ctrl := workflow.New(manager, player, museum, theme,
		workflow.WithLogger(logger),
		workflow.WithStatusFunc(sh.announce),
	)
	defer func() {
		ctrl.Close()
		ctrl.Wait()
	}()
	sh.ctrl = ctrl

	logger.Info("session started",
		slog.String("museum", museum.Name),
		slog.String("theme", theme.Name),
		slog.String("session_id", ctrl.Snapshot().ID.String()),
	)
	return sh.run(ctx, os.Stdin)
}

// route points op at the named model, registering it with the capabilities
// of base when the provider does not list it.
func route(m *museai.Manager, op museai.Operation, name string, base museai.ModelInfo) {
	model := museai.Model(name)
	if _, ok := m.GetModelInfo(model); !ok {
		info := base
		info.Name = name
		info.APIModelName = name
		m.RegisterModel(model, museai.ModelMapping{
			Provider:        info.Provider,
			ActualModelName: name,
		}, &info)
	}
	m.SetRoute(op, model)
}

func safetySettings(cfg config.GeminiConfig) []museai.SafetySetting {
	settings := make([]museai.SafetySetting, 0, len(cfg.SafetySettings))
	for _, s := range cfg.SafetySettings {
		settings = append(settings, museai.SafetySetting{
			Category:  museai.SafetyCategory(s.Category),
			Threshold: museai.SafetyThreshold(s.Threshold),
		})
	}
	return settings
}

func newLogger(cfg config.TelemetryConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
