// Package config loads MuseAI settings from defaults, an optional YAML file
// and MUSEAI_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type GeminiConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	TextModel        string `yaml:"text_model"`
	ImageModel       string `yaml:"image_model"`
	SpeechModel      string `yaml:"speech_model"`
	Voice            string `yaml:"voice"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	WaitOnRateLimit  bool   `yaml:"wait_on_rate_limit"`
	MaxWaitMS        int    `yaml:"max_wait_ms"`
	// SafetySettings are sent with every text and image request.
	SafetySettings []SafetySetting `yaml:"safety_settings"`
}

// SafetySetting pairs a Gemini harm category with its blocking threshold,
// e.g. HARM_CATEGORY_HARASSMENT and BLOCK_ONLY_HIGH.
type SafetySetting struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // text, json
	// PrometheusBind is the scrape listener address; empty disables it.
	PrometheusBind string `yaml:"prometheus_bind"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	// TraceStdout prints spans to stdout when no OTLP endpoint is set.
	TraceStdout bool `yaml:"trace_stdout"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type CatalogConfig struct {
	// Path to a museums YAML file; empty uses the built-in dataset.
	Path string `yaml:"path"`
}

type Config struct {
	Gemini    GeminiConfig    `yaml:"gemini"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
	Catalog   CatalogConfig   `yaml:"catalog"`
}

func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			TextModel:        "gemini-2.5-flash",
			ImageModel:       "gemini-2.5-flash-image",
			SpeechModel:      "gemini-2.5-flash-preview-tts",
			Voice:            "Kore",
			RequestTimeoutMS: 90000,
			MaxWaitMS:        30000,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			LogFormat:    "text",
			OTLPInsecure: true,
		},
		Storage: StorageConfig{
			Dir: "./artwork",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// RequestTimeout is the per-call deadline for remote requests.
func (g GeminiConfig) RequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeoutMS) * time.Millisecond
}

// MaxWait bounds how long a rate-limited call may wait for capacity.
func (g GeminiConfig) MaxWait() time.Duration {
	return time.Duration(g.MaxWaitMS) * time.Millisecond
}

// Level parses LogLevel.
func (t TelemetryConfig) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(t.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func applyEnvOverrides(cfg *Config) {
	// the SDK's own variable name is honoured first so existing setups work unchanged
	overrideString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	overrideString(&cfg.Gemini.APIKey, "MUSEAI_GEMINI_API_KEY")
	overrideString(&cfg.Gemini.BaseURL, "MUSEAI_GEMINI_BASE_URL")
	overrideString(&cfg.Gemini.TextModel, "MUSEAI_GEMINI_TEXT_MODEL")
	overrideString(&cfg.Gemini.ImageModel, "MUSEAI_GEMINI_IMAGE_MODEL")
	overrideString(&cfg.Gemini.SpeechModel, "MUSEAI_GEMINI_SPEECH_MODEL")
	overrideString(&cfg.Gemini.Voice, "MUSEAI_GEMINI_VOICE")
	overrideInt(&cfg.Gemini.RequestTimeoutMS, "MUSEAI_GEMINI_REQUEST_TIMEOUT_MS")
	overrideBool(&cfg.Gemini.WaitOnRateLimit, "MUSEAI_GEMINI_WAIT_ON_RATE_LIMIT")
	overrideInt(&cfg.Gemini.MaxWaitMS, "MUSEAI_GEMINI_MAX_WAIT_MS")
	overrideSafety(&cfg.Gemini.SafetySettings, "MUSEAI_GEMINI_SAFETY_SETTINGS")
	overrideString(&cfg.Telemetry.LogLevel, "MUSEAI_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.LogFormat, "MUSEAI_TELEMETRY_LOG_FORMAT")
	overrideString(&cfg.Telemetry.PrometheusBind, "MUSEAI_TELEMETRY_PROMETHEUS_BIND")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "MUSEAI_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "MUSEAI_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "MUSEAI_TELEMETRY_TRACE_STDOUT")
	overrideString(&cfg.Storage.Dir, "MUSEAI_STORAGE_DIR")
	overrideString(&cfg.Catalog.Path, "MUSEAI_CATALOG_PATH")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

// overrideSafety reads CATEGORY=THRESHOLD pairs separated by commas.
func overrideSafety(target *[]SafetySetting, envKey string) {
	value, ok := os.LookupEnv(envKey)
	if !ok || strings.TrimSpace(value) == "" {
		return
	}
	var settings []SafetySetting
	for _, pair := range strings.Split(value, ",") {
		category, threshold, _ := strings.Cut(strings.TrimSpace(pair), "=")
		settings = append(settings, SafetySetting{
			Category:  strings.TrimSpace(category),
			Threshold: strings.TrimSpace(threshold),
		})
	}
	*target = settings
}

var safetyThresholds = map[string]bool{
	"BLOCK_NONE":             true,
	"BLOCK_LOW_AND_ABOVE":    true,
	"BLOCK_MEDIUM_AND_ABOVE": true,
	"BLOCK_ONLY_HIGH":        true,
	"OFF":                    true,
}

func validate(cfg Config) error {
	if cfg.Gemini.TextModel == "" || cfg.Gemini.ImageModel == "" || cfg.Gemini.SpeechModel == "" {
		return errors.New("gemini text_model, image_model and speech_model must not be empty")
	}
	if cfg.Gemini.Voice == "" {
		return errors.New("gemini.voice must not be empty")
	}
	if cfg.Gemini.RequestTimeoutMS <= 0 {
		return errors.New("gemini.request_timeout_ms must be positive")
	}
	if cfg.Gemini.WaitOnRateLimit && cfg.Gemini.MaxWaitMS <= 0 {
		return errors.New("gemini.max_wait_ms must be positive when wait_on_rate_limit is enabled")
	}
	for _, s := range cfg.Gemini.SafetySettings {
		if !strings.HasPrefix(s.Category, "HARM_CATEGORY_") {
			return fmt.Errorf("gemini.safety_settings: unknown category %q", s.Category)
		}
		if !safetyThresholds[s.Threshold] {
			return fmt.Errorf("gemini.safety_settings: unknown threshold %q for %s", s.Threshold, s.Category)
		}
	}
	switch strings.ToLower(cfg.Telemetry.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("telemetry.log_level must be one of debug|info|warn|error")
	}
	switch cfg.Telemetry.LogFormat {
	case "text", "json":
	default:
		return errors.New("telemetry.log_format must be one of text|json")
	}
	if cfg.Storage.Dir == "" {
		return errors.New("storage.dir must not be empty")
	}
	return nil
}
