package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

// SessionConfig holds the orchestrator policy knobs.
type SessionConfig struct {
	SourceLanguage      string `yaml:"source_language"`
	TargetLanguage      string `yaml:"target_language"`
	DefaultLanguage     string `yaml:"default_language"`
	VoicePreference     string `yaml:"voice_preference"`
	MaxUploadBytes      int64  `yaml:"max_upload_bytes"`
	ProcessingTimeoutMS int    `yaml:"processing_timeout_ms"`
	SpeakingTimeoutMS   int    `yaml:"speaking_timeout_ms"`
}

type CaptureConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Mode       string `yaml:"mode"` // mock, exec
	Command    string `yaml:"command"`
	SampleRate int    `yaml:"sample_rate"`
	Channels   int    `yaml:"channels"`
}

type PlaybackConfig struct {
	Enabled bool   `yaml:"enabled"`
	Mode    string `yaml:"mode"` // mock, exec
	Command string `yaml:"command"`
}

type TranslatorConfig struct {
	Mode      string `yaml:"mode"` // mock, gemini, exec
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Command   string `yaml:"command"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	UILanguage  string           `yaml:"ui_language"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Session     SessionConfig    `yaml:"session"`
	Capture     CaptureConfig    `yaml:"capture"`
	Playback    PlaybackConfig   `yaml:"playback"`
	Translator  TranslatorConfig `yaml:"translator"`
}

func Default() Config {
	return Config{
		RuntimeName: "parlo-runtime",
		Environment: "development",
		UILanguage:  "en",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Session: SessionConfig{
			SourceLanguage:      "auto",
			TargetLanguage:      "es-ES",
			DefaultLanguage:     "en-US",
			VoicePreference:     "auto",
			MaxUploadBytes:      10 << 20,
			ProcessingTimeoutMS: 45000,
			SpeakingTimeoutMS:   45000,
		},
		Capture: CaptureConfig{
			Enabled:    true,
			Mode:       "mock",
			SampleRate: 16000,
			Channels:   1,
		},
		Playback: PlaybackConfig{
			Enabled: true,
			Mode:    "mock",
		},
		Translator: TranslatorConfig{
			Mode:      "mock",
			Endpoint:  "https://generativelanguage.googleapis.com",
			Model:     "gemini-2.5-flash",
			TimeoutMS: 30000,
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

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "PARLO_RUNTIME_NAME")
	overrideString(&cfg.Environment, "PARLO_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.UILanguage, "PARLO_UI_LANGUAGE")
	overrideString(&cfg.HTTP.Bind, "PARLO_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "PARLO_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "PARLO_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "PARLO_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "PARLO_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "PARLO_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "PARLO_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "PARLO_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "PARLO_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "PARLO_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "PARLO_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "PARLO_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "PARLO_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "PARLO_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Session.SourceLanguage, "PARLO_SESSION_SOURCE_LANGUAGE")
	overrideString(&cfg.Session.TargetLanguage, "PARLO_SESSION_TARGET_LANGUAGE")
	overrideString(&cfg.Session.DefaultLanguage, "PARLO_SESSION_DEFAULT_LANGUAGE")
	overrideString(&cfg.Session.VoicePreference, "PARLO_SESSION_VOICE_PREFERENCE")
	overrideInt64(&cfg.Session.MaxUploadBytes, "PARLO_SESSION_MAX_UPLOAD_BYTES")
	overrideInt(&cfg.Session.ProcessingTimeoutMS, "PARLO_SESSION_PROCESSING_TIMEOUT_MS")
	overrideInt(&cfg.Session.SpeakingTimeoutMS, "PARLO_SESSION_SPEAKING_TIMEOUT_MS")
	overrideBool(&cfg.Capture.Enabled, "PARLO_CAPTURE_ENABLED")
	overrideString(&cfg.Capture.Mode, "PARLO_CAPTURE_MODE")
	overrideString(&cfg.Capture.Command, "PARLO_CAPTURE_COMMAND")
	overrideInt(&cfg.Capture.SampleRate, "PARLO_CAPTURE_SAMPLE_RATE")
	overrideInt(&cfg.Capture.Channels, "PARLO_CAPTURE_CHANNELS")
	overrideBool(&cfg.Playback.Enabled, "PARLO_PLAYBACK_ENABLED")
	overrideString(&cfg.Playback.Mode, "PARLO_PLAYBACK_MODE")
	overrideString(&cfg.Playback.Command, "PARLO_PLAYBACK_COMMAND")
	overrideString(&cfg.Translator.Mode, "PARLO_TRANSLATOR_MODE")
	overrideString(&cfg.Translator.Endpoint, "PARLO_TRANSLATOR_ENDPOINT")
	overrideString(&cfg.Translator.APIKey, "PARLO_TRANSLATOR_API_KEY")
	overrideString(&cfg.Translator.Model, "PARLO_TRANSLATOR_MODEL")
	overrideString(&cfg.Translator.Command, "PARLO_TRANSLATOR_COMMAND")
	overrideInt(&cfg.Translator.TimeoutMS, "PARLO_TRANSLATOR_TIMEOUT_MS")
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

func overrideInt64(target *int64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
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

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	if cfg.Session.TargetLanguage == "" {
		return errors.New("session.target_language must not be empty")
	}
	if cfg.Session.DefaultLanguage == "" || cfg.Session.DefaultLanguage == "auto" {
		return errors.New("session.default_language must be a concrete language code")
	}
	switch cfg.Session.VoicePreference {
	case "auto", "male", "female":
	default:
		return errors.New("session.voice_preference must be one of auto|male|female")
	}
	if cfg.Session.MaxUploadBytes <= 0 {
		return errors.New("session.max_upload_bytes must be positive")
	}
	if cfg.Session.ProcessingTimeoutMS < 0 || cfg.Session.SpeakingTimeoutMS < 0 {
		return errors.New("session timeouts must be >= 0")
	}
	if cfg.Capture.Enabled {
		switch cfg.Capture.Mode {
		case "mock", "exec":
		default:
			return errors.New("capture.mode must be one of mock|exec")
		}
		if cfg.Capture.Mode == "exec" && cfg.Capture.Command == "" {
			return errors.New("capture.command must be set when mode=exec")
		}
		if cfg.Capture.SampleRate <= 0 {
			return errors.New("capture.sample_rate must be positive")
		}
		if cfg.Capture.Channels <= 0 {
			return errors.New("capture.channels must be positive")
		}
	}
	if cfg.Playback.Enabled {
		switch cfg.Playback.Mode {
		case "mock", "exec":
		default:
			return errors.New("playback.mode must be one of mock|exec")
		}
		if cfg.Playback.Mode == "exec" && cfg.Playback.Command == "" {
			return errors.New("playback.command must be set when mode=exec")
		}
	}
	switch cfg.Translator.Mode {
	case "mock", "gemini", "exec":
	default:
		return errors.New("translator.mode must be one of mock|gemini|exec")
	}
	if cfg.Translator.Mode == "gemini" {
		if cfg.Translator.Endpoint == "" {
			return errors.New("translator.endpoint must be set when mode=gemini")
		}
		if cfg.Translator.APIKey == "" {
			return errors.New("translator.api_key must be set when mode=gemini")
		}
	}
	if cfg.Translator.Mode == "exec" && cfg.Translator.Command == "" {
		return errors.New("translator.command must be set when mode=exec")
	}
	return nil
}
