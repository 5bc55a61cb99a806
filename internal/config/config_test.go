package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Session.SourceLanguage != "auto" {
		t.Fatalf("expected auto source, got %q", cfg.Session.SourceLanguage)
	}
	if cfg.Session.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected 10MiB upload cap, got %d", cfg.Session.MaxUploadBytes)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PARLO_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("PARLO_BUS_USERNAME", "alice")
	t.Setenv("PARLO_BUS_TLS_INSECURE", "true")
	t.Setenv("PARLO_SESSION_TARGET_LANGUAGE", "fr-FR")
	t.Setenv("PARLO_SESSION_MAX_UPLOAD_BYTES", "2048")
	t.Setenv("PARLO_SESSION_VOICE_PREFERENCE", "female")
	t.Setenv("PARLO_TRANSLATOR_MODE", "mock")
	t.Setenv("PARLO_CAPTURE_MODE", "mock")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || !cfg.Bus.TLSInsecure {
		t.Fatal("expected bus credential overrides")
	}
	if cfg.Session.TargetLanguage != "fr-FR" {
		t.Fatalf("expected fr-FR, got %q", cfg.Session.TargetLanguage)
	}
	if cfg.Session.MaxUploadBytes != 2048 {
		t.Fatalf("expected 2048, got %d", cfg.Session.MaxUploadBytes)
	}
	if cfg.Session.VoicePreference != "female" {
		t.Fatalf("expected female, got %q", cfg.Session.VoicePreference)
	}
}

func TestValidateRejectsBadPreference(t *testing.T) {
	t.Setenv("PARLO_SESSION_VOICE_PREFERENCE", "robot")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for voice preference")
	}
}

func TestValidateExecModesRequireCommand(t *testing.T) {
	t.Setenv("PARLO_CAPTURE_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when capture command is missing")
	}
}

func TestValidateGeminiRequiresKey(t *testing.T) {
	t.Setenv("PARLO_TRANSLATOR_MODE", "gemini")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error when gemini api key is missing")
	}
}
