package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-assessment-service/internal/domain"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port from file, got %q", cfg.Server.Port)
	}
	settings, err := cfg.QuizSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.TimeLimit != 120*time.Minute || settings.QuestionsPerQuiz != 40 ||
		settings.Distribution != domain.DistributionProportional || settings.AllowRetake {
		t.Fatalf("unexpected defaults: %+v", settings)
	}
	if cfg.SweepInterval() != 5*time.Minute {
		t.Fatalf("expected default sweep interval, got %s", cfg.SweepInterval())
	}
}

func TestQuizSettingsFromFile(t *testing.T) {
	path := writeConfig(t, `
quiz:
  time_limit_minutes: 30
  questions_per_quiz: 10
  distribution: uniform
  allow_retake: true
sweep:
  interval: "30s"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	settings, err := cfg.QuizSettings()
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	want := domain.Settings{TimeLimit: 30 * time.Minute, QuestionsPerQuiz: 10, Distribution: domain.DistributionUniform, AllowRetake: true}
	if settings != want {
		t.Fatalf("expected %+v, got %+v", want, settings)
	}
	if cfg.SweepInterval() != 30*time.Second {
		t.Fatalf("expected 30s sweep, got %s", cfg.SweepInterval())
	}
}

func TestQuizSettingsRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Quiz.Distribution = "weighted"
	if _, err := cfg.QuizSettings(); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}

	cfg = Default()
	cfg.Quiz.QuestionsPerQuiz = 0
	if _, err := cfg.QuizSettings(); !errors.Is(err, domain.ErrInvalidSettings) {
		t.Fatalf("expected invalid settings, got %v", err)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %s", d)
	}
	if d := TTLDuration("bogus", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback on invalid input, got %s", d)
	}
	if d := TTLDuration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("expected 90s, got %s", d)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
