package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-assessment-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Catalog struct {
		TTL string `yaml:"ttl"`
	} `yaml:"catalog"`
	Quiz  QuizConfig `yaml:"quiz"`
	Sweep struct {
		Interval string `yaml:"interval"`
		LockTTL  string `yaml:"lock_ttl"`
	} `yaml:"sweep"`
}

// QuizConfig holds the quiz rules. Unset fields take the defaults applied by Load.
type QuizConfig struct {
	TimeLimitMinutes int    `yaml:"time_limit_minutes"`
	QuestionsPerQuiz int    `yaml:"questions_per_quiz"`
	Distribution     string `yaml:"distribution"`
	AllowRetake      bool   `yaml:"allow_retake"`
}

const (
	DefaultTimeLimitMinutes = 120
	DefaultQuestionsPerQuiz = 40
	DefaultSweepInterval    = 5 * time.Minute
)

// Default returns the configuration used when no file sets a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Quiz = QuizConfig{
		TimeLimitMinutes: DefaultTimeLimitMinutes,
		QuestionsPerQuiz: DefaultQuestionsPerQuiz,
		Distribution:     string(domain.DistributionProportional),
	}
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// QuizSettings converts the quiz block into validated domain settings.
func (c Config) QuizSettings() (domain.Settings, error) {
	s := domain.Settings{
		TimeLimit:        time.Duration(c.Quiz.TimeLimitMinutes) * time.Minute,
		QuestionsPerQuiz: c.Quiz.QuestionsPerQuiz,
		Distribution:     domain.Distribution(c.Quiz.Distribution),
		AllowRetake:      c.Quiz.AllowRetake,
	}
	if err := s.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("quiz config %+v: %w", c.Quiz, err)
	}
	return s, nil
}

// SweepInterval is the expiry sweep period.
func (c Config) SweepInterval() time.Duration {
	return TTLDuration(c.Sweep.Interval, DefaultSweepInterval)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
