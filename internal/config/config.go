package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

// AppDirName is the directory created under DataRoot that holds the database file.
const AppDirName = "PNGTuber-GPT"

// DBFileName is the single-file embedded database.
const DBFileName = "pngtuber.db"

type Config struct {
	// Storage
	DataRoot string `env:"DATA_ROOT" envDefault:"data"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	// Ingestion
	IgnoreNames []string `env:"IGNORE_NAMES" envSeparator:","`

	// Cross-process lock
	DBLockName           string        `env:"DB_LOCK_NAME" envDefault:"pngtuber-brain-db"`
	DBLockDir            string        `env:"DB_LOCK_DIR"`
	DBLockTimeout        time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"2s"`
	BootstrapLockTimeout time.Duration `env:"BOOTSTRAP_LOCK_TIMEOUT" envDefault:"5s"`

	// Remote pronoun service
	PronounAPIURL     string        `env:"PRONOUN_API_URL" envDefault:"https://pronouns.alejo.io/api/users/"`
	PronounAPITimeout time.Duration `env:"PRONOUN_API_TIMEOUT" envDefault:"2s"`
	PronounAPIRPS     float64       `env:"PRONOUN_API_RPS" envDefault:"5"`

	// Telegram host
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Operations
	MetricsAddr   string        `env:"METRICS_ADDR" envDefault:":9102"`
	ChatRetention time.Duration `env:"CHAT_RETENTION" envDefault:"720h"`
	RetentionCron string        `env:"RETENTION_CRON" envDefault:"0 4 * * *"`
}

func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Load parses the environment without exiting on error.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.IgnoreNames = normalizeNames(cfg.IgnoreNames)
	if cfg.DBLockDir == "" {
		cfg.DBLockDir = os.TempDir()
	}
	return cfg, nil
}

// AppDir is <DataRoot>/PNGTuber-GPT.
func (c *Config) AppDir() string {
	return filepath.Join(c.DataRoot, AppDirName)
}

// DBPath is the full path of the database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.AppDir(), DBFileName)
}

func normalizeNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}
