package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the TubeBrief server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Queue      QueueConfig
	Transcript TranscriptConfig
	AI         AIConfig
	TTS        TTSConfig
	Storage    StorageConfig
	Notion     NotionConfig
	Quota      QuotaConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	URL            string
	SummaryQueue   string
	AudioQueue     string
	SummaryWorkers int
	AudioWorkers   int
}

type TranscriptConfig struct {
	BaseURL   string
	Languages []string
	Timeout   time.Duration
}

type AIConfig struct {
	Provider    string
	MaxAttempts int
	BackoffBase time.Duration
	OpenAI      OpenAIConfig
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

type TTSConfig struct {
	APIKey  string
	Model   string
	Voice   string
	Timeout time.Duration
}

type StorageConfig struct {
	Dir     string
	BaseURL string
}

type NotionConfig struct {
	BaseURL string
	Timeout time.Duration
}

type QuotaConfig struct {
	PrivilegedEmails []string
}

var validProviders = map[string]bool{
	"openai": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("TUBEBRIEF_PORT", 8080),
			Env:  envString("TUBEBRIEF_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			URL:            os.Getenv("AMQP_URL"),
			SummaryQueue:   envString("QUEUE_SUMMARY_NAME", "summary-generation"),
			AudioQueue:     envString("QUEUE_AUDIO_NAME", "audio-generation"),
			SummaryWorkers: envInt("QUEUE_SUMMARY_WORKERS", 2),
			AudioWorkers:   envInt("QUEUE_AUDIO_WORKERS", 2),
		},
		Transcript: TranscriptConfig{
			BaseURL:   envString("TRANSCRIPT_BASE_URL", "https://www.youtube.com"),
			Languages: envList("TRANSCRIPT_LANGUAGES", []string{"en", "zh-TW", "zh"}),
			Timeout:   envDuration("TRANSCRIPT_TIMEOUT", 30*time.Second),
		},
		AI: AIConfig{
			Provider:    os.Getenv("AI_PROVIDER"),
			MaxAttempts: envInt("AI_MAX_ATTEMPTS", 3),
			BackoffBase: envDuration("AI_BACKOFF_BASE", 2*time.Second),
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o-mini"),
				Timeout: envDuration("OPENAI_TIMEOUT", 2*time.Minute),
			},
		},
		TTS: TTSConfig{
			APIKey:  os.Getenv("TTS_API_KEY"),
			Model:   envString("TTS_MODEL", "tts-1"),
			Voice:   envString("TTS_VOICE", "alloy"),
			Timeout: envDuration("TTS_TIMEOUT", 5*time.Minute),
		},
		Storage: StorageConfig{
			Dir:     envString("STORAGE_DIR", "data/audio"),
			BaseURL: envString("STORAGE_BASE_URL", "http://localhost:8080/media"),
		},
		Notion: NotionConfig{
			BaseURL: envString("NOTION_BASE_URL", "https://api.notion.com"),
			Timeout: envDuration("NOTION_TIMEOUT", 30*time.Second),
		},
		Quota: QuotaConfig{
			PrivilegedEmails: envList("QUOTA_PRIVILEGED_EMAILS", nil),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Queue.URL == "" {
		return fmt.Errorf("AMQP_URL is required")
	}
	if c.Queue.SummaryWorkers < 1 || c.Queue.AudioWorkers < 1 {
		return fmt.Errorf("queue worker counts must be at least 1")
	}

	if !strings.HasPrefix(c.Transcript.BaseURL, "http://") && !strings.HasPrefix(c.Transcript.BaseURL, "https://") {
		return fmt.Errorf("TRANSCRIPT_BASE_URL must start with http:// or https://, got %q", c.Transcript.BaseURL)
	}

	if c.AI.Provider == "" {
		return fmt.Errorf("AI_PROVIDER is required")
	}
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of openai, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "openai" && c.AI.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is openai")
	}
	if c.AI.MaxAttempts < 1 {
		return fmt.Errorf("AI_MAX_ATTEMPTS must be at least 1")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
