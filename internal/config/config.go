package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"speechrec/internal/stt"
)

type Config struct {
	Endpoint       string
	KeyFile        string
	Scope          string
	Recognition    stt.RecognitionConfig
	ResponseBudget int
	Timeout        time.Duration
	NotFoundDelay  time.Duration

	OpenAIKey       string
	CleanTranscript bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	defaults := stt.DefaultRecognitionConfig()

	cfg := &Config{
		Endpoint: getEnv("SPEECH_ENDPOINT", stt.DefaultEndpoint),
		KeyFile:  getEnv("GOOGLE_STT_KEY_FILE", os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")),
		Scope:    getEnv("SPEECH_SCOPE", stt.CloudPlatformScope),
		Recognition: stt.RecognitionConfig{
			Encoding:     getEnv("SPEECH_ENCODING", defaults.Encoding),
			LanguageCode: getEnv("SPEECH_LANGUAGE", defaults.LanguageCode),
		},
		OpenAIKey: os.Getenv("OPENAI_API_KEY"),
	}

	var err error
	if cfg.Recognition.SampleRateHertz, err = getEnvInt("SPEECH_SAMPLE_RATE", defaults.SampleRateHertz); err != nil {
		return nil, err
	}
	if cfg.Recognition.EnableWordTimeOffsets, err = getEnvBool("SPEECH_WORD_TIME_OFFSETS", defaults.EnableWordTimeOffsets); err != nil {
		return nil, err
	}
	if cfg.ResponseBudget, err = getEnvInt("SPEECH_RESPONSE_BUDGET", stt.DefaultResponseBudget); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = getEnvDuration("SPEECH_TIMEOUT", 90*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotFoundDelay, err = getEnvDuration("SPEECH_NOT_FOUND_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.CleanTranscript, err = getEnvBool("SPEECH_CLEAN_TRANSCRIPT", false); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that the environment parsing cannot
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Endpoint, "https://") && !strings.HasPrefix(c.Endpoint, "http://") {
		return fmt.Errorf("SPEECH_ENDPOINT must be an http(s) URL, got %q", c.Endpoint)
	}
	if c.ResponseBudget <= 0 {
		return fmt.Errorf("SPEECH_RESPONSE_BUDGET must be positive, got %d", c.ResponseBudget)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("SPEECH_TIMEOUT must be positive, got %s", c.Timeout)
	}
	if c.NotFoundDelay < 0 {
		return fmt.Errorf("SPEECH_NOT_FOUND_DELAY cannot be negative, got %s", c.NotFoundDelay)
	}
	if !strings.EqualFold(c.Recognition.Encoding, stt.EncodingAuto) {
		if err := c.Recognition.Validate(); err != nil {
			return fmt.Errorf("recognition config: %w", err)
		}
	}
	// OpenAI key is optional (only needed for transcript cleanup)
	if c.CleanTranscript && c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when SPEECH_CLEAN_TRANSCRIPT is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s: %w", key, err)
	}
	return d, nil
}
