package main

import (
	"fmt"
	"os"
	"time"
)

// config holds everything read from the environment at startup.
type config struct {
	Addr          string
	Env           string
	DBURL         string
	LLM           llmConfig
	RedisAddr     string // empty disables the advice cache
	RedisPassword string
	AdviceTTL     time.Duration
}

// llmConfig points the OpenAI-compatible client at a provider. The defaults
// target SiliconFlow, which serves both the vision and the text model.
type llmConfig struct {
	APIKey      string
	BaseURL     string
	VisionModel string
	TextModel   string
	Timeout     time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// loadConfig reads the process environment. Call godotenv.Load first so .env
// values are visible here.
func loadConfig() (*config, error) {
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	llmTimeout, err := getDurationOrDefault("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	adviceTTL, err := getDurationOrDefault("ADVICE_CACHE_TTL", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	return &config{
		Addr:  getEnvOrDefault("ADDR", "localhost:3000"),
		Env:   getEnvOrDefault("ENV", "development"),
		DBURL: dbURL,
		LLM: llmConfig{
			APIKey:      os.Getenv("LLM_API_KEY"),
			BaseURL:     getEnvOrDefault("LLM_BASE_URL", "https://api.siliconflow.cn/v1"),
			VisionModel: getEnvOrDefault("LLM_VISION_MODEL", "Pro/moonshotai/Kimi-K2.5"),
			TextModel:   getEnvOrDefault("LLM_TEXT_MODEL", "Pro/deepseek-ai/DeepSeek-V3.2"),
			Timeout:     llmTimeout,
		},
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AdviceTTL:     adviceTTL,
	}, nil
}
