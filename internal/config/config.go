package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	OverflowDropOldest = "drop_oldest"
	OverflowDisconnect = "disconnect"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	TokenTTL    time.Duration
	LogLevel    string

	DefaultTargetLanguage string
	TranslationHighTier   int
	TranslationNormalTier int
	TranslationWorkers    int
	TranslationRate       float64
	TranslatorURLs        []string
	TranslationCacheKey   string
	TranslationCacheTTL   time.Duration

	SendQueueSize  int
	OverflowPolicy string
}

// Load подтягивает .env.local / .env и читает окружение
func Load(log *zap.Logger) Config {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil && log != nil {
			log.Info(".env not found, using environment variables")
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из произвольного источника переменных
func FromEnv(getenv func(string) string) Config {
	c := Config{
		Port:        str(getenv, "PORT", "8080"),
		DatabaseURL: getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL"),
		JWTSecret:   getenv("JWT_SECRET"),
		TokenTTL:    dur(getenv, "TOKEN_TTL", 24*time.Hour),
		LogLevel:    str(getenv, "LOG_LEVEL", "info"),

		DefaultTargetLanguage: str(getenv, "DEFAULT_TARGET_LANGUAGE", "ja"),
		TranslationHighTier:   num(getenv, "TRANSLATION_HIGH_TIER", 5),
		TranslationNormalTier: num(getenv, "TRANSLATION_NORMAL_TIER", 10),
		TranslationWorkers:    num(getenv, "TRANSLATION_WORKERS", 2),
		TranslationRate:       float(getenv, "TRANSLATION_RATE_PER_SEC", 5),
		TranslatorURLs:        list(getenv("TRANSLATOR_URLS")),
		TranslationCacheKey:   str(getenv, "TRANSLATION_CACHE_KEY", "translation:cache"),
		TranslationCacheTTL:   dur(getenv, "TRANSLATION_CACHE_TTL", 24*time.Hour),

		SendQueueSize:  num(getenv, "SEND_QUEUE_SIZE", 256),
		OverflowPolicy: str(getenv, "SEND_OVERFLOW_POLICY", OverflowDropOldest),
	}

	if c.OverflowPolicy != OverflowDisconnect {
		c.OverflowPolicy = OverflowDropOldest
	}
	return c
}

func str(getenv func(string) string, key, def string) string {
	if v := strings.TrimSpace(getenv(key)); v != "" {
		return v
	}
	return def
}

func num(getenv func(string) string, key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(getenv(key)))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func float(getenv func(string) string, key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(getenv(key)), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func dur(getenv func(string) string, key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// list разбирает значения через запятую, пустые пропускаются
func list(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
