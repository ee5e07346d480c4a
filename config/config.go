package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Политика начисления очков
	ScoringExactHitPoints int
	ScoringPenaltyPerRank int
	ScoringPerfectBonus   int
	DefaultPickCount      int

	// Cloudflare R2 (фото игроков)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	exactHit, err := intEnv("SCORING_EXACT_HIT_POINTS", 100)
	if err != nil {
		return nil, err
	}
	penalty, err := intEnv("SCORING_PENALTY_PER_RANK", 15)
	if err != nil {
		return nil, err
	}
	perfectBonus, err := intEnv("SCORING_PERFECT_BONUS", 0)
	if err != nil {
		return nil, err
	}
	pickCount, err := intEnv("DEFAULT_PICK_COUNT", 5)
	if err != nil {
		return nil, err
	}
	if pickCount < 1 {
		return nil, fmt.Errorf("DEFAULT_PICK_COUNT must be positive, got %d", pickCount)
	}

	cfg := &Config{
		DatabaseURL:           dbURL,
		JWTSecretKey:          jwtKey,
		ServerPort:            port,
		ScoringExactHitPoints: exactHit,
		ScoringPenaltyPerRank: penalty,
		ScoringPerfectBonus:   perfectBonus,
		DefaultPickCount:      pickCount,
		R2AccountID:           os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:         os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:          os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:       os.Getenv("R2_PUBLIC_BASE_URL"),
	}

	return cfg, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return value, nil
}
