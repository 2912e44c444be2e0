package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int

	// Admin credential pair guarding all mutating match routes.
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash

	// Origins allowed for CORS and websocket upgrades. "*" allows any.
	AllowedOrigins []string

	// When true, match status changes must follow the transition graph
	// (scheduled→ongoing→completed, cancel from anywhere). Off by default:
	// the operator may need to correct a status manually.
	StrictStatusTransitions bool
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

	adminUser := os.Getenv("ADMIN_USERNAME")
	if adminUser == "" {
		return nil, fmt.Errorf("ADMIN_USERNAME environment variable is not set")
	}
	adminHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if adminHash == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD_HASH environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	origins := []string{"*"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) == 0 {
			return nil, fmt.Errorf("ALLOWED_ORIGINS is set but contains no origins")
		}
	}

	strict := false
	if raw := os.Getenv("STRICT_STATUS_TRANSITIONS"); raw != "" {
		strict, err = strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STRICT_STATUS_TRANSITIONS environment variable: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:             dbURL,
		JWTSecretKey:            jwtKey,
		ServerPort:              port,
		AdminUsername:           adminUser,
		AdminPasswordHash:       adminHash,
		AllowedOrigins:          origins,
		StrictStatusTransitions: strict,
	}

	return cfg, nil
}
