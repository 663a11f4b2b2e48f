package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort          string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL       string        `env:"DATABASE_URL" envDefault:"sqlite://rafpad.db"`
	LLMAPIKey         string        `env:"LLM_API_KEY"`
	LLMBaseURL        string        `env:"LLM_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"deepseek-chat"`
	LLMTimeout        time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMTemperature    float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	LLMMaxTokens      int64         `env:"LLM_MAX_TOKENS" envDefault:"512"`
	LLMTopP           float64       `env:"LLM_TOP_P" envDefault:"0.9"`
	ChatMaxHistory    int           `env:"CHAT_MAX_HISTORY" envDefault:"10"`
	ChatContextSize   int           `env:"CHAT_CONTEXT_MESSAGES" envDefault:"5"`
	DefaultProjectTag string        `env:"DEFAULT_PROJECT_TAG" envDefault:"#inbox"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	ChatRateLimit     int           `env:"CHAT_RATE_LIMIT" envDefault:"50"`
	ChatRateWindow    time.Duration `env:"CHAT_RATE_WINDOW" envDefault:"1m"`
	WriteRateLimit    int           `env:"WRITE_RATE_LIMIT" envDefault:"100"`
	WriteRateWindow   time.Duration `env:"WRITE_RATE_WINDOW" envDefault:"24h"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Driver deduce el motor de base de datos a partir del esquema del DSN.
func (c *Config) Driver() string {
	dsn := strings.ToLower(strings.TrimSpace(c.DatabaseURL))
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// SQLitePath devuelve la ruta del archivo SQLite sin el prefijo sqlite://.
func (c *Config) SQLitePath() string {
	dsn := strings.TrimSpace(c.DatabaseURL)
	for _, prefix := range []string{"sqlite:///", "sqlite://", "file:"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
