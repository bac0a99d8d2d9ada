// Package config provides environment configuration for the API server.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `env:"PORT" envDefault:"8080"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`

	// Completion gateway
	GatewayBaseURL    string        `env:"GATEWAY_BASE_URL,required"`
	GatewayAPIKey     string        `env:"GATEWAY_API_KEY"`
	GatewayTimeout    time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"120s"`
	GatewayKeepAlive  int           `env:"GATEWAY_KEEP_ALIVE" envDefault:"300"`
	GatewayChatPath   string        `env:"GATEWAY_CHAT_PATH" envDefault:"/v1/chat/completions"`
	GatewayModelsPath string        `env:"GATEWAY_MODELS_PATH" envDefault:"/api/tags"`

	// Persistence store
	StoreDriver  string `env:"STORE_DRIVER" envDefault:"rpc"`
	RPCBaseURL   string `env:"RPC_BASE_URL"`
	RPCAPIKey    string `env:"RPC_API_KEY"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RunMigration bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Session window
	WindowLimit int `env:"WINDOW_LIMIT" envDefault:"64"`

	// NATS event fan-out (optional, dashboards)
	NATSURL   string `env:"NATS_URL"`
	NATSToken string `env:"NATS_TOKEN"`

	// JWT settings
	JWTSecret string `env:"JWT_SECRET" envDefault:"development-secret-change-in-production"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Tracing
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}
	return cfg, nil
}
