package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	UploadDir     string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	JWTSecret     string        `env:"JWT_SECRET,required"`
	JWTTTLMinutes int           `env:"JWT_TTL_MINUTES" envDefault:"1440"`
	StaleWindow   time.Duration `env:"PRESENCE_STALE_WINDOW" envDefault:"5m"`
	SweepInterval time.Duration `env:"PRESENCE_SWEEP_INTERVAL" envDefault:"1m"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
