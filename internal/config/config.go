package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/DoyleJ11/planarally-backend/internal/assets"
)

var ErrSSLConfig = errors.New("ssl enabled but certificate paths are missing")

type Config struct {
	Socket          string
	Host            string
	Port            string
	SSL             bool
	SSLFullchain    string
	SSLPrivkey      string
	AssetDir        string
	ShutdownTimeout time.Duration
	LogLevel        string
	Env             string
}

// Load reads an optional .env file (files) and then the environment.
func Load(files ...string) (Config, error) {
	// a missing .env is normal in production
	_ = godotenv.Load(files...)

	cfg := Config{
		Socket:       os.Getenv("PA_SOCKET"),
		Host:         getEnv("PA_HOST", "0.0.0.0"),
		Port:         getEnv("PORT", "8000"),
		SSLFullchain: os.Getenv("PA_SSL_FULLCHAIN"),
		SSLPrivkey:   os.Getenv("PA_SSL_PRIVKEY"),
		AssetDir:     getEnv("PA_ASSET_DIR", assets.DefaultRoot),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Env:          getEnv("APP_ENV", "production"),
	}

	var err error
	if cfg.SSL, err = getEnvBool("PA_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("PA_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SSL && cfg.Socket == "" && (cfg.SSLFullchain == "" || cfg.SSLPrivkey == "") {
		return Config{}, ErrSSLConfig
	}
	return cfg, nil
}

// Addr is the TCP listen address; meaningless when Socket is set.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
