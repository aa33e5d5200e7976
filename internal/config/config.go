package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the full environment surface of the service. Private keys
// are process-wide, read-only secrets shared by the request workers and
// the expiry sweeper.
type Config struct {
	ChainRPCURL     string `validate:"required,url"`
	ContractAddress string `validate:"required,eth_addr"`
	ChainID         int64  `validate:"required,gt=0"`

	CustomerAddress    string `validate:"required,eth_addr"`
	CustomerPrivateKey string `validate:"required"`
	ProviderAddress    string `validate:"required,eth_addr"`
	DelivererAddress   string `validate:"required,eth_addr"`
	AdminAddress       string `validate:"required,eth_addr"`
	AdminPrivateKey    string `validate:"required"`

	SweepInterval time.Duration `validate:"required,gt=0"`

	// Simulated sensor ranges.
	MinTemp     float64 `validate:"ltefield=MaxTemp"`
	MaxTemp     float64
	MinHumidity float64 `validate:"ltefield=MaxHumidity"`
	MaxHumidity float64

	Port        int    `validate:"required,gt=0"`
	DBPath      string `validate:"required"`
	PostgresURL string
}

// Load reads configuration from the environment and fails fast on any
// missing or malformed value.
func Load() (*Config, error) {
	cfg := &Config{
		ChainRPCURL:        os.Getenv("CHAIN_RPC_URL"),
		ContractAddress:    os.Getenv("CONTRACT_ADDRESS"),
		CustomerAddress:    os.Getenv("CUSTOMER_ADDRESS"),
		CustomerPrivateKey: os.Getenv("CUSTOMER_PRIVATE_KEY"),
		ProviderAddress:    os.Getenv("PROVIDER_ADDRESS"),
		DelivererAddress:   os.Getenv("DELIVERER_ADDRESS"),
		AdminAddress:       os.Getenv("ADMIN_ADDRESS"),
		AdminPrivateKey:    os.Getenv("ADMIN_PRIVATE_KEY"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		DBPath:             getEnv("DB_PATH", "smartdelivery.db"),
	}

	var err error
	if cfg.ChainID, err = getEnvInt64("CHAIN_ID", 1337); err != nil {
		return nil, err
	}

	port, err := getEnvInt64("PORT", 3000)
	if err != nil {
		return nil, err
	}
	cfg.Port = int(port)

	sweepMinutes, err := getEnvInt64("SWEEP_INTERVAL_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.SweepInterval = time.Duration(sweepMinutes) * time.Minute

	if cfg.MinTemp, err = getEnvFloat("MIN_TEMP", 2); err != nil {
		return nil, err
	}
	if cfg.MaxTemp, err = getEnvFloat("MAX_TEMP", 8); err != nil {
		return nil, err
	}
	if cfg.MinHumidity, err = getEnvFloat("MIN_HUMIDITY", 60); err != nil {
		return nil, err
	}
	if cfg.MaxHumidity, err = getEnvFloat("MAX_HUMIDITY", 80); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
