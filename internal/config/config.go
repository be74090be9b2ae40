package config

import (
	"encoding/json"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServerAddress string    `json:"serverAddress"`
	DatabasePath  string    `json:"databasePath"`
	DatabaseURL   string    `json:"databaseUrl"`
	Security      Security  `json:"security"`
	Sync          Sync      `json:"sync"`
	Retention     Retention `json:"retention"`
}

// Security configuration
type Security struct {
	APIKeyHeader           string `json:"apiKeyHeader"`
	PairingTokenTTLMinutes int    `json:"pairingTokenTTLMinutes"`
}

// Sync configuration
type Sync struct {
	MaxDevicesPerBusiness int `json:"maxDevicesPerBusiness"`
}

// Retention configuration for change log trimming
type Retention struct {
	Enabled       bool `json:"enabled"`
	Days          int  `json:"days"`
	IntervalHours int  `json:"intervalHours"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":5000",
		DatabasePath:  "ledgersync.db",
		Security: Security{
			APIKeyHeader:           "X-API-Key",
			PairingTokenTTLMinutes: 15,
		},
		Sync: Sync{
			MaxDevicesPerBusiness: 5,
		},
		Retention: Retention{
			Enabled:       true,
			Days:          90,
			IntervalHours: 24,
		},
	}
}

// Load loads configuration from file or environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// Override from environment variables
	if addr := os.Getenv("SERVER_ADDRESS"); addr != "" {
		cfg.ServerAddress = addr
	}
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if header := os.Getenv("API_KEY_HEADER"); header != "" {
		cfg.Security.APIKeyHeader = header
	}
	if ttl := os.Getenv("PAIRING_TOKEN_TTL_MINUTES"); ttl != "" {
		if minutes, err := strconv.Atoi(ttl); err == nil && minutes > 0 {
			cfg.Security.PairingTokenTTLMinutes = minutes
		}
	}
	if max := os.Getenv("SYNC_MAX_DEVICES"); max != "" {
		if devices, err := strconv.Atoi(max); err == nil && devices > 0 {
			cfg.Sync.MaxDevicesPerBusiness = devices
		}
	}

	// Retention configuration
	if enabled := os.Getenv("RETENTION_ENABLED"); enabled != "" {
		cfg.Retention.Enabled = enabled == "true" || enabled == "1"
	}
	if days := os.Getenv("RETENTION_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil && d > 0 {
			cfg.Retention.Days = d
		}
	}
	if interval := os.Getenv("RETENTION_INTERVAL_HOURS"); interval != "" {
		if hours, err := strconv.Atoi(interval); err == nil && hours > 0 {
			cfg.Retention.IntervalHours = hours
		}
	}

	return cfg, nil
}
