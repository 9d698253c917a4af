package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envOverrides maps the environment onto the config. Unset variables leave
// the corresponding field untouched.
type envOverrides struct {
	DBURL   string `env:"DATABASE_URL"`
	DBHost  string `env:"DB_HOST"`
	DBPort  int    `env:"DB_PORT"`
	DBName  string `env:"DB_NAME"`
	DBUser  string `env:"DB_USER"`
	DBPass  string `env:"DB_PASS"`
	APIKey  string `env:"TWELVE_DATA_SECRET_API_KEY"`
	WSURL   string `env:"TWELVE_DATA_WS_URL"`
	Symbols string `env:"INGEST_SYMBOLS"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads a YAML config file and expands environment variables, then
// applies environment overrides. An empty path skips the file.
func Load(path string) (*IngestorConfig, error) {
	var cfg IngestorConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*IngestorConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*IngestorConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *IngestorConfig) applyEnv() error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}

	db := &c.Database.Timescale
	if env.DBURL != "" {
		db.DSN = env.DBURL
	}
	if env.DBHost != "" {
		db.Host = env.DBHost
	}
	if env.DBPort != 0 {
		db.Port = env.DBPort
	}
	if env.DBName != "" {
		db.Name = env.DBName
	}
	if env.DBUser != "" {
		db.User = env.DBUser
	}
	if env.DBPass != "" {
		db.Password = env.DBPass
	}

	if env.APIKey != "" {
		c.Feed.APIKey = env.APIKey
	}
	if env.WSURL != "" {
		c.Feed.WSURL = env.WSURL
	}
	if env.Symbols != "" {
		c.Feed.Symbols = ParseSymbols(env.Symbols)
	}
	return nil
}

// ParseSymbols splits a comma-separated symbol list, dropping blanks.
func ParseSymbols(s string) []string {
	var out []string
	for _, sym := range strings.Split(s, ",") {
		if sym = strings.TrimSpace(sym); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}
