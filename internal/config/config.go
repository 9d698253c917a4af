package config

import "time"

// IngestorConfig is the root configuration for the price ingestor.
type IngestorConfig struct {
	Feed     FeedConfig     `yaml:"feed"`
	Database DatabaseConfig `yaml:"database"`
	Writer   WriterConfig   `yaml:"writer"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// FeedConfig holds Twelve Data WebSocket settings.
type FeedConfig struct {
	WSURL             string        `yaml:"ws_url"`
	APIKey            string        `yaml:"api_key"`
	Symbols           []string      `yaml:"symbols"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// DatabaseConfig holds the TimescaleDB connection.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	DSN      string `yaml:"dsn"` // URL or keyword/value form; overrides the fields below
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	Table        string        `yaml:"table"`
	BatchSize    int           `yaml:"batch_size"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// IngestConfig controls what happens to batches at the edges of a run.
type IngestConfig struct {
	FlushOnShutdown  bool          `yaml:"flush_on_shutdown"`
	HaltOnWriteError bool          `yaml:"halt_on_write_error"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
