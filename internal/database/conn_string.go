package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/tickstream/tick-ingestor/internal/config"
)

// BuildConnString returns the connection string pgx should parse. An
// explicit DSN (URL or keyword/value form) is used verbatim; otherwise a
// postgres:// URL is assembled from the individual fields.
func BuildConnString(cfg config.DBConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}
	port := cfg.Port
	if port == 0 {
		port = config.DefaultDBPort
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(port)),
		Path:     "/" + cfg.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
