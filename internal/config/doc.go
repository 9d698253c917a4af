// Package config handles ingestor configuration.
//
// Values are layered: built-in defaults, then an optional YAML file (with
// ${VAR} substitution), then environment variables. A .env file may be
// loaded into the environment first with LoadDotEnv.
package config
