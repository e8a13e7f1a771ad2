// Package config provides functionality for managing configuration options
// for the server and the client using command-line flags, an optional JSON
// config file and environment variables, applied in that order.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ServerOptions holds the configuration values of the remote store server.
type ServerOptions struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"address"`

	// DatabaseDSN holds the Postgres connection string.
	DatabaseDSN string `json:"database_dsn"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// AllowedOrigins lists browser origins allowed to open the realtime feed.
	AllowedOrigins []string `json:"allowed_origins"`

	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// ClientOptions holds the configuration values of the client shell.
type ClientOptions struct {
	// URL is the remote store base URL; empty runs local-only.
	URL string `json:"url"`

	// CAFile is an optional PEM file trusted for the remote store.
	CAFile string `json:"ca_file"`

	// CachePath is the SQLite file of the local document cache.
	CachePath string `json:"cache_path"`

	// Couple is the couple ID to open on start.
	Couple string `json:"couple"`

	LogFile  string `json:"log_file"`
	LogLevel string `json:"log_level"`

	// Timeout bounds every remote request.
	Timeout Duration `json:"timeout"`

	// DrainInterval is how often queued offline changes are retried.
	DrainInterval Duration `json:"drain_interval"`

	// QueueRetention is how long a queued change is kept before it is
	// discarded.
	QueueRetention Duration `json:"queue_retention"`

	// Locale is the process locale, used to pick the default language.
	Locale string `json:"-"`

	// Version prints build metadata and exits.
	Version bool `json:"-"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// Duration is a time.Duration that reads from JSON as either a Go duration
// string ("30s") or a number of nanoseconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		d.Duration = parsed
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("parse duration %s: %w", data, err)
	}
	d.Duration = time.Duration(n)
	return nil
}

// ParseServer parses args (without the program name) into ServerOptions.
func ParseServer(args []string) (*ServerOptions, error) {
	options := &ServerOptions{}
	var origins string

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&origins, "origins", "", "comma-separated origins allowed to subscribe")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	options.AllowedOrigins = splitList(origins)

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if options.DatabaseDSN == "" {
		return nil, errors.New("database dsn is required")
	}
	return options, nil
}

// ParseClient parses args (without the program name) into ClientOptions.
func ParseClient(args []string) (*ClientOptions, error) {
	options := &ClientOptions{}
	dataDir := defaultDataDir()

	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&options.URL, "url", "", "remote store base URL")
	fs.StringVar(&options.CAFile, "ca", "", "CA certificate trusted for the remote store")
	fs.StringVar(&options.CachePath, "db", filepath.Join(dataDir, "cache.db"), "local cache file")
	fs.StringVar(&options.Couple, "couple", "", "couple ID to open")
	fs.StringVar(&options.LogFile, "log-file", filepath.Join(dataDir, "client.log"), "log file")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.DurationVar(&options.Timeout.Duration, "timeout", 10*time.Second, "remote request timeout")
	fs.DurationVar(&options.DrainInterval.Duration, "drain-interval", 30*time.Second, "offline queue retry interval")
	fs.DurationVar(&options.QueueRetention.Duration, "queue-retention", 30*24*time.Hour, "offline queue retention")
	fs.BoolVar(&options.Version, "version", false, "show build version and date")
	fs.StringVar(&options.Config, "config", "", "path to config file")
	fs.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	if url := os.Getenv("COUPLEHQ_URL"); url != "" {
		options.URL = url
	}
	options.Locale = os.Getenv("LANG")
	return options, nil
}

// loadFile merges the JSON file at path into dst. A missing file is not an
// error.
func loadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "couplehq")
	}
	return ".couplehq"
}
