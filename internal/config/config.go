// Package config provides functionality for managing configuration options
// for the application using a YAML file, environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `yaml:"address" env:"SERVER_ADDRESS" env-default:"localhost:8080"`

	// DatabaseDSN holds the database connection string. Users are kept in
	// memory when it is empty.
	DatabaseDSN string `yaml:"database_dsn" env:"DATABASE_DSN"`

	// Config is the path to the config file.
	Config string `yaml:"-"`

	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Breach configures the password breach lookup.
	Breach struct {
		// URL is the Pwned Passwords API base URL.
		URL string `yaml:"url" env:"BREACH_API_URL" env-default:"https://api.pwnedpasswords.com"`
		// Timeout bounds a single lookup.
		Timeout time.Duration `yaml:"timeout" env:"BREACH_TIMEOUT" env-default:"5s"`
		// Offline replaces the remote lookup with the Leaked list.
		Offline bool `yaml:"offline" env:"BREACH_OFFLINE" env-default:"false"`
		// Leaked lists passwords reported as leaked in offline mode.
		Leaked []string `yaml:"leaked" env:"BREACH_LEAKED" env-separator:","`
	} `yaml:"breach"`

	// TLS enables HTTPS when both files are set or SelfSigned is true.
	TLS struct {
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE"`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE"`
		// SelfSigned generates a throwaway certificate at startup.
		SelfSigned bool `yaml:"self_signed" env:"TLS_SELF_SIGNED" env-default:"false"`
	} `yaml:"tls"`

	// ShutdownTimeout is how long in-flight requests get to finish on shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// TLSEnabled reports whether the server should serve HTTPS.
func (o *Options) TLSEnabled() bool {
	return o.TLS.SelfSigned || (o.TLS.CertFile != "" && o.TLS.KeyFile != "")
}

// Parse parses os.Args, the config file and environment variables. It
// returns a pointer to the Options struct containing the parsed configuration values.
func Parse() (*Options, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs is Parse with explicit arguments.
func ParseArgs(args []string) (*Options, error) {
	var (
		port, dsn, logLevel string
		cfgPath             string
	)
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&dsn, "d", "", "db address")
	fs.StringVar(&cfgPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&cfgPath, "c", "config.yaml", "path to config file (shorthand)")
	fs.StringVar(&logLevel, "l", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" && !isSet(fs, "c", "config") {
		cfgPath = configPath
	}

	options := &Options{Config: cfgPath}
	if _, err := os.Stat(cfgPath); err == nil {
		if err := cleanenv.ReadConfig(cfgPath, options); err != nil {
			return nil, errors.Wrap(err, "error while reading config file")
		}
	} else if err := cleanenv.ReadEnv(options); err != nil {
		return nil, errors.Wrap(err, "error while reading environment")
	}
	options.Config = cfgPath

	// Explicit flags override file and environment
	if isSet(fs, "a") {
		options.Port = port
	}
	if isSet(fs, "d") {
		options.DatabaseDSN = dsn
	}
	if isSet(fs, "l") {
		options.LogLevel = logLevel
	}

	return options, nil
}

func isSet(fs *flag.FlagSet, names ...string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		for _, n := range names {
			if f.Name == n {
				found = true
			}
		}
	})
	return found
}
