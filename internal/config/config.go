package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/yshiraki/fixboard/internal/fixboard/engine"
)

const configFileName = "config.yaml"

// Config holds everything the client needs to reach the backend and gate
// access to it.
type Config struct {
	// BackendURL is the base URL of the hosted collection, without the
	// /rest/v1 suffix.
	BackendURL string `yaml:"backend_url"`
	// AnonKey is the static bearer credential for the collection.
	AnonKey string `yaml:"anon_key"`
	// Password is the shared passphrase gating the dashboard.
	Password string `yaml:"password"`
	// PageSize is the number of records per page; one of 10, 20, 50.
	PageSize int `yaml:"page_size"`
}

// Options are the command-line overrides shared by every subcommand.
type Options struct {
	ConfigFile string
	PageSize   int
}

// AddPFlags injects the config flags into the given pflag set.
func (o *Options) AddPFlags(fs *pflag.FlagSet) {
	defaultPath := filepath.Join(MustConfigDir(), configFileName)
	fs.StringVar(&o.ConfigFile, "config", defaultPath, "Path to the fixboard config file")
	fs.IntVar(&o.PageSize, "page-size", 0, "Records per page (10, 20 or 50); overrides the config file")
}

// Load reads the config file, then lets the environment (including a
// local .env file) and finally the command line override it.
func (o *Options) Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{PageSize: engine.PageSizes[0]}

	data, err := os.ReadFile(o.ConfigFile)
	switch {
	case os.IsNotExist(err):
		// Environment-only configuration is fine.
	case err != nil:
		return nil, fmt.Errorf("cannot read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", o.ConfigFile, err)
		}
	}

	if v := os.Getenv("FIXBOARD_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("FIXBOARD_ANON_KEY"); v != "" {
		cfg.AnonKey = v
	}
	if v := os.Getenv("FIXBOARD_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("FIXBOARD_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("FIXBOARD_PAGE_SIZE %q is not a number: %w", v, err)
		}
		cfg.PageSize = size
	}
	if o.PageSize != 0 {
		cfg.PageSize = o.PageSize
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend URL is not configured (set backend_url or FIXBOARD_URL)")
	}
	if c.AnonKey == "" {
		return fmt.Errorf("anon key is not configured (set anon_key or FIXBOARD_ANON_KEY)")
	}
	if !engine.ValidPageSize(c.PageSize) {
		return fmt.Errorf("page size %d is not recognized (expected 10, 20 or 50)", c.PageSize)
	}
	return nil
}
