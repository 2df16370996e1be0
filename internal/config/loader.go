package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/NithinKonda/load-balancer/internal/pool"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader reads and validates a JSON configuration file.
type Loader struct{}

// NewLoader constructs a Loader.
func NewLoader() *Loader { return &Loader{} }

// Load reads path, expands ${VAR} references against the process
// environment, unmarshals over the defaults, and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return l.Parse(data)
}

// Parse parses raw JSON bytes, exported mainly so tests can build
// configuration without touching the filesystem.
func (l *Loader) Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := json.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config json: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func expandEnvVars(input string) string {
	return envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := strings.TrimPrefix(strings.TrimSuffix(match, "}"), "${")
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen_address is required")
	}
	if len(cfg.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}
	if _, err := pool.ParseStrategy(cfg.Strategy); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Backends))
	for _, b := range cfg.Backends {
		if !pool.ValidURL(b.URL) {
			return fmt.Errorf("backend url %q is not a valid absolute URL", b.URL)
		}
		if seen[b.URL] {
			return fmt.Errorf("duplicate backend url %q", b.URL)
		}
		seen[b.URL] = true
	}
	return nil
}
