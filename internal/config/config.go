// Package config loads and validates the gateway's JSON configuration file:
// listen addresses, the selection strategy, the backend list, health-check
// parameters, session TTL, and the ambient logging settings.
package config

// Backend describes one upstream origin as given in configuration.
type Backend struct {
	URL    string `json:"url"`
	Weight uint32 `json:"weight"`
}

// HealthCheck describes the probe loop's parameters.
type HealthCheck struct {
	IntervalSeconds int    `json:"interval_seconds"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	Path            string `json:"path"`
	MaxFailures     uint32 `json:"max_failures"`
}

// Session describes the sticky-session TTL.
type Session struct {
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Logging describes the ambient logging destination and verbosity.
type Logging struct {
	Level  string `json:"level"`
	Output string `json:"output"`
}

// Config is the full gateway configuration, as loaded from a JSON file.
type Config struct {
	ListenAddress        string      `json:"listen_address"`
	MetricsListenAddress string      `json:"metrics_listen_address"`
	Strategy             string      `json:"strategy"`
	Backends             []Backend   `json:"backends"`
	HealthCheck          HealthCheck `json:"health_check"`
	Session              Session     `json:"session"`
	Logging              Logging     `json:"logging"`
}

// Default returns a Config with every ambient field at its documented
// default. Load starts from this before unmarshaling the file over it.
func Default() *Config {
	return &Config{
		MetricsListenAddress: ":9090",
		Strategy:             "roundrobin",
		HealthCheck: HealthCheck{
			IntervalSeconds: 10,
			TimeoutSeconds:  2,
			Path:            "/healthz",
			MaxFailures:     3,
		},
		Session: Session{TimeoutSeconds: 300},
		Logging: Logging{Level: "info", Output: "stdout"},
	}
}
