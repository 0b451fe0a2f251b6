package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ScoringConfig tunes the topology and fusion stages
type ScoringConfig struct {
	DepthWeight   float64 `koanf:"depth-weight"`
	EntropyBins   int     `koanf:"entropy-bins"`
	SeverityScale float64 `koanf:"severity-scale"`
	HubThreshold  float64 `koanf:"hub-threshold"`
}

// FeedsConfig tunes the threat-intelligence collectors
type FeedsConfig struct {
	Enabled     bool    `koanf:"enabled"`
	EPSSURL     string  `koanf:"epss-url"`
	KEVURL      string  `koanf:"kev-url"`
	Concurrency int     `koanf:"concurrency"`
	RatePerSec  float64 `koanf:"rate"`
	TimeoutSec  int     `koanf:"timeout"`
}

// Config holds all configuration for the application
type Config struct {
	Inventory   string        `koanf:"inventory"`
	WebMode     bool          `koanf:"web"`
	Port        int           `koanf:"port"`
	Watch       bool          `koanf:"watch"`
	OpenBrowser bool          `koanf:"open"`
	Verbosity   string        `koanf:"verbosity"`
	VerboseCnt  int           `koanf:"verbose"`
	Scoring     ScoringConfig `koanf:"scoring"`
	Feeds       FeedsConfig   `koanf:"feeds"`
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"inventory": "inventory.json",
		"web":       false,
		"port":      8080,
		"watch":     false,
		"open":      true,
		"verbosity": "",
		"verbose":   0,
		"scoring": map[string]interface{}{
			"depth-weight":   0.5,
			"entropy-bins":   10,
			"severity-scale": 10.0,
			"hub-threshold":  0.7,
		},
		"feeds": map[string]interface{}{
			"enabled":     false,
			"epss-url":    "https://api.first.org/data/v1/epss",
			"kev-url":     "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json",
			"concurrency": 4,
			"rate":        0.0,
			"timeout":     5,
		},
	}
	if err := k.Load(makeMapProvider(defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config File (optional) - vulnrank.toml
	// Errors ignored here since the file might not exist
	_ = k.Load(file.Provider("vulnrank.toml"), toml.Parser())

	// 3. Environment Variables
	// Prefix: VULNRANK_ (e.g., VULNRANK_PORT=9090, VULNRANK_SCORING_DEPTH_WEIGHT=0.7
	// maps the last underscore-separated path onto scoring.depth-weight via the
	// koanf key transform below)
	if err := k.Load(env.Provider("VULNRANK_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "VULNRANK_"))
		// Section separator first, then dashes within leaf keys
		key = strings.Replace(key, "_", ".", 1)
		if strings.Contains(key, ".") {
			parts := strings.SplitN(key, ".", 2)
			key = parts[0] + "." + strings.ReplaceAll(parts[1], "_", "-")
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the scoring stages cannot work with
func (c *Config) Validate() error {
	if c.Scoring.DepthWeight < 0 || c.Scoring.DepthWeight > 1 {
		return fmt.Errorf("scoring.depth-weight must be in [0, 1], got %g", c.Scoring.DepthWeight)
	}
	if c.Scoring.EntropyBins < 2 {
		return fmt.Errorf("scoring.entropy-bins must be at least 2, got %d", c.Scoring.EntropyBins)
	}
	if c.Scoring.SeverityScale <= 0 {
		return fmt.Errorf("scoring.severity-scale must be positive, got %g", c.Scoring.SeverityScale)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535], got %d", c.Port)
	}
	if c.Feeds.Concurrency < 1 {
		return fmt.Errorf("feeds.concurrency must be at least 1, got %d", c.Feeds.Concurrency)
	}
	if c.Feeds.TimeoutSec < 1 {
		return fmt.Errorf("feeds.timeout must be at least 1 second, got %d", c.Feeds.TimeoutSec)
	}
	return nil
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
