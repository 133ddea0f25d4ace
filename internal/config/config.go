// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the pagelens service configuration from a YAML file
// and the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentberlin/pagelens"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Products  ProductsConfig  `yaml:"products"`
	PageSpeed PageSpeedConfig `yaml:"pagespeed"`
	Store     StoreConfig     `yaml:"store"`
	Fallbacks []Fallback      `yaml:"fallbacks"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	MaxBatchSize int    `yaml:"maxBatchSize"`
	// MCPPort serves the MCP tools over HTTP when non-zero.
	MCPPort int `yaml:"mcpPort"`
}

// AnalyzerConfig configures page analysis. Durations are Go duration
// strings such as "2s" or "1m30s".
type AnalyzerConfig struct {
	Rendering      bool     `yaml:"rendering"`
	ReuseBrowser   bool     `yaml:"reuseBrowser"`
	ChromePath     string   `yaml:"chromePath"`
	Attempts       int      `yaml:"attempts"`
	RetryDelay     string   `yaml:"retryDelay"`
	Timeout        string   `yaml:"timeout"`
	Parallelism    int      `yaml:"parallelism"`
	Profile        string   `yaml:"profile"`
	UserAgent      string   `yaml:"userAgent"`
	RespectRobots  bool     `yaml:"respectRobots"`
	WaitAfterLoad  string   `yaml:"waitAfterLoad"`
	CacheTTL       string   `yaml:"cacheTTL"` // "0" disables reuse of earlier results
	MaxSitemapURLs int      `yaml:"maxSitemapURLs"`
	APIPatterns    []string `yaml:"apiPatterns"`
}

// ProductsConfig tunes the product heuristics.
type ProductsConfig struct {
	Selectors        []string `yaml:"selectors"`
	RequirePrice     *bool    `yaml:"requirePrice"`
	PricePattern     string   `yaml:"pricePattern"`
	CategoryPatterns []string `yaml:"categoryPatterns"`
}

// PageSpeedConfig configures the PageSpeed Insights metrics source.
type PageSpeedConfig struct {
	Enabled           bool    `yaml:"enabled"`
	APIKey            string  `yaml:"apiKey"`
	Strategy          string  `yaml:"strategy"` // mobile or desktop
	BaseURL           string  `yaml:"baseURL"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	CacheTTL          string  `yaml:"cacheTTL"`
	Timeout           string  `yaml:"timeout"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Fallback is the payload served for a host when every attempt to analyse
// one of its URLs fails. Result uses the JSON field names of a page result.
type Fallback struct {
	Host   string                 `yaml:"host"`
	Result map[string]interface{} `yaml:"result"`
}

// ValidStrategies lists the PageSpeed strategies.
var ValidStrategies = []string{"mobile", "desktop"}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			MaxBatchSize: 50,
		},
		Analyzer: AnalyzerConfig{
			Rendering:      true,
			Attempts:       3,
			RetryDelay:     "2s",
			Timeout:        "60s",
			Parallelism:    1,
			Profile:        "mobile",
			WaitAfterLoad:  "1s",
			CacheTTL:       "0",
			MaxSitemapURLs: 500,
		},
		PageSpeed: PageSpeedConfig{
			Strategy:          "mobile",
			BaseURL:           "https://www.googleapis.com/pagespeedonline/v5/runPagespeed",
			RequestsPerSecond: 1,
			CacheTTL:          "1h",
			Timeout:           "120s",
		},
	}
}

// Load loads configuration from a YAML file and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ApplyEnv applies environment variable overrides.
func (c *Config) ApplyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}
	if path := os.Getenv("PAGELENS_DB"); path != "" {
		c.Store.Path = path
	}
	if key := os.Getenv("PAGESPEED_API_KEY"); key != "" {
		c.PageSpeed.APIKey = key
	}
	if chrome := os.Getenv("CHROME_EXECUTABLE_PATH"); chrome != "" {
		c.Analyzer.ChromePath = chrome
	}
	if n := os.Getenv("PAGELENS_PARALLELISM"); n != "" {
		if p, err := strconv.Atoi(n); err == nil {
			c.Analyzer.Parallelism = p
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxBatchSize < 1 {
		return fmt.Errorf("server.maxBatchSize must be at least 1, got %d", c.Server.MaxBatchSize)
	}
	if c.Analyzer.Attempts < 1 {
		return fmt.Errorf("analyzer.attempts must be at least 1, got %d", c.Analyzer.Attempts)
	}
	if c.Analyzer.Parallelism < 1 {
		return fmt.Errorf("analyzer.parallelism must be at least 1, got %d", c.Analyzer.Parallelism)
	}
	if _, err := pagelens.ProfileByName(c.Analyzer.Profile); err != nil {
		return fmt.Errorf("analyzer.profile: %w", err)
	}

	durations := map[string]string{
		"analyzer.retryDelay":    c.Analyzer.RetryDelay,
		"analyzer.timeout":       c.Analyzer.Timeout,
		"analyzer.waitAfterLoad": c.Analyzer.WaitAfterLoad,
		"analyzer.cacheTTL":      c.Analyzer.CacheTTL,
		"pagespeed.cacheTTL":     c.PageSpeed.CacheTTL,
		"pagespeed.timeout":      c.PageSpeed.Timeout,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	validStrategy := false
	for _, s := range ValidStrategies {
		if strings.ToLower(c.PageSpeed.Strategy) == s {
			validStrategy = true
			break
		}
	}
	if !validStrategy {
		return fmt.Errorf("invalid pagespeed strategy: %s (valid: %v)", c.PageSpeed.Strategy, ValidStrategies)
	}

	for _, fb := range c.Fallbacks {
		if strings.TrimSpace(fb.Host) == "" {
			return fmt.Errorf("fallback without host")
		}
	}
	return nil
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// GetRetryDelay returns the pause between attempts.
func (c *Config) GetRetryDelay() time.Duration {
	return parseDuration(c.Analyzer.RetryDelay, 2*time.Second)
}

// GetTimeout returns the per-attempt timeout.
func (c *Config) GetTimeout() time.Duration {
	return parseDuration(c.Analyzer.Timeout, 60*time.Second)
}

// GetWaitAfterLoad returns the settle time after the load event.
func (c *Config) GetWaitAfterLoad() time.Duration {
	return parseDuration(c.Analyzer.WaitAfterLoad, time.Second)
}

// GetCacheTTL returns how long successful results are reused. Zero
// disables reuse.
func (c *Config) GetCacheTTL() time.Duration {
	return parseDuration(c.Analyzer.CacheTTL, 0)
}

// GetPageSpeedCacheTTL returns how long PageSpeed responses are cached.
func (c *Config) GetPageSpeedCacheTTL() time.Duration {
	return parseDuration(c.PageSpeed.CacheTTL, time.Hour)
}

// GetPageSpeedTimeout returns the PageSpeed request timeout.
func (c *Config) GetPageSpeedTimeout() time.Duration {
	return parseDuration(c.PageSpeed.Timeout, 120*time.Second)
}

// FallbackResults converts the configured fallbacks into page results keyed
// by host.
func (c *Config) FallbackResults() (map[string]*pagelens.PageResult, error) {
	if len(c.Fallbacks) == 0 {
		return nil, nil
	}

	results := make(map[string]*pagelens.PageResult, len(c.Fallbacks))
	for _, fb := range c.Fallbacks {
		data, err := json.Marshal(fb.Result)
		if err != nil {
			return nil, fmt.Errorf("invalid fallback for %s: %w", fb.Host, err)
		}
		var result pagelens.PageResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("invalid fallback for %s: %w", fb.Host, err)
		}
		results[strings.ToLower(strings.TrimSpace(fb.Host))] = &result
	}
	return results, nil
}

// AnalyzerOptions builds the analyzer configuration for profileName (empty
// means the configured profile). rendering overrides the configured mode
// when non-nil.
func (c *Config) AnalyzerOptions(profileName string, rendering *bool) (*pagelens.AnalyzerConfig, error) {
	if profileName == "" {
		profileName = c.Analyzer.Profile
	}
	profile, err := pagelens.ProfileByName(profileName)
	if err != nil {
		return nil, err
	}

	fallbacks, err := c.FallbackResults()
	if err != nil {
		return nil, err
	}

	opts := &pagelens.AnalyzerConfig{
		Rendering:     c.Analyzer.Rendering,
		ReuseBrowser:  c.Analyzer.ReuseBrowser,
		ChromePath:    c.Analyzer.ChromePath,
		Attempts:      c.Analyzer.Attempts,
		RetryDelay:    c.GetRetryDelay(),
		Timeout:       c.GetTimeout(),
		WaitAfterLoad: c.GetWaitAfterLoad(),
		Parallelism:   c.Analyzer.Parallelism,
		Profile:       profile,
		UserAgent:     c.Analyzer.UserAgent,
		RespectRobots: c.Analyzer.RespectRobots,
		Products: pagelens.ProductConfig{
			Selectors:        c.Products.Selectors,
			RequirePrice:     c.Products.RequirePrice,
			PricePattern:     c.Products.PricePattern,
			CategoryPatterns: c.Products.CategoryPatterns,
		},
		APIPatterns: c.Analyzer.APIPatterns,
		Fallbacks:   fallbacks,
	}
	if rendering != nil {
		opts.Rendering = *rendering
	}
	return opts, nil
}
