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

package app

import (
	"net/http"
	"os"
	"os/exec"
	"runtime"

	"github.com/agentberlin/pagelens"
	"github.com/agentberlin/pagelens/internal/config"
	"github.com/agentberlin/pagelens/internal/pagespeed"
	"github.com/agentberlin/pagelens/internal/store"
	"github.com/agentberlin/pagelens/internal/types"
	"github.com/agentberlin/pagelens/internal/version"
)

// App represents the core application logic
type App struct {
	config     *config.Config
	store      *store.Store
	metrics    pagelens.MetricsProvider
	renderer   pagelens.Renderer
	httpClient *http.Client
}

// Option customises an App.
type Option func(*App)

// WithRenderer makes every analysis use r instead of launching a browser.
func WithRenderer(r pagelens.Renderer) Option {
	return func(a *App) { a.renderer = r }
}

// WithMetricsProvider overrides the PageSpeed client built from config.
func WithMetricsProvider(m pagelens.MetricsProvider) Option {
	return func(a *App) { a.metrics = m }
}

// WithHTTPClient sets the client used for sitemaps, robots.txt and static
// rendering.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.httpClient = c }
}

// NewApp creates a new App instance with dependencies injected
func NewApp(cfg *config.Config, st *store.Store, opts ...Option) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	a := &App{
		config: cfg,
		store:  st,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: cfg.GetTimeout()}
	}
	if a.metrics == nil && cfg.PageSpeed.Enabled {
		a.metrics = pagespeed.NewClient(pagespeed.Options{
			APIKey:            cfg.PageSpeed.APIKey,
			Strategy:          cfg.PageSpeed.Strategy,
			BaseURL:           cfg.PageSpeed.BaseURL,
			RequestsPerSecond: cfg.PageSpeed.RequestsPerSecond,
			CacheTTL:          cfg.GetPageSpeedCacheTTL(),
			HTTPClient:        &http.Client{Timeout: cfg.GetPageSpeedTimeout()},
		})
	}

	return a
}

// Config returns the application configuration.
func (a *App) Config() *config.Config {
	return a.config
}

// GetVersion returns the current version of the application
func (a *App) GetVersion() string {
	return version.CurrentVersion
}

// CheckSystemHealth checks if all required dependencies are available
func (a *App) CheckSystemHealth() *types.SystemHealthCheck {
	if !a.config.Analyzer.Rendering || a.renderer != nil {
		return &types.SystemHealthCheck{IsHealthy: true}
	}

	if !isChromeBrowserAvailable(a.config.Analyzer.ChromePath) {
		return &types.SystemHealthCheck{
			IsHealthy:  false,
			ErrorTitle: "Chrome Browser Required",
			ErrorMsg:   "Google Chrome or Chromium is required to render pages but was not found on your system.",
			Suggestion: "Install Google Chrome or Chromium, or set the CHROME_EXECUTABLE_PATH environment variable to point to your Chrome installation.\n\nSetting analyzer.rendering to false analyses pages without a browser, but no performance metrics are collected then.",
		}
	}

	return &types.SystemHealthCheck{
		IsHealthy: true,
	}
}

// isChromeBrowserAvailable checks if Chrome or Chromium is available
func isChromeBrowserAvailable(configuredPath string) bool {
	for _, customPath := range []string{configuredPath, os.Getenv("CHROME_EXECUTABLE_PATH")} {
		if customPath == "" {
			continue
		}
		if _, err := os.Stat(customPath); err == nil {
			return true
		}
	}

	// Try common Chrome locations based on OS
	var chromePaths []string

	switch runtime.GOOS {
	case "darwin": // macOS
		chromePaths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			os.Getenv("HOME") + "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		}
	case "windows":
		chromePaths = []string{
			os.Getenv("ProgramFiles") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("ProgramFiles(x86)") + "\\Google\\Chrome\\Application\\chrome.exe",
			os.Getenv("LocalAppData") + "\\Google\\Chrome\\Application\\chrome.exe",
		}
	case "linux":
		chromePaths = []string{
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"/headless-shell/headless-shell",
		}
	}

	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}

	return false
}
