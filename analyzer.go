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

// Package pagelens renders web pages in a headless browser and extracts
// page-level signals from them: load time, title and meta description,
// structured data, product listings, API usage and Lighthouse-style
// performance metrics.
package pagelens

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrInvalidURL is returned for URLs that cannot be analysed at all.
	ErrInvalidURL = errors.New("invalid URL")
	// ErrBlockedByRobots is reported when robots.txt disallows the URL.
	ErrBlockedByRobots = errors.New("blocked by robots.txt")
	// ErrHTTPStatus wraps main-document responses with status >= 400.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrCancelled marks batch entries that never started.
	ErrCancelled = errors.New("analysis cancelled")
	// ErrPanicked marks batch entries whose analysis panicked.
	ErrPanicked = errors.New("analysis panicked")
)

// MetricsProvider supplies Lighthouse metrics from an external audit,
// such as the PageSpeed Insights API.
type MetricsProvider interface {
	Metrics(ctx context.Context, url string) (*LighthouseMetrics, error)
}

// AnalyzerConfig contains all configuration options for an Analyzer
type AnalyzerConfig struct {
	// Rendering loads pages in headless Chrome. When false pages are fetched
	// with a plain HTTP GET and no performance metrics are available.
	Rendering bool
	// ReuseBrowser shares one browser process between renders. By default
	// every URL gets a freshly launched browser.
	ReuseBrowser bool
	// ChromePath overrides the browser executable. Falls back to the
	// CHROME_EXECUTABLE_PATH environment variable.
	ChromePath string
	// Attempts is the number of render attempts per URL (default 3).
	Attempts int
	// RetryDelay is the fixed pause between attempts (default 2s).
	RetryDelay time.Duration
	// Timeout bounds a single attempt (default 60s).
	Timeout time.Duration
	// WaitAfterLoad is how long to let the page settle after the load
	// event before the DOM is read (default 1s).
	WaitAfterLoad time.Duration
	// Parallelism is the number of URLs analysed at once in a batch
	// (default 1, i.e. sequential).
	Parallelism int
	// Profile is the device/network emulation (default MobileProfile).
	Profile *EmulationProfile
	// UserAgent overrides the profile's user agent when set.
	UserAgent string
	// RespectRobots skips URLs disallowed by robots.txt.
	RespectRobots bool
	// Products tunes the product listing heuristics.
	Products ProductConfig
	// APIPatterns are glob patterns for URLs treated as API endpoints.
	// Defaults to DefaultAPIPatterns.
	APIPatterns []string
	// Fallbacks maps a lower-cased host to the payload served when every
	// attempt for a URL on that host fails.
	Fallbacks map[string]*PageResult
	// Metrics is an optional external source of Lighthouse metrics.
	Metrics MetricsProvider
	// HTTPClient is used for robots.txt and the static renderer.
	HTTPClient *http.Client
	// Renderer replaces the renderer chosen from Rendering.
	Renderer Renderer
}

// Analyzer runs the per-URL analysis pipeline
type Analyzer struct {
	config    AnalyzerConfig
	renderer  Renderer
	robots    *RobotsChecker
	apiUsage  *apiDetector
	products  *productDetector
	userAgent string
}

// NewAnalyzer creates an Analyzer, filling in defaults for unset options.
func NewAnalyzer(config *AnalyzerConfig) (*Analyzer, error) {
	cfg := AnalyzerConfig{Rendering: true}
	if config != nil {
		cfg = *config
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.WaitAfterLoad <= 0 {
		cfg.WaitAfterLoad = time.Second
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.Profile == nil {
		cfg.Profile = MobileProfile
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	apiDetector, err := newAPIDetector(cfg.APIPatterns)
	if err != nil {
		return nil, err
	}
	productDetector, err := newProductDetector(cfg.Products)
	if err != nil {
		return nil, err
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = cfg.Profile.UserAgent
	}
	if cfg.UserAgent != "" {
		profile := *cfg.Profile
		profile.UserAgent = cfg.UserAgent
		cfg.Profile = &profile
	}

	fallbacks := make(map[string]*PageResult, len(cfg.Fallbacks))
	for host, payload := range cfg.Fallbacks {
		fallbacks[strings.ToLower(host)] = payload
	}
	cfg.Fallbacks = fallbacks

	a := &Analyzer{
		config:    cfg,
		renderer:  cfg.Renderer,
		apiUsage:  apiDetector,
		products:  productDetector,
		userAgent: userAgent,
	}

	if a.renderer == nil {
		if cfg.Rendering {
			a.renderer = newChromedpRenderer(&cfg)
		} else {
			a.renderer = newStaticRenderer(cfg.HTTPClient, cfg.UserAgent)
		}
	}

	if cfg.RespectRobots {
		a.robots = NewRobotsChecker(cfg.HTTPClient, userAgent)
	}

	return a, nil
}

// Config returns a copy of the effective configuration.
func (a *Analyzer) Config() AnalyzerConfig {
	return a.config
}

// Close releases the renderer's browser resources.
func (a *Analyzer) Close() {
	a.renderer.Close()
}

// AnalyzeURL runs the full pipeline for one URL. Failures are reported in
// PageResult.Error; the result is never nil.
func (a *Analyzer) AnalyzeURL(ctx context.Context, rawURL string) *PageResult {
	result := &PageResult{URL: rawURL, AnalyzedAt: time.Now().UTC()}

	pageURL, err := NormalizeURL(rawURL)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	if a.robots != nil {
		allowed, err := a.robots.Allowed(ctx, pageURL)
		if err != nil {
			log.Printf("robots.txt check failed for %s, continuing: %v", pageURL, err)
		} else if !allowed {
			result.Error = ErrBlockedByRobots.Error()
			return result
		}
	}

	rendered, err := a.renderWithRetry(ctx, pageURL, result)
	if err != nil {
		if fallback := a.fallbackFor(pageURL, result); fallback != nil {
			log.Printf("Serving configured fallback for %s after %d failed attempts", pageURL, result.Attempts)
			return fallback
		}
		result.Error = err.Error()
		if rendered != nil {
			result.StatusCode = rendered.StatusCode
		}
		return result
	}

	a.populate(ctx, pageURL, result, rendered)
	return result
}

// renderWithRetry renders pageURL up to Attempts times with a fixed delay
// between attempts. The last rendered page is returned alongside the error
// so that callers can still report its status code.
func (a *Analyzer) renderWithRetry(ctx context.Context, pageURL string, result *PageResult) (*RenderedPage, error) {
	var lastErr error
	var lastPage *RenderedPage

	for attempt := 1; attempt <= a.config.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		result.Attempts = attempt
		attemptCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		rendered, err := a.renderer.Render(attemptCtx, pageURL, a.config.Profile)
		cancel()

		if err == nil {
			return rendered, nil
		}

		lastErr = err
		lastPage = rendered
		log.Printf("Attempt %d/%d for %s failed: %v", attempt, a.config.Attempts, pageURL, err)

		if attempt == a.config.Attempts {
			break
		}

		timer := time.NewTimer(a.config.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastPage, fmt.Errorf("analysis failed after %d attempts: %w", result.Attempts, ctx.Err())
		case <-timer.C:
		}
	}

	return lastPage, fmt.Errorf("analysis failed after %d attempts: %w", result.Attempts, lastErr)
}

// fallbackFor returns a copy of the configured fallback payload for the host
// of pageURL, or nil.
func (a *Analyzer) fallbackFor(pageURL string, result *PageResult) *PageResult {
	if len(a.config.Fallbacks) == 0 || result.Attempts == 0 {
		return nil
	}
	payload, ok := a.config.Fallbacks[hostOf(pageURL)]
	if !ok || payload == nil {
		return nil
	}

	fallback := *payload
	fallback.URL = result.URL
	fallback.Attempts = result.Attempts
	fallback.AnalyzedAt = result.AnalyzedAt
	fallback.Fallback = true
	fallback.Error = ""
	return &fallback
}

// populate runs every extractor over a successfully rendered page.
func (a *Analyzer) populate(ctx context.Context, pageURL string, result *PageResult, rendered *RenderedPage) {
	result.FinalURL = rendered.FinalURL
	result.StatusCode = rendered.StatusCode
	result.LoadTimeMs = loadTimeMs(rendered)
	result.TimeToFirstByte = rendered.TimeToFirstByte.Milliseconds()
	result.ConnectTimeMs = rendered.ConnectTime.Milliseconds()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered.HTML))
	if err != nil {
		result.Error = fmt.Sprintf("failed to parse HTML: %v", err)
		return
	}

	result.Title = extractTitle(doc)
	result.MetaDescription = extractMetaDescription(doc)

	structured, jsonLDProducts := extractStructuredData(doc)
	result.StructuredData = structured
	result.Products = a.products.Count(doc, jsonLDProducts)
	result.APIUsage = a.apiUsage.Detect(doc, rendered.Requests)

	requestURLs := make([]string, 0, len(rendered.Requests))
	for _, req := range rendered.Requests {
		requestURLs = append(requestURLs, req.URL)
	}
	result.Platform, result.PlatformSignals = DetectPlatform(rendered.HTML, requestURLs)
	result.ContentHash = ContentHash(doc)

	result.Lighthouse = ComputeMetrics(rendered.Timings)
	if a.config.Metrics != nil {
		external, err := a.config.Metrics.Metrics(ctx, pageURL)
		if err != nil {
			log.Printf("External metrics unavailable for %s, using browser metrics: %v", pageURL, err)
		} else if external != nil {
			result.Lighthouse = external
		}
	}
}

// AnalyzeBatch analyses urls with up to Parallelism workers. Results are in
// input order; URLs that never started because ctx ended carry ErrCancelled
// and URLs whose analysis panicked carry ErrPanicked.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, urls []string) *BatchResult {
	start := time.Now()
	results := make([]*PageResult, len(urls))

	pool := NewWorkerPool(ctx, a.config.Parallelism, len(urls))
	for i, u := range urls {
		if err := pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Analysis of %s panicked: %v\n%s", u, r, debug.Stack())
					results[i] = &PageResult{
						URL:        u,
						Error:      fmt.Sprintf("%v: %v", ErrPanicked, r),
						AnalyzedAt: time.Now().UTC(),
					}
				}
			}()
			log.Printf("Analyzing %s (%d/%d)", u, i+1, len(urls))
			results[i] = a.AnalyzeURL(ctx, u)
		}); err != nil {
			break
		}
	}
	pool.Close()

	for i, r := range results {
		if r == nil {
			results[i] = &PageResult{
				URL:        urls[i],
				Error:      ErrCancelled.Error(),
				AnalyzedAt: time.Now().UTC(),
			}
		}
	}

	return &BatchResult{Results: results, Duration: time.Since(start)}
}
