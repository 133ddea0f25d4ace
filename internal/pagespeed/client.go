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

// Package pagespeed fetches Lighthouse metrics from the PageSpeed Insights
// v5 API.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/agentberlin/pagelens"
)

// DefaultBaseURL is the public PageSpeed Insights endpoint.
const DefaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Lighthouse audit ids.
const (
	auditFCP = "first-contentful-paint"
	auditLCP = "largest-contentful-paint"
	auditTBT = "total-blocking-time"
	auditCLS = "cumulative-layout-shift"
	auditSI  = "speed-index"
)

// Options configures a Client.
type Options struct {
	APIKey   string
	Strategy string // mobile or desktop
	BaseURL  string
	// RequestsPerSecond limits API calls; <= 0 means one per second.
	RequestsPerSecond float64
	// CacheTTL is how long a response is reused; <= 0 disables caching.
	CacheTTL   time.Duration
	HTTPClient *http.Client
}

// Client implements pagelens.MetricsProvider against PageSpeed Insights.
type Client struct {
	apiKey   string
	strategy string
	baseURL  string
	ttl      time.Duration
	limiter  *rate.Limiter
	client   *http.Client

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	metrics   *pagelens.LighthouseMetrics
	fetchedAt time.Time
}

// psiResponse is the subset of the API response we read.
type psiResponse struct {
	LighthouseResult *struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
		Audits map[string]audit `json:"audits"`
	} `json:"lighthouseResult"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type audit struct {
	DisplayValue string   `json:"displayValue"`
	NumericValue *float64 `json:"numericValue"`
}

// NewClient creates a PageSpeed Insights client.
func NewClient(opts Options) *Client {
	if opts.Strategy == "" {
		opts.Strategy = "mobile"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &Client{
		apiKey:   opts.APIKey,
		strategy: opts.Strategy,
		baseURL:  opts.BaseURL,
		ttl:      opts.CacheTTL,
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		client:   opts.HTTPClient,
		cache:    make(map[string]cacheEntry),
		now:      time.Now,
	}
}

// Metrics runs a Lighthouse performance audit of pageURL through the API.
func (c *Client) Metrics(ctx context.Context, pageURL string) (*pagelens.LighthouseMetrics, error) {
	cacheKey := fmt.Sprintf("%s:%s", c.strategy, pageURL)
	if cached := c.cached(cacheKey); cached != nil {
		return cached, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("pagespeed rate limit: %w", err)
	}

	query := url.Values{}
	query.Set("url", pageURL)
	query.Set("strategy", c.strategy)
	query.Set("category", "performance")
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build pagespeed request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagespeed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read pagespeed response: %w", err)
	}

	var payload psiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("pagespeed returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to parse pagespeed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || payload.Error != nil {
		msg := ""
		if payload.Error != nil {
			msg = payload.Error.Message
		}
		return nil, fmt.Errorf("pagespeed returned status %d: %s", resp.StatusCode, msg)
	}
	if payload.LighthouseResult == nil {
		return nil, fmt.Errorf("pagespeed response for %s has no lighthouse result", pageURL)
	}

	metrics := toMetrics(payload)
	c.store(cacheKey, metrics)
	return metrics, nil
}

func (c *Client) cached(key string) *pagelens.LighthouseMetrics {
	if c.ttl <= 0 {
		return nil
	}
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || c.now().Sub(entry.fetchedAt) > c.ttl {
		return nil
	}
	copied := *entry.metrics
	return &copied
}

func (c *Client) store(key string, metrics *pagelens.LighthouseMetrics) {
	if c.ttl <= 0 {
		return
	}
	copied := *metrics
	c.cacheMu.Lock()
	c.cache[key] = cacheEntry{metrics: &copied, fetchedAt: c.now()}
	c.cacheMu.Unlock()
}

func toMetrics(payload psiResponse) *pagelens.LighthouseMetrics {
	lr := payload.LighthouseResult
	m := &pagelens.LighthouseMetrics{Source: pagelens.MetricsSourcePageSpeed}

	m.FCP, m.FCPMs = readAudit(lr.Audits, auditFCP, pagelens.FormatSeconds)
	m.LCP, m.LCPMs = readAudit(lr.Audits, auditLCP, pagelens.FormatSeconds)
	m.TBT, m.TBTMs = readAudit(lr.Audits, auditTBT, pagelens.FormatMilliseconds)
	m.CLS, m.CLSValue = readAudit(lr.Audits, auditCLS, pagelens.FormatCLS)
	m.SI, m.SIMs = readAudit(lr.Audits, auditSI, pagelens.FormatSeconds)

	if perf, ok := lr.Categories["performance"]; ok && perf.Score != nil {
		score := int(*perf.Score*100 + 0.5)
		m.Score = &score
	}
	return m
}

// readAudit prefers the API's display value and formats the numeric value
// itself when the display value is missing.
func readAudit(audits map[string]audit, id string, format func(float64) string) (string, float64) {
	a, ok := audits[id]
	if !ok {
		return "", 0
	}
	var value float64
	if a.NumericValue != nil {
		value = *a.NumericValue
	}
	display := a.DisplayValue
	if display == "" && a.NumericValue != nil {
		display = format(value)
	}
	return display, value
}
