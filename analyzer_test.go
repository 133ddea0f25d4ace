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

package pagelens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/pagelens/testutil"
)

// mockRenderer serves canned pages and counts calls per URL.
type mockRenderer struct {
	mu     sync.Mutex
	calls  map[string]int
	render func(call int, url string) (*RenderedPage, error)
}

func newMockRenderer(render func(call int, url string) (*RenderedPage, error)) *mockRenderer {
	return &mockRenderer{calls: make(map[string]int), render: render}
}

func (m *mockRenderer) Render(ctx context.Context, url string, profile *EmulationProfile) (*RenderedPage, error) {
	m.mu.Lock()
	m.calls[url]++
	call := m.calls[url]
	m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.render(call, url)
}

func (m *mockRenderer) Close() {}

func (m *mockRenderer) callsFor(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[url]
}

func pageFor(url, html string) *RenderedPage {
	return &RenderedPage{URL: url, FinalURL: url, StatusCode: 200, HTML: html, LoadTime: 120 * time.Millisecond}
}

type stubMetrics struct {
	metrics *LighthouseMetrics
	err     error
}

func (s stubMetrics) Metrics(ctx context.Context, url string) (*LighthouseMetrics, error) {
	return s.metrics, s.err
}

func TestNewAnalyzer_Defaults(t *testing.T) {
	a, err := NewAnalyzer(nil)
	require.NoError(t, err)
	defer a.Close()

	cfg := a.Config()
	assert.True(t, cfg.Rendering)
	assert.Equal(t, 3, cfg.Attempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.WaitAfterLoad)
	assert.Equal(t, 1, cfg.Parallelism)
	assert.Same(t, MobileProfile, cfg.Profile)
	assert.IsType(t, &chromedpRenderer{}, a.renderer)

	static, err := NewAnalyzer(&AnalyzerConfig{})
	require.NoError(t, err)
	assert.IsType(t, &staticRenderer{}, static.renderer)
}

func TestNewAnalyzer_UserAgentOverride(t *testing.T) {
	a, err := NewAnalyzer(&AnalyzerConfig{UserAgent: "pagelens/1.0", Profile: DesktopProfile})
	require.NoError(t, err)

	assert.Equal(t, "pagelens/1.0", a.Config().Profile.UserAgent)
	assert.Equal(t, desktopUserAgent, DesktopProfile.UserAgent, "built-in profile is not modified")
}

func TestNewAnalyzer_InvalidPatterns(t *testing.T) {
	_, err := NewAnalyzer(&AnalyzerConfig{APIPatterns: []string{"[oops"}})
	assert.Error(t, err)

	_, err = NewAnalyzer(&AnalyzerConfig{Products: ProductConfig{PricePattern: "("}})
	assert.Error(t, err)
}

func TestAnalyzeURL_StaticFixture(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	a, err := NewAnalyzer(&AnalyzerConfig{HTTPClient: ts.Client()})
	require.NoError(t, err)
	defer a.Close()

	result := a.AnalyzeURL(context.Background(), ts.URL+"/products")

	require.Empty(t, result.Error)
	assert.Equal(t, ts.URL+"/products", result.URL)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "Running Shoes | Example Shop", result.Title)
	assert.Equal(t, "Shop running shoes online.", result.MetaDescription)
	assert.Equal(t, 2, result.StructuredData.JSONLD)
	assert.Equal(t, 3, result.StructuredData.Microdata)
	assert.Equal(t, 3, result.Products.Count)
	assert.Equal(t, 2, result.Products.JSONLDProducts)
	assert.Equal(t, 1234, result.Products.CategoryCount)
	assert.True(t, result.APIUsage.Detected)
	assert.Equal(t, PlatformOther, result.Platform)
	assert.Len(t, result.ContentHash, 16)
	assert.Nil(t, result.Lighthouse, "no browser timings without rendering")
	assert.False(t, result.Fallback)
	assert.False(t, result.AnalyzedAt.IsZero())
}

func TestAnalyzeURL_InvalidURL(t *testing.T) {
	r := newMockRenderer(func(int, string) (*RenderedPage, error) {
		t.Fatal("renderer must not be called for invalid URLs")
		return nil, nil
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), "ftp://example.com/file")
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, ErrInvalidURL.Error())
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, "ftp://example.com/file", result.URL)
}

func TestAnalyzeURL_RetriesThenSucceeds(t *testing.T) {
	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		if call < 3 {
			return nil, errors.New("navigation timeout")
		}
		return pageFor(url, "<html><head><title>Third time lucky</title></head></html>"), nil
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), "https://shop.test/")

	assert.Empty(t, result.Error)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "Third time lucky", result.Title)
	assert.Equal(t, int64(120), result.LoadTimeMs)
}

func TestAnalyzeURL_RetryAgainstFlakyServer(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	a, err := NewAnalyzer(&AnalyzerConfig{HTTPClient: ts.Client(), RetryDelay: time.Millisecond})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), ts.URL+"/flaky")
	assert.Empty(t, result.Error)
	assert.Equal(t, testutil.FlakyFailures+1, result.Attempts)
	assert.Equal(t, 3, result.Products.Count)
}

func TestAnalyzeURL_AllAttemptsFail(t *testing.T) {
	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		return &RenderedPage{URL: url, StatusCode: 503}, fmt.Errorf("%w: %d", ErrHTTPStatus, 503)
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r, Attempts: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), "https://shop.test/down")

	assert.Equal(t, 2, r.callsFor("https://shop.test/down"))
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 503, result.StatusCode)
	assert.Contains(t, result.Error, "analysis failed after 2 attempts")
	assert.False(t, result.Fallback)
}

func TestAnalyzeURL_Fallback(t *testing.T) {
	r := newMockRenderer(func(int, string) (*RenderedPage, error) {
		return nil, errors.New("browser crashed")
	})
	payload := &PageResult{
		URL:        "https://ignored.test/",
		Title:      "Cached title",
		LoadTimeMs: 2100,
		Products:   ProductCounts{Count: 48, CategoryCount: 312},
		Error:      "stale",
	}
	a, err := NewAnalyzer(&AnalyzerConfig{
		Renderer:   r,
		Attempts:   2,
		RetryDelay: time.Millisecond,
		Fallbacks:  map[string]*PageResult{"Shop.Test": payload},
	})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), "https://shop.test/category/shoes")

	assert.True(t, result.Fallback)
	assert.Empty(t, result.Error)
	assert.Equal(t, "https://shop.test/category/shoes", result.URL)
	assert.Equal(t, "Cached title", result.Title)
	assert.Equal(t, 48, result.Products.Count)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, "https://ignored.test/", payload.URL, "configured payload is not modified")

	other := a.AnalyzeURL(context.Background(), "https://other.test/")
	assert.False(t, other.Fallback)
	assert.True(t, other.Failed())
}

func TestAnalyzeURL_RobotsBlocked(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	a, err := NewAnalyzer(&AnalyzerConfig{HTTPClient: ts.Client(), RespectRobots: true})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), ts.URL+"/private")
	assert.Equal(t, ErrBlockedByRobots.Error(), result.Error)
	assert.Equal(t, 0, result.Attempts)

	allowed := a.AnalyzeURL(context.Background(), ts.URL+"/plain")
	assert.Empty(t, allowed.Error)
	assert.Equal(t, "Plain Page", allowed.Title)
	assert.Equal(t, "Nothing to see here.", allowed.MetaDescription)
}

func TestAnalyzeURL_Timeout(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	a, err := NewAnalyzer(&AnalyzerConfig{
		HTTPClient: ts.Client(),
		Attempts:   1,
		Timeout:    50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	result := a.AnalyzeURL(context.Background(), ts.URL+"/slow")
	assert.True(t, result.Failed())
	assert.Less(t, time.Since(start), time.Second)
}

func TestAnalyzeURL_MetricsProvider(t *testing.T) {
	timings := &PageTimings{FirstContentfulPaint: 900, LCPCandidates: []LCPCandidate{{StartTime: 1500, Size: 10}}}
	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		page := pageFor(url, "<html></html>")
		page.Timings = timings
		return page, nil
	})

	score := 87
	external := &LighthouseMetrics{FCP: "1.0\u00a0s", Score: &score, Source: MetricsSourcePageSpeed}

	t.Run("provider wins", func(t *testing.T) {
		a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r, Metrics: stubMetrics{metrics: external}})
		require.NoError(t, err)
		result := a.AnalyzeURL(context.Background(), "https://shop.test/")
		require.NotNil(t, result.Lighthouse)
		assert.Equal(t, MetricsSourcePageSpeed, result.Lighthouse.Source)
		assert.Equal(t, 87, *result.Lighthouse.Score)
	})

	t.Run("browser metrics on provider failure", func(t *testing.T) {
		a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r, Metrics: stubMetrics{err: errors.New("quota exceeded")}})
		require.NoError(t, err)
		result := a.AnalyzeURL(context.Background(), "https://shop.test/")
		require.NotNil(t, result.Lighthouse)
		assert.Equal(t, MetricsSourceBrowser, result.Lighthouse.Source)
		assert.Equal(t, "0.9\u00a0s", result.Lighthouse.FCP)
		assert.Equal(t, "1.5\u00a0s", result.Lighthouse.LCP)
	})
}

func TestAnalyzeBatch_Order(t *testing.T) {
	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		// Later URLs finish first.
		delay := 30 * time.Millisecond
		if strings.HasSuffix(url, "/3") {
			delay = 0
		}
		time.Sleep(delay)
		return pageFor(url, "<html><head><title>"+url+"</title></head></html>"), nil
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r, Parallelism: 3})
	require.NoError(t, err)

	urls := []string{"https://a.test/1", "https://a.test/2", "https://a.test/3", "https://a.test/1", "not a url at all"}
	batch := a.AnalyzeBatch(context.Background(), urls)

	require.Len(t, batch.Results, len(urls))
	for i, u := range urls {
		assert.Equal(t, u, batch.Results[i].URL)
	}
	assert.Equal(t, "https://a.test/3", batch.Results[2].Title)
	assert.Equal(t, 1, batch.FailedCount())
	assert.Equal(t, 2, r.callsFor("https://a.test/1"), "duplicates are analysed again")
}

func TestAnalyzeBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		cancel()
		return pageFor(url, "<html></html>"), nil
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r})
	require.NoError(t, err)

	batch := a.AnalyzeBatch(ctx, []string{"https://a.test/1", "https://a.test/2", "https://a.test/3"})

	require.Len(t, batch.Results, 3)
	assert.Empty(t, batch.Results[0].Error)
	assert.Equal(t, ErrCancelled.Error(), batch.Results[1].Error)
	assert.Equal(t, ErrCancelled.Error(), batch.Results[2].Error)
	assert.Equal(t, "https://a.test/3", batch.Results[2].URL)
}

func TestAnalyzeBatch_PanicIsReported(t *testing.T) {
	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		if strings.HasSuffix(url, "/boom") {
			panic("renderer exploded")
		}
		return pageFor(url, "<html></html>"), nil
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r})
	require.NoError(t, err)

	batch := a.AnalyzeBatch(context.Background(), []string{"https://a.test/boom", "https://a.test/ok"})

	require.Len(t, batch.Results, 2)
	assert.Equal(t, "https://a.test/boom", batch.Results[0].URL)
	assert.Contains(t, batch.Results[0].Error, ErrPanicked.Error())
	assert.Contains(t, batch.Results[0].Error, "renderer exploded")
	assert.NotContains(t, batch.Results[0].Error, ErrCancelled.Error())
	assert.Empty(t, batch.Results[1].Error, "the pool keeps working after a panic")
}

func TestAnalyzeURL_PlatformSignals(t *testing.T) {
	r := newMockRenderer(func(call int, url string) (*RenderedPage, error) {
		page := pageFor(url, `<html><body><div id="__next"></div><script src="/_next/static/chunks/main.js"></script></body></html>`)
		page.ConnectTime = 15 * time.Millisecond
		return page, nil
	})
	a, err := NewAnalyzer(&AnalyzerConfig{Renderer: r})
	require.NoError(t, err)

	result := a.AnalyzeURL(context.Background(), "https://a.test/")
	assert.Equal(t, PlatformNextJS, result.Platform)
	assert.NotEmpty(t, result.PlatformSignals)
	assert.Equal(t, int64(15), result.ConnectTimeMs)
}
