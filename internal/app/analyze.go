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
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentberlin/pagelens"
	"github.com/agentberlin/pagelens/internal/store"
	"github.com/agentberlin/pagelens/internal/types"
)

var (
	// ErrNoURLs is returned when a request names no URLs at all.
	ErrNoURLs = errors.New("no URLs to analyze")
	// ErrTooManyURLs is returned when a request exceeds the batch limit.
	ErrTooManyURLs = errors.New("too many URLs")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("invalid request")
)

// errNoMetrics is reported by Lighthouse for pages that rendered without
// any paint.
const errNoMetrics = "no performance metrics available"

// sharedRenderer keeps an injected renderer alive across analyzers.
type sharedRenderer struct {
	pagelens.Renderer
}

func (sharedRenderer) Close() {}

// Analyze runs one analysis request: it expands sitemaps, reuses recent
// results where allowed, analyses the remaining URLs and stores the run.
func (a *App) Analyze(ctx context.Context, req types.AnalyzeRequest) (*types.RunResponse, error) {
	start := time.Now()

	profile, err := pagelens.ProfileByName(a.profileName(req.Profile))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	rendering := a.config.Analyzer.Rendering
	if req.Rendering != nil {
		rendering = *req.Rendering
	}

	urls, err := a.collectURLs(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	if limit := a.config.Server.MaxBatchSize; limit > 0 && len(urls) > limit {
		return nil, fmt.Errorf("%w: %d URLs exceeds the limit of %d", ErrTooManyURLs, len(urls), limit)
	}

	opts, err := a.config.AnalyzerOptions(profile.Name, &rendering)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	opts.Metrics = a.metrics
	opts.HTTPClient = a.httpClient
	if a.renderer != nil {
		opts.Renderer = sharedRenderer{a.renderer}
	}

	results := make([]*pagelens.PageResult, len(urls))
	cached := make([]bool, len(urls))
	if !req.NoCache {
		a.fillFromCache(urls, profile.Name, rendering, results, cached)
	}

	var pending []string
	var pendingIdx []int
	for i, u := range urls {
		if results[i] == nil {
			pending = append(pending, u)
			pendingIdx = append(pendingIdx, i)
		}
	}

	if len(pending) > 0 {
		analyzer, err := pagelens.NewAnalyzer(opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		batch := analyzer.AnalyzeBatch(ctx, pending)
		analyzer.Close()
		for j, r := range batch.Results {
			results[pendingIdx[j]] = r
		}
	}

	cachedCount := len(urls) - len(pending)
	resp := &types.RunResponse{
		RequestID:  uuid.New().String(),
		DurationMs: time.Since(start).Milliseconds(),
		Cached:     cachedCount,
		Results:    results,
	}

	if a.store != nil {
		runID, err := a.saveRun(resp, profile.Name, rendering, cached)
		if err != nil {
			return nil, err
		}
		resp.RunID = runID
	}

	log.Printf("Run %s: analysed %d URLs (%d cached) in %dms", resp.RequestID, len(urls), cachedCount, resp.DurationMs)
	return resp, nil
}

func (a *App) profileName(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return a.config.Analyzer.Profile
}

// collectURLs returns the request's URLs followed by those found in its
// sitemaps.
func (a *App) collectURLs(ctx context.Context, req types.AnalyzeRequest) ([]string, error) {
	urls := append([]string(nil), req.URLs...)

	if len(req.Sitemaps) == 0 {
		return urls, nil
	}

	maxURLs := a.config.Analyzer.MaxSitemapURLs
	if limit := a.config.Server.MaxBatchSize; limit > 0 {
		// One past the limit is enough to reject the request.
		if remaining := limit - len(urls) + 1; maxURLs <= 0 || remaining < maxURLs {
			maxURLs = remaining
		}
	}
	if maxURLs <= 0 {
		return urls, nil
	}

	found, err := pagelens.ExpandSitemaps(ctx, a.httpClient, req.Sitemaps, maxURLs)
	if err != nil {
		if len(urls) == 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		log.Printf("Ignoring sitemaps: %v", err)
	}
	return append(urls, found...), nil
}

// fillFromCache copies recent successful results into results.
func (a *App) fillFromCache(urls []string, profile string, rendering bool, results []*pagelens.PageResult, cached []bool) {
	ttl := a.config.GetCacheTTL()
	if a.store == nil || ttl <= 0 {
		return
	}
	since := time.Now().Add(-ttl).Unix()

	for i, u := range urls {
		page, err := a.store.GetRecentAnalysis(u, profile, rendering, since)
		if err != nil {
			log.Printf("Cache lookup failed for %s: %v", u, err)
			continue
		}
		if page == nil {
			continue
		}
		result, err := page.Result()
		if err != nil {
			log.Printf("Ignoring cached result for %s: %v", u, err)
			continue
		}
		results[i] = result
		cached[i] = true
	}
}

func (a *App) saveRun(resp *types.RunResponse, profile string, rendering bool, cached []bool) (uint, error) {
	run := &store.Run{
		RequestID:   resp.RequestID,
		URLCount:    len(resp.Results),
		CachedCount: resp.Cached,
		DurationMs:  resp.DurationMs,
		Profile:     profile,
		Rendering:   rendering,
	}
	pages := make([]store.PageAnalysis, 0, len(resp.Results))
	for i, r := range resp.Results {
		page, err := store.NewPageAnalysis(i, r, profile, rendering)
		if err != nil {
			return 0, err
		}
		page.Cached = cached[i]
		pages = append(pages, page)
	}

	err := a.store.Transaction(func(tx *store.Store) error {
		if err := tx.CreateRun(run); err != nil {
			return err
		}
		return tx.SavePageAnalyses(run.ID, pages)
	})
	if err != nil {
		return 0, err
	}
	return run.ID, nil
}

// Lighthouse analyses urls and reports the five display metrics for each,
// or the reason they are missing.
func (a *App) Lighthouse(ctx context.Context, urls []string) ([]types.LighthouseEntry, error) {
	entries := make([]types.LighthouseEntry, 0, len(urls))
	if len(urls) == 0 {
		return entries, nil
	}

	resp, err := a.Analyze(ctx, types.AnalyzeRequest{URLs: urls})
	if err != nil {
		return nil, err
	}

	for _, r := range resp.Results {
		entry := types.LighthouseEntry{URL: r.URL}
		switch {
		case r.Error != "":
			entry.Error = r.Error
		case r.Lighthouse == nil:
			entry.Error = errNoMetrics
		default:
			entry.FCP = r.Lighthouse.FCP
			entry.LCP = r.Lighthouse.LCP
			entry.TBT = r.Lighthouse.TBT
			entry.CLS = r.Lighthouse.CLS
			entry.SI = r.Lighthouse.SI
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
