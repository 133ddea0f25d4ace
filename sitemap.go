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
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"
)

// maxSitemapSize bounds a single (uncompressed) sitemap document.
const maxSitemapSize = 50 * 1024 * 1024

// ExpandSitemaps fetches the given sitemaps and returns the page URLs they
// list, deduplicated and in document order, stopping at limit (0 means no
// limit). Sitemap indexes are followed one level down. A sitemap that cannot
// be fetched is logged and skipped; an error is only returned when none of
// sitemapURLs could be read.
func ExpandSitemaps(ctx context.Context, client *http.Client, sitemapURLs []string, limit int) ([]string, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var urls []string
	seen := make(map[string]bool)
	full := func() bool { return limit > 0 && len(urls) >= limit }
	add := func(locs []string) {
		for _, loc := range locs {
			if full() {
				return
			}
			if !seen[loc] {
				seen[loc] = true
				urls = append(urls, loc)
			}
		}
	}

	var lastErr error
	fetched := 0
	for _, sitemapURL := range sitemapURLs {
		if full() {
			break
		}
		pages, children, err := fetchSitemap(ctx, client, sitemapURL)
		if err != nil {
			log.Printf("Skipping sitemap %s: %v", sitemapURL, err)
			lastErr = err
			continue
		}
		fetched++
		add(pages)

		for _, child := range children {
			if full() {
				break
			}
			childPages, _, err := fetchSitemap(ctx, client, child)
			if err != nil {
				log.Printf("Skipping nested sitemap %s: %v", child, err)
				continue
			}
			add(childPages)
		}
	}

	if fetched == 0 && lastErr != nil {
		return nil, lastErr
	}
	return urls, nil
}

// fetchSitemap returns the page locations of a urlset and the child sitemap
// locations of a sitemapindex.
func fetchSitemap(ctx context.Context, client *http.Client, sitemapURL string) (pages, children []string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, nil, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if strings.HasSuffix(strings.ToLower(sitemapURL), ".gz") || resp.Header.Get("Content-Type") == "application/x-gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decompress sitemap: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	doc, err := xmlquery.Parse(io.LimitReader(body, maxSitemapSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse sitemap: %w", err)
	}

	xmlquery.FindEach(doc, "//*[local-name()='urlset']/*[local-name()='url']/*[local-name()='loc']", func(_ int, n *xmlquery.Node) {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			pages = append(pages, loc)
		}
	})
	xmlquery.FindEach(doc, "//*[local-name()='sitemapindex']/*[local-name()='sitemap']/*[local-name()='loc']", func(_ int, n *xmlquery.Node) {
		if loc := strings.TrimSpace(n.InnerText()); loc != "" {
			children = append(children, loc)
		}
	})

	return pages, children, nil
}
