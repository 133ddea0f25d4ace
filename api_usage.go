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
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gobwas/glob"
)

// maxEndpoints caps APIUsage.Endpoints.
const maxEndpoints = 25

// APIUsage describes how much a page talks to APIs from the browser.
type APIUsage struct {
	Detected  bool     `json:"detected"`
	XHRCount  int      `json:"xhrCount"`
	Endpoints []string `json:"endpoints,omitempty"`
	Signals   []string `json:"signals,omitempty"`
}

// DefaultAPIPatterns are the URL globs treated as API endpoints.
var DefaultAPIPatterns = []string{
	"*/api/*",
	"*/graphql*",
	"*.json",
	"*.json?*",
	"*/wp-json/*",
	"*/rest/*",
	"*/v[0-9]/*",
}

// scriptSignals are looked for in inline scripts, keyed by the reported name.
var scriptSignals = []struct {
	name    string
	needles []string
}{
	{"fetch", []string{"fetch("}},
	{"XMLHttpRequest", []string{"XMLHttpRequest"}},
	{"axios", []string{"axios"}},
	{"jquery-ajax", []string{"$.ajax", "jQuery.ajax", "$.getJSON", "$.post("}},
	{"graphql", []string{"graphql", "__typename"}},
}

var quotedURLPattern = regexp.MustCompile("[\"'`]((?:https?:)?/[^\"'`\\s<>]+)[\"'`]")

type apiDetector struct {
	patterns []glob.Glob
}

func newAPIDetector(patterns []string) (*apiDetector, error) {
	if len(patterns) == 0 {
		patterns = DefaultAPIPatterns
	}
	d := &apiDetector{patterns: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid API pattern %q: %w", p, err)
		}
		d.patterns = append(d.patterns, g)
	}
	return d, nil
}

// isEndpoint reports whether rawURL matches any API pattern.
func (d *apiDetector) isEndpoint(rawURL string) bool {
	for _, g := range d.patterns {
		if g.Match(rawURL) {
			return true
		}
	}
	return false
}

// Detect combines the requests captured while rendering with what the
// page's inline scripts reveal.
func (d *apiDetector) Detect(doc *goquery.Document, requests []NetworkRequest) APIUsage {
	var usage APIUsage
	seen := make(map[string]bool)
	addEndpoint := func(u string) {
		if seen[u] || len(usage.Endpoints) >= maxEndpoints {
			return
		}
		seen[u] = true
		usage.Endpoints = append(usage.Endpoints, u)
	}

	for _, req := range requests {
		if req.ResourceType == "XHR" || req.ResourceType == "Fetch" {
			usage.XHRCount++
		}
		if req.ResourceType != "Document" && d.isEndpoint(req.URL) {
			addEndpoint(req.URL)
		}
	}

	found := make(map[string]bool)
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		scriptType := strings.ToLower(s.AttrOr("type", ""))
		if strings.Contains(scriptType, "json") {
			return
		}
		code := s.Text()
		for _, sig := range scriptSignals {
			for _, needle := range sig.needles {
				if strings.Contains(code, needle) {
					found[sig.name] = true
					break
				}
			}
		}
		for _, m := range quotedURLPattern.FindAllStringSubmatch(code, -1) {
			if d.isEndpoint(m[1]) {
				addEndpoint(m[1])
			}
		}
	})

	for _, sig := range scriptSignals {
		if found[sig.name] {
			usage.Signals = append(usage.Signals, sig.name)
		}
	}

	usage.Detected = usage.XHRCount > 0 || len(usage.Endpoints) > 0
	return usage
}
