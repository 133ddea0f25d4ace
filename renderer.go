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
	"time"
)

// Renderer loads a page and returns what the analyzers need from it.
// Implementations must honour ctx cancellation and deadlines.
type Renderer interface {
	Render(ctx context.Context, url string, profile *EmulationProfile) (*RenderedPage, error)
	Close()
}

// RenderedPage is the raw output of a single render.
type RenderedPage struct {
	URL             string
	FinalURL        string
	StatusCode      int
	HTML            string
	LoadTime        time.Duration
	TimeToFirstByte time.Duration
	// ConnectTime covers DNS, TCP and TLS setup. Zero when a pooled
	// connection was reused or the page was loaded in a browser.
	ConnectTime time.Duration
	// Requests holds every network request issued by the page, in the
	// order they were sent. Empty for the static renderer.
	Requests []NetworkRequest
	// Timings is nil when the page was not loaded in a browser.
	Timings *PageTimings
}

// NetworkRequest is a single request observed while rendering a page.
type NetworkRequest struct {
	URL          string `json:"url"`
	Method       string `json:"method"`
	ResourceType string `json:"resourceType"`
	Status       int    `json:"status"`
	MimeType     string `json:"mimeType"`
}

// PageTimings holds the performance entries buffered inside the page.
// All values are milliseconds relative to navigation start.
type PageTimings struct {
	DOMContentLoaded     float64        `json:"domContentLoaded"`
	LoadEventEnd         float64        `json:"loadEventEnd"`
	FirstContentfulPaint float64        `json:"fcp"`
	LCPCandidates        []LCPCandidate `json:"lcp"`
	LayoutShifts         []LayoutShift  `json:"cls"`
	LongTasks            []LongTask     `json:"longTasks"`
}

// LCPCandidate is one largest-contentful-paint entry.
type LCPCandidate struct {
	StartTime float64 `json:"startTime"`
	Size      float64 `json:"size"`
}

// LayoutShift is one layout-shift entry.
type LayoutShift struct {
	StartTime      float64 `json:"startTime"`
	Value          float64 `json:"value"`
	HadRecentInput bool    `json:"hadRecentInput"`
}

// LongTask is one longtask entry.
type LongTask struct {
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
}

// observerScript is installed before any page script runs so that buffered
// paint, LCP, layout-shift and longtask entries are kept for later collection.
const observerScript = `(() => {
  const store = window.__pagelens = {fcp: 0, lcp: [], cls: [], longTasks: []};
  const observe = (type, fn) => {
    try {
      new PerformanceObserver(list => list.getEntries().forEach(fn)).observe({type, buffered: true});
    } catch (e) {}
  };
  observe('paint', e => { if (e.name === 'first-contentful-paint') store.fcp = e.startTime; });
  observe('largest-contentful-paint', e => store.lcp.push({startTime: e.startTime, size: e.size}));
  observe('layout-shift', e => store.cls.push({startTime: e.startTime, value: e.value, hadRecentInput: e.hadRecentInput}));
  observe('longtask', e => store.longTasks.push({startTime: e.startTime, duration: e.duration}));
})();`

// collectTimingsScript serialises the observer buffer together with the
// navigation timing entry.
const collectTimingsScript = `JSON.stringify((() => {
  const nav = performance.getEntriesByType('navigation')[0] || {};
  const s = window.__pagelens || {fcp: 0, lcp: [], cls: [], longTasks: []};
  return {
    domContentLoaded: nav.domContentLoadedEventEnd || 0,
    loadEventEnd: nav.loadEventEnd || 0,
    status: nav.responseStatus || 0,
    fcp: s.fcp, lcp: s.lcp, cls: s.cls, longTasks: s.longTasks
  };
})())`

// timingsPayload is the shape produced by collectTimingsScript.
type timingsPayload struct {
	PageTimings
	Status int `json:"status"`
}

// loadTimeMs prefers the browser's own loadEventEnd over the wall-clock
// time measured around navigation.
func loadTimeMs(rendered *RenderedPage) int64 {
	if rendered.Timings != nil && rendered.Timings.LoadEventEnd > 0 {
		return int64(rendered.Timings.LoadEventEnd + 0.5)
	}
	return rendered.LoadTime.Milliseconds()
}
