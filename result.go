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

import "time"

// PageResult is the analysis output for a single URL.
type PageResult struct {
	URL             string               `json:"url"`
	FinalURL        string               `json:"finalUrl,omitempty"`
	StatusCode      int                  `json:"statusCode,omitempty"`
	LoadTimeMs      int64                `json:"loadTimeMs"`
	TimeToFirstByte int64                `json:"ttfbMs,omitempty"`
	ConnectTimeMs   int64                `json:"connectMs,omitempty"`
	Title           string               `json:"title"`
	MetaDescription string               `json:"metaDescription"`
	StructuredData  StructuredDataCounts `json:"structuredData"`
	Products        ProductCounts        `json:"products"`
	APIUsage        APIUsage             `json:"apiUsage"`
	Platform        string               `json:"platform,omitempty"`
	PlatformSignals []string             `json:"platformSignals,omitempty"`
	Lighthouse      *LighthouseMetrics   `json:"lighthouse,omitempty"`
	ContentHash     string               `json:"contentHash,omitempty"`
	Attempts        int                  `json:"attempts"`
	// Fallback is set when the payload came from configuration because
	// every render attempt failed.
	Fallback   bool      `json:"fallback,omitempty"`
	Error      string    `json:"error,omitempty"`
	AnalyzedAt time.Time `json:"analyzedAt"`
}

// Failed reports whether the page could not be analysed.
func (r *PageResult) Failed() bool {
	return r.Error != ""
}

// BatchResult holds the results of AnalyzeBatch in input order.
type BatchResult struct {
	Results  []*PageResult `json:"results"`
	Duration time.Duration `json:"-"`
}

// FailedCount returns the number of results carrying an error.
func (b *BatchResult) FailedCount() int {
	failed := 0
	for _, r := range b.Results {
		if r.Failed() {
			failed++
		}
	}
	return failed
}
