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

package types

import "github.com/agentberlin/pagelens"

// AnalyzeRequest is the body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	URLs      []string `json:"urls"`
	Sitemaps  []string `json:"sitemaps,omitempty"`
	Profile   string   `json:"profile,omitempty"`   // mobile, desktop or none
	Rendering *bool    `json:"rendering,omitempty"` // nil uses the configured mode
	// NoCache forces a fresh analysis even when a recent result exists.
	NoCache bool `json:"noCache,omitempty"`
}

// RunResponse is the outcome of one analysis request.
type RunResponse struct {
	RunID      uint                   `json:"runId"`
	RequestID  string                 `json:"requestId"`
	DurationMs int64                  `json:"durationMs"`
	Cached     int                    `json:"cached"`
	Results    []*pagelens.PageResult `json:"results"`
}

// RunInfo summarises a stored run.
type RunInfo struct {
	ID          uint   `json:"id"`
	RequestID   string `json:"requestId"`
	URLCount    int    `json:"urlCount"`
	FailedCount int    `json:"failedCount"`
	CachedCount int    `json:"cachedCount"`
	DurationMs  int64  `json:"durationMs"`
	Profile     string `json:"profile"`
	Rendering   bool   `json:"rendering"`
	CreatedAt   int64  `json:"createdAt"`
}

// RunDetail is a stored run with all of its results.
type RunDetail struct {
	RunInfo RunInfo                `json:"run"`
	Results []*pagelens.PageResult `json:"results"`
}

// LighthouseEntry is one element of the /lighthouse response: either the
// five display metrics or an error.
type LighthouseEntry struct {
	URL   string `json:"url"`
	FCP   string `json:"fcp,omitempty"`
	LCP   string `json:"lcp,omitempty"`
	TBT   string `json:"tbt,omitempty"`
	CLS   string `json:"cls,omitempty"`
	SI    string `json:"si,omitempty"`
	Error string `json:"error,omitempty"`
}

// SystemHealthCheck represents the result of system dependency checks
type SystemHealthCheck struct {
	IsHealthy  bool   `json:"isHealthy"`
	ErrorTitle string `json:"errorTitle,omitempty"`
	ErrorMsg   string `json:"errorMsg,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}
