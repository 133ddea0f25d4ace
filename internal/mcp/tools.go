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

package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentberlin/pagelens"
	"github.com/agentberlin/pagelens/internal/types"
)

func (s *MCPServer) registerTools() {
	s.logger.Printf("Registering MCP tools...")

	s.registerAnalyzeURLsTool()
	s.registerLighthouseTool()
	s.registerListRunsTool()
	s.registerGetRunTool()

	s.logger.Printf("All MCP tools registered successfully")
}

// PageSummary is the per-page view returned by the tools.
type PageSummary struct {
	URL             string `json:"url"`
	StatusCode      int    `json:"statusCode,omitempty"`
	LoadTimeMs      int64  `json:"loadTimeMs"`
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	StructuredData  int    `json:"structuredData"`
	JSONLD          int    `json:"jsonLd"`
	Microdata       int    `json:"microdata"`
	RDFa            int    `json:"rdfa"`
	ProductCount    int    `json:"productCount"`
	CategoryCount   int    `json:"categoryCount"`
	APIDetected     bool   `json:"apiDetected"`
	XHRCount        int    `json:"xhrCount"`
	Platform        string `json:"platform,omitempty"`
	FCP             string `json:"fcp,omitempty"`
	LCP             string `json:"lcp,omitempty"`
	TBT             string `json:"tbt,omitempty"`
	CLS             string `json:"cls,omitempty"`
	SI              string `json:"si,omitempty"`
	Fallback        bool   `json:"fallback,omitempty"`
	Error           string `json:"error,omitempty"`
}

func summarize(results []*pagelens.PageResult) []PageSummary {
	pages := make([]PageSummary, 0, len(results))
	for _, r := range results {
		page := PageSummary{
			URL:             r.URL,
			StatusCode:      r.StatusCode,
			LoadTimeMs:      r.LoadTimeMs,
			Title:           r.Title,
			MetaDescription: r.MetaDescription,
			StructuredData:  r.StructuredData.Total(),
			JSONLD:          r.StructuredData.JSONLD,
			Microdata:       r.StructuredData.Microdata,
			RDFa:            r.StructuredData.RDFa,
			ProductCount:    r.Products.Count,
			CategoryCount:   r.Products.CategoryCount,
			APIDetected:     r.APIUsage.Detected,
			XHRCount:        r.APIUsage.XHRCount,
			Platform:        r.Platform,
			Fallback:        r.Fallback,
			Error:           r.Error,
		}
		if lh := r.Lighthouse; lh != nil {
			page.FCP, page.LCP, page.TBT, page.CLS, page.SI = lh.FCP, lh.LCP, lh.TBT, lh.CLS, lh.SI
		}
		pages = append(pages, page)
	}
	return pages
}

func textResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// AnalyzeURLsArgs defines the input schema for analyze_urls tool
type AnalyzeURLsArgs struct {
	URLs      []string `json:"urls" jsonschema:"pages to analyze"`
	Sitemaps  []string `json:"sitemaps,omitempty" jsonschema:"sitemaps whose URLs are analyzed too"`
	Profile   string   `json:"profile,omitempty" jsonschema:"emulation profile: mobile, desktop or none"`
	Rendering *bool    `json:"rendering,omitempty" jsonschema:"render in headless Chrome (default from config)"`
}

// AnalyzeURLsResult defines the output schema for analyze_urls tool
type AnalyzeURLsResult struct {
	Success    bool          `json:"success"`
	RunID      uint          `json:"runId,omitempty"`
	RequestID  string        `json:"requestId,omitempty"`
	DurationMs int64         `json:"durationMs,omitempty"`
	Cached     int           `json:"cached,omitempty"`
	Pages      []PageSummary `json:"pages,omitempty"`
	Message    string        `json:"message"`
}

func (s *MCPServer) registerAnalyzeURLsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_urls",
		Description: "Renders each URL and reports load time, title, meta description, structured data, product counts, API usage and performance metrics",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args AnalyzeURLsArgs) (*mcp.CallToolResult, AnalyzeURLsResult, error) {
		s.logger.Printf("Tool called: analyze_urls for %d URLs", len(args.URLs))

		resp, err := s.app.Analyze(ctx, types.AnalyzeRequest{
			URLs:      args.URLs,
			Sitemaps:  args.Sitemaps,
			Profile:   args.Profile,
			Rendering: args.Rendering,
		})
		if err != nil {
			return nil, AnalyzeURLsResult{
				Success: false,
				Message: fmt.Sprintf("Analysis failed: %v", err),
			}, nil
		}

		failed := 0
		for _, r := range resp.Results {
			if r.Failed() {
				failed++
			}
		}

		return textResult("Analyzed %d URLs (%d failed, %d cached) in run %d", len(resp.Results), failed, resp.Cached, resp.RunID),
			AnalyzeURLsResult{
				Success:    true,
				RunID:      resp.RunID,
				RequestID:  resp.RequestID,
				DurationMs: resp.DurationMs,
				Cached:     resp.Cached,
				Pages:      summarize(resp.Results),
				Message:    "Analysis completed",
			}, nil
	})
}

// LighthouseArgs defines the input schema for lighthouse tool
type LighthouseArgs struct {
	URLs []string `json:"urls" jsonschema:"pages to measure"`
}

// LighthouseResult defines the output schema for lighthouse tool
type LighthouseResult struct {
	Success bool                    `json:"success"`
	Results []types.LighthouseEntry `json:"results,omitempty"`
	Message string                  `json:"message"`
}

func (s *MCPServer) registerLighthouseTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "lighthouse",
		Description: "Reports FCP, LCP, TBT, CLS and Speed Index display values for each URL",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args LighthouseArgs) (*mcp.CallToolResult, LighthouseResult, error) {
		s.logger.Printf("Tool called: lighthouse for %d URLs", len(args.URLs))

		entries, err := s.app.Lighthouse(ctx, args.URLs)
		if err != nil {
			return nil, LighthouseResult{
				Success: false,
				Message: fmt.Sprintf("Lighthouse run failed: %v", err),
			}, nil
		}

		return textResult("Measured %d URLs", len(entries)), LighthouseResult{
			Success: true,
			Results: entries,
			Message: "Measurement completed",
		}, nil
	})
}

// ListRunsArgs defines the input schema for list_runs tool
type ListRunsArgs struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of runs (default 20)"`
}

// ListRunsResult defines the output schema for list_runs tool
type ListRunsResult struct {
	Success bool            `json:"success"`
	Runs    []types.RunInfo `json:"runs,omitempty"`
	Message string          `json:"message"`
}

func (s *MCPServer) registerListRunsTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_runs",
		Description: "Lists the most recent analysis runs, newest first",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args ListRunsArgs) (*mcp.CallToolResult, ListRunsResult, error) {
		s.logger.Printf("Tool called: list_runs")

		runs, err := s.app.ListRuns(args.Limit)
		if err != nil {
			return nil, ListRunsResult{
				Success: false,
				Message: fmt.Sprintf("Failed to list runs: %v", err),
			}, nil
		}

		return textResult("Found %d runs", len(runs)), ListRunsResult{
			Success: true,
			Runs:    runs,
			Message: "Runs retrieved",
		}, nil
	})
}

// GetRunArgs defines the input schema for get_run tool
type GetRunArgs struct {
	RunID uint `json:"runId" jsonschema:"id of the run"`
}

// GetRunResult defines the output schema for get_run tool
type GetRunResult struct {
	Success bool          `json:"success"`
	Run     types.RunInfo `json:"run"`
	Pages   []PageSummary `json:"pages,omitempty"`
	Message string        `json:"message"`
}

func (s *MCPServer) registerGetRunTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_run",
		Description: "Returns the stored results of an analysis run",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args GetRunArgs) (*mcp.CallToolResult, GetRunResult, error) {
		s.logger.Printf("Tool called: get_run for run %d", args.RunID)

		detail, err := s.app.GetRun(args.RunID)
		if err != nil {
			return nil, GetRunResult{
				Success: false,
				Message: fmt.Sprintf("Failed to get run: %v", err),
			}, nil
		}

		return textResult("Run %d has %d pages", detail.RunInfo.ID, len(detail.Results)), GetRunResult{
			Success: true,
			Run:     detail.RunInfo,
			Pages:   summarize(detail.Results),
			Message: "Run retrieved",
		}, nil
	})
}
