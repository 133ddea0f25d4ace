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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kennygrant/sanitize"

	"github.com/agentberlin/pagelens/internal/export"
	"github.com/agentberlin/pagelens/internal/types"
)

// analyzeFlags holds all the flags for the analyze command
type analyzeFlags struct {
	configPath string
	profile    string
	noRender   bool
	noCache    bool
	sitemaps   string
	format     string
	output     string
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)

	var flags analyzeFlags
	fs.StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&flags.profile, "profile", "", "Emulation profile: mobile, desktop, none (default from config)")
	fs.BoolVar(&flags.noRender, "no-render", false, "Fetch pages over plain HTTP instead of headless Chrome")
	fs.BoolVar(&flags.noCache, "no-cache", false, "Ignore recent results stored for the same URLs")
	fs.StringVar(&flags.sitemaps, "sitemap", "", "Comma-separated sitemap URLs whose pages are analysed too")
	fs.StringVar(&flags.format, "format", "json", "Output format: json, xlsx, csv")
	fs.StringVar(&flags.format, "f", "json", "Output format (shorthand)")
	fs.StringVar(&flags.output, "output", "", "Output file (default stdout; xlsx defaults to a file named after the run)")
	fs.StringVar(&flags.output, "o", "", "Output file (shorthand)")

	fs.Usage = func() {
		fmt.Println(`Usage: pagelens analyze [flags] <url> [url...]

Analyze the given URLs and store the run.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	flags.format = strings.ToLower(flags.format)
	if !export.ValidFormat(flags.format) {
		return fmt.Errorf("unsupported format %q (expected json, xlsx or csv)", flags.format)
	}

	req := types.AnalyzeRequest{
		URLs:    fs.Args(),
		Profile: flags.profile,
		NoCache: flags.noCache,
	}
	if flags.sitemaps != "" {
		for _, s := range strings.Split(flags.sitemaps, ",") {
			if s = strings.TrimSpace(s); s != "" {
				req.Sitemaps = append(req.Sitemaps, s)
			}
		}
	}
	if len(req.URLs) == 0 && len(req.Sitemaps) == 0 {
		fs.Usage()
		return fmt.Errorf("at least one URL or -sitemap is required")
	}
	if flags.noRender {
		rendering := false
		req.Rendering = &rendering
	}

	coreApp, st, err := openApp(flags.configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp, err := coreApp.Analyze(ctx, req)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range resp.Results {
		if r.Failed() {
			failed++
		}
	}
	fmt.Fprintf(os.Stderr, "Run %d: %d URLs, %d failed, %d cached, %s\n",
		resp.RunID, len(resp.Results), failed, resp.Cached, formatDuration(resp.DurationMs))

	outputPath := flags.output
	if outputPath == "" && flags.format == export.FormatXLSX {
		outputPath = sanitize.BaseName("pagelens-"+resp.RequestID) + ".xlsx"
	}

	out, err := createOutput(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %v", err)
	}
	defer out.Close()

	if err := coreApp.ExportRun(resp.RunID, flags.format, out); err != nil {
		return err
	}
	if outputPath != "" && outputPath != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %s\n", outputPath)
	}
	return nil
}
