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
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/agentberlin/pagelens/internal/export"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)

	var configPath string
	var limit int
	var jsonOutput bool
	fs.StringVar(&configPath, "config", "", "Path to a YAML config file")
	fs.IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	fs.IntVar(&limit, "n", 20, "Maximum number of runs (shorthand)")
	fs.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	fs.Usage = func() {
		fmt.Println(`Usage: pagelens list [flags]

List the most recent analysis runs.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	coreApp, st, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := coreApp.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get runs: %v", err)
	}

	if jsonOutput {
		return export.WriteJSON(os.Stdout, runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found.")
		return nil
	}

	// Print header
	fmt.Printf("%-8s %-38s %-18s %-8s %-8s %-8s %-10s\n", "Run ID", "Request ID", "Date", "URLs", "Failed", "Profile", "Duration")
	fmt.Println("--------------------------------------------------------------------------------------------------------")

	for _, r := range runs {
		runTime := time.Unix(r.CreatedAt, 0).Format("2006-01-02 15:04")
		fmt.Printf("%-8d %-38s %-18s %-8d %-8d %-8s %-10s\n",
			r.ID, truncate(r.RequestID, 38), runTime, r.URLCount, r.FailedCount, r.Profile, formatDuration(r.DurationMs))
	}

	return nil
}
