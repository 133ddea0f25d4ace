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
	"strings"
)

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)

	var configPath, format, output string
	fs.StringVar(&configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&format, "format", "xlsx", "Output format: xlsx, csv, json")
	fs.StringVar(&format, "f", "xlsx", "Output format (shorthand)")
	fs.StringVar(&output, "output", "", "Output file (default pagelens-run-<id>.<format>, - for stdout)")
	fs.StringVar(&output, "o", "", "Output file (shorthand)")

	fs.Usage = func() {
		fmt.Println(`Usage: pagelens export [flags] <run-id>

Export the results of a stored run. <run-id> is the numeric run ID or the
request ID printed by analyze.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("run ID is required")
	}
	coreApp, st, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := coreApp.ResolveRunID(fs.Arg(0))
	if err != nil {
		return err
	}

	format = strings.ToLower(format)
	if output == "" {
		output = fmt.Sprintf("pagelens-run-%d.%s", runID, format)
	}

	out, err := createOutput(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %v", err)
	}

	if err := coreApp.ExportRun(runID, format, out); err != nil {
		out.Close()
		if output != "-" {
			os.Remove(output)
		}
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if output != "-" {
		fmt.Fprintf(os.Stderr, "Exported run %d to %s\n", runID, output)
	}
	return nil
}
