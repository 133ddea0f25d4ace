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

// pagelens CLI
//
// Command-line interface for pagelens. Analyses pages locally and manages
// the stored run history.
//
// Usage:
//
//	pagelens <command> [flags]
//
// Commands:
//
//	analyze   Analyze one or more URLs
//	list      List recent runs
//	export    Export a run to XLSX, CSV or JSON
//	mcp       Serve the MCP tools over HTTP
//	config    Write the effective configuration to a YAML file
//	version   Show version information
package main

import (
	"fmt"
	"os"

	"github.com/agentberlin/pagelens/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	var err error
	switch command {
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version", "-v", "--version":
		fmt.Printf("pagelens CLI %s\n", version.CurrentVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pagelens CLI - page analysis for SEO and performance

Usage:
  pagelens <command> [flags]

Commands:
  analyze   Analyze one or more URLs
  list      List recent runs
  export    Export a run to XLSX, CSV or JSON
  mcp       Serve the MCP tools over HTTP
  config    Write the effective configuration to a YAML file
  version   Show version information
  help      Show this help message

Examples:
  # Analyze two pages with the desktop profile
  pagelens analyze -profile desktop https://example.com https://example.com/shop

  # Analyze without a browser and write a spreadsheet
  pagelens analyze -no-render -format xlsx -o report.xlsx https://example.com

  # List the last 10 runs
  pagelens list -limit 10

  # Export a stored run
  pagelens export -format csv -o run.csv 12

  # Start a config file from the defaults
  pagelens config -o pagelens.yaml

Use "pagelens <command> -h" for more information about a command.`)
}
