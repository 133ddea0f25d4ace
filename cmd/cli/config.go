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

	"github.com/agentberlin/pagelens/internal/config"
)

func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)

	var configPath, output string
	var force bool
	fs.StringVar(&configPath, "config", "", "Path to a YAML config file to start from")
	fs.StringVar(&output, "output", "pagelens.yaml", "File to write")
	fs.StringVar(&output, "o", "pagelens.yaml", "File to write (shorthand)")
	fs.BoolVar(&force, "force", false, "Overwrite an existing file")

	fs.Usage = func() {
		fmt.Println(`Usage: pagelens config [flags]

Write the effective configuration (defaults, config file and environment
overrides) to a YAML file, ready to be edited and passed back with -config.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}

	if !force {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists, use -force to overwrite", output)
		}
	}
	if err := cfg.Save(output); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Wrote %s\n", output)
	return nil
}
