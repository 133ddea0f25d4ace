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
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentberlin/pagelens/internal/config"
)

func TestRunConfig_WritesEffectiveConfig(t *testing.T) {
	t.Setenv("PORT", "4100")
	output := filepath.Join(t.TempDir(), "pagelens.yaml")

	if err := runConfig([]string{"-o", output}); err != nil {
		t.Fatalf("runConfig() failed: %v", err)
	}

	t.Setenv("PORT", "")
	cfg, err := config.Load(output)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Expected the environment override to be written, got port %d", cfg.Server.Port)
	}

	err = runConfig([]string{"-o", output})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("Expected an existing file to be kept, got %v", err)
	}
	if err := runConfig([]string{"-o", output, "-force"}); err != nil {
		t.Errorf("runConfig(-force) failed: %v", err)
	}
}
