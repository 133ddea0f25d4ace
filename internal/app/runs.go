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

package app

import (
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"

	"github.com/agentberlin/pagelens"
	"github.com/agentberlin/pagelens/internal/export"
	"github.com/agentberlin/pagelens/internal/store"
	"github.com/agentberlin/pagelens/internal/types"
)

// ListRuns returns the most recent runs, newest first.
func (a *App) ListRuns(limit int) ([]types.RunInfo, error) {
	if limit <= 0 {
		limit = 20
	}

	runs, err := a.store.ListRuns(limit)
	if err != nil {
		return nil, err
	}

	infos := make([]types.RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, runInfo(&run))
	}
	return infos, nil
}

// GetRun returns a stored run with its results in request order.
func (a *App) GetRun(id uint) (*types.RunDetail, error) {
	run, err := a.store.GetRun(id)
	if err != nil {
		return nil, err
	}

	results := make([]*pagelens.PageResult, 0, len(run.Pages))
	for i := range run.Pages {
		result, err := run.Pages[i].Result()
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return &types.RunDetail{RunInfo: runInfo(run), Results: results}, nil
}

// ResolveRunID turns a run reference into a run ID. The reference is either
// the numeric run ID or the request ID returned by Analyze.
func (a *App) ResolveRunID(ref string) (uint, error) {
	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		return uint(id), nil
	}
	if _, err := uuid.Parse(ref); err != nil {
		return 0, fmt.Errorf("%w: invalid run ID %q", ErrInvalidRequest, ref)
	}

	run, err := a.store.GetRunByRequestID(ref)
	if err != nil {
		return 0, err
	}
	return run.ID, nil
}

// DeleteRun deletes a run and its results.
func (a *App) DeleteRun(id uint) error {
	return a.store.DeleteRun(id)
}

// ExportRun writes run id to w in format (xlsx, csv or json).
func (a *App) ExportRun(id uint, format string, w io.Writer) error {
	if !export.ValidFormat(format) {
		return fmt.Errorf("%w: unsupported export format %q", ErrInvalidRequest, format)
	}

	detail, err := a.GetRun(id)
	if err != nil {
		return err
	}
	return export.Write(w, format, detail.RunInfo, detail.Results)
}

func runInfo(run *store.Run) types.RunInfo {
	return types.RunInfo{
		ID:          run.ID,
		RequestID:   run.RequestID,
		URLCount:    run.URLCount,
		FailedCount: run.FailedCount,
		CachedCount: run.CachedCount,
		DurationMs:  run.DurationMs,
		Profile:     run.Profile,
		Rendering:   run.Rendering,
		CreatedAt:   run.CreatedAt,
	}
}
