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

package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Transaction runs fn against a store bound to a single database
// transaction. Returning an error from fn rolls everything back.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// CreateRun inserts run without its pages.
func (s *Store) CreateRun(run *Run) error {
	pages := run.Pages
	run.Pages = nil
	defer func() { run.Pages = pages }()

	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run: %v", err)
	}
	return nil
}

// SavePageAnalyses stores pages for runID and refreshes the run's failure
// count.
func (s *Store) SavePageAnalyses(runID uint, pages []PageAnalysis) error {
	if len(pages) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		failed := 0
		for i := range pages {
			pages[i].RunID = runID
			if pages[i].Error != "" {
				failed++
			}
		}

		if err := tx.CreateInBatches(pages, 100).Error; err != nil {
			return fmt.Errorf("failed to save page analyses: %v", err)
		}

		return tx.Model(&Run{}).Where("id = ?", runID).
			Update("failed_count", gorm.Expr("failed_count + ?", failed)).Error
	})
}

// GetRun returns a run with its pages in request order.
func (s *Store) GetRun(id uint) (*Run, error) {
	var run Run
	result := s.db.Preload("Pages", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	}).First(&run, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %d %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %v", result.Error)
	}
	return &run, nil
}

// GetRunByRequestID looks a run up by its request ID.
func (s *Store) GetRunByRequestID(requestID string) (*Run, error) {
	var run Run
	result := s.db.Where("request_id = ?", requestID).First(&run)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("run %s %w", requestID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run: %v", result.Error)
	}
	return s.GetRun(run.ID)
}

// ListRuns returns the most recent runs first, without pages. A limit <= 0
// returns every run.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	query := s.db.Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %v", err)
	}
	return runs, nil
}

// DeleteRun deletes a run and all its page analyses.
func (s *Store) DeleteRun(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&PageAnalysis{}).Error; err != nil {
			return fmt.Errorf("failed to delete page analyses: %v", err)
		}
		result := tx.Delete(&Run{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete run: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("run %d %w", id, ErrNotFound)
		}
		return nil
	})
}

// GetRecentAnalysis returns the newest error-free analysis of url made with
// the same profile and rendering mode at or after since (unix seconds), or
// nil when there is none. Rows that were themselves copied from an earlier
// run are ignored.
func (s *Store) GetRecentAnalysis(url, profile string, rendering bool, since int64) (*PageAnalysis, error) {
	var page PageAnalysis
	result := s.db.
		Where("url = ? AND profile = ? AND rendering = ? AND error = ? AND fallback = ? AND cached = ? AND created_at >= ?",
			url, profile, rendering, "", false, false, since).
		Order("created_at DESC, id DESC").
		First(&page)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recent analysis: %v", result.Error)
	}
	return &page, nil
}
