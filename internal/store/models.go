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
	"encoding/json"
	"fmt"

	"github.com/agentberlin/pagelens"
)

// Run is one analysis request: a batch of URLs analysed together.
type Run struct {
	ID          uint           `gorm:"primaryKey"`
	RequestID   string         `gorm:"uniqueIndex;not null"`
	URLCount    int            `gorm:"not null"`
	FailedCount int            `gorm:"not null;default:0"`
	CachedCount int            `gorm:"not null;default:0"` // results served from earlier runs
	DurationMs  int64          `gorm:"not null"`
	Profile     string         `gorm:"not null"`
	Rendering   bool           `gorm:"not null"`
	Pages       []PageAnalysis `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt   int64          `gorm:"autoCreateTime"`
}

// PageAnalysis is the stored result for one URL of a run. The columns hold
// the values most useful for listing and filtering; ResultJSON keeps the
// complete result.
type PageAnalysis struct {
	ID              uint   `gorm:"primaryKey"`
	RunID           uint   `gorm:"not null;index"`
	Position        int    `gorm:"not null"` // index of the URL in the request
	URL             string `gorm:"not null;index"`
	FinalURL        string `gorm:"type:text"`
	StatusCode      int    `gorm:"default:0"`
	LoadTimeMs      int64  `gorm:"default:0"`
	Title           string `gorm:"type:text"`
	MetaDescription string `gorm:"type:text"`
	JSONLDCount     int    `gorm:"default:0"`
	MicrodataCount  int    `gorm:"default:0"`
	RDFaCount       int    `gorm:"default:0"`
	ProductCount    int    `gorm:"default:0"`
	CategoryCount   int    `gorm:"default:0"`
	APIDetected     bool   `gorm:"default:false"`
	XHRCount        int    `gorm:"default:0"`
	Platform        string `gorm:"type:text"`
	FCP             string `gorm:"type:text"`
	LCP             string `gorm:"type:text"`
	TBT             string `gorm:"type:text"`
	CLS             string `gorm:"type:text"`
	SI              string `gorm:"type:text"`
	ContentHash     string `gorm:"type:text;index"`
	Attempts        int    `gorm:"default:0"`
	Fallback        bool   `gorm:"default:false"`
	Cached          bool   `gorm:"default:false"` // copied from an earlier run
	Error           string `gorm:"type:text"`
	Profile         string `gorm:"not null;index"`
	Rendering       bool   `gorm:"not null"`
	ResultJSON      string `gorm:"type:text"`
	CreatedAt       int64  `gorm:"autoCreateTime;index"`
}

// NewPageAnalysis flattens result into a row.
func NewPageAnalysis(position int, result *pagelens.PageResult, profile string, rendering bool) (PageAnalysis, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return PageAnalysis{}, fmt.Errorf("failed to encode result for %s: %v", result.URL, err)
	}

	page := PageAnalysis{
		Position:        position,
		URL:             result.URL,
		FinalURL:        result.FinalURL,
		StatusCode:      result.StatusCode,
		LoadTimeMs:      result.LoadTimeMs,
		Title:           result.Title,
		MetaDescription: result.MetaDescription,
		JSONLDCount:     result.StructuredData.JSONLD,
		MicrodataCount:  result.StructuredData.Microdata,
		RDFaCount:       result.StructuredData.RDFa,
		ProductCount:    result.Products.Count,
		CategoryCount:   result.Products.CategoryCount,
		APIDetected:     result.APIUsage.Detected,
		XHRCount:        result.APIUsage.XHRCount,
		Platform:        result.Platform,
		ContentHash:     result.ContentHash,
		Attempts:        result.Attempts,
		Fallback:        result.Fallback,
		Error:           result.Error,
		Profile:         profile,
		Rendering:       rendering,
		ResultJSON:      string(data),
	}
	if lh := result.Lighthouse; lh != nil {
		page.FCP, page.LCP, page.TBT, page.CLS, page.SI = lh.FCP, lh.LCP, lh.TBT, lh.CLS, lh.SI
	}
	return page, nil
}

// Result decodes the complete stored result.
func (p *PageAnalysis) Result() (*pagelens.PageResult, error) {
	var result pagelens.PageResult
	if err := json.Unmarshal([]byte(p.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored result %d: %v", p.ID, err)
	}
	return &result, nil
}
