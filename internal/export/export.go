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

// Package export writes analysis runs as XLSX, CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/agentberlin/pagelens"
	"github.com/agentberlin/pagelens/internal/types"
)

// Supported formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// ResultsSheet is the name of the sheet holding one row per page.
const ResultsSheet = "Results"

// Columns is the header row shared by the XLSX and CSV exports.
var Columns = []string{
	"Address",
	"Final URL",
	"Status Code",
	"Load Time (ms)",
	"Title",
	"Meta Description",
	"JSON-LD",
	"Microdata",
	"RDFa",
	"Invalid JSON-LD",
	"Schema Types",
	"Product Candidates",
	"Products With Price",
	"Product Count",
	"JSON-LD Products",
	"Category Count",
	"API Detected",
	"XHR Count",
	"API Endpoints",
	"Platform",
	"FCP",
	"LCP",
	"TBT",
	"CLS",
	"Speed Index",
	"Performance Score",
	"Metrics Source",
	"Content Hash",
	"Attempts",
	"Fallback",
	"Error",
	"Analyzed At",
}

// ContentType returns the MIME type for format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/json"
	}
}

// ValidFormat reports whether format can be exported.
func ValidFormat(format string) bool {
	return format == FormatXLSX || format == FormatCSV || format == FormatJSON
}

// Write exports run in the given format.
func Write(w io.Writer, format string, run types.RunInfo, results []*pagelens.PageResult) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, run, results)
	case FormatCSV:
		return WriteCSV(w, results)
	case FormatJSON:
		return WriteJSON(w, types.RunDetail{RunInfo: run, Results: results})
	default:
		return fmt.Errorf("unsupported export format %q (expected xlsx, csv or json)", format)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// WriteCSV writes one row per result.
func WriteCSV(w io.Writer, results []*pagelens.PageResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range results {
		row := Row(r)
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a workbook with a Results sheet (header row plus one row
// per page) and a Run sheet describing the run.
func WriteXLSX(w io.Writer, run types.RunInfo, results []*pagelens.PageResult) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ResultsSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, col := range Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	f.SetCellStyle(ResultsSheet, "A1", lastCol+"1", headerStyle)

	for i, col := range Columns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(col) + 5)
		if width < 15 {
			width = 15
		}
		f.SetColWidth(ResultsSheet, colName, colName, width)
	}

	for i, r := range results {
		row := Row(r)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.URL, err)
		}
	}

	if len(results) > 0 {
		f.AutoFilter(ResultsSheet, fmt.Sprintf("A1:%s%d", lastCol, len(results)+1), nil)
	}
	f.SetPanes(ResultsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	addRunSheet(f, run, len(results))

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func addRunSheet(f *excelize.File, run types.RunInfo, pages int) {
	sheetName := "Run"
	f.NewSheet(sheetName)

	created := ""
	if run.CreatedAt > 0 {
		created = time.Unix(run.CreatedAt, 0).UTC().Format(time.RFC3339)
	}

	metadata := [][]interface{}{
		{"Run ID", run.ID},
		{"Request ID", run.RequestID},
		{"Profile", run.Profile},
		{"Rendering", run.Rendering},
		{"Pages", pages},
		{"Failed", run.FailedCount},
		{"Cached", run.CachedCount},
		{"Duration (ms)", run.DurationMs},
		{"Created", created},
	}
	for i, row := range metadata {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", i+1), row[0])
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", i+1), row[1])
	}
	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "B", 45)
}

// Row flattens a result into the cells listed in Columns.
func Row(r *pagelens.PageResult) []interface{} {
	var fcp, lcp, tbt, cls, si, score, source string
	if lh := r.Lighthouse; lh != nil {
		fcp, lcp, tbt, cls, si, source = lh.FCP, lh.LCP, lh.TBT, lh.CLS, lh.SI, lh.Source
		if lh.Score != nil {
			score = strconv.Itoa(*lh.Score)
		}
	}

	analyzedAt := ""
	if !r.AnalyzedAt.IsZero() {
		analyzedAt = r.AnalyzedAt.UTC().Format(time.RFC3339)
	}

	return []interface{}{
		r.URL,
		r.FinalURL,
		r.StatusCode,
		r.LoadTimeMs,
		r.Title,
		r.MetaDescription,
		r.StructuredData.JSONLD,
		r.StructuredData.Microdata,
		r.StructuredData.RDFa,
		r.StructuredData.Invalid,
		strings.Join(r.StructuredData.Types, ", "),
		r.Products.Candidates,
		r.Products.WithPrice,
		r.Products.Count,
		r.Products.JSONLDProducts,
		r.Products.CategoryCount,
		yesNo(r.APIUsage.Detected),
		r.APIUsage.XHRCount,
		strings.Join(r.APIUsage.Endpoints, "\n"),
		r.Platform,
		fcp,
		lcp,
		tbt,
		cls,
		si,
		score,
		source,
		r.ContentHash,
		r.Attempts,
		yesNo(r.Fallback),
		r.Error,
		analyzedAt,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
