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

package pagelens

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Where a LighthouseMetrics value came from.
const (
	MetricsSourceBrowser   = "browser"
	MetricsSourcePageSpeed = "pagespeed"
)

const (
	longTaskBlockingThreshold = 50.0
	clsSessionGap             = 1000.0
	clsSessionMaxSpan         = 5000.0
)

// LighthouseMetrics are the Lighthouse performance metrics of a page. The
// string fields are display values formatted the way Lighthouse reports
// them; an empty string means the metric was not available.
type LighthouseMetrics struct {
	FCP string `json:"fcp"`
	LCP string `json:"lcp"`
	TBT string `json:"tbt"`
	CLS string `json:"cls"`
	SI  string `json:"si"`

	FCPMs    float64 `json:"fcpMs"`
	LCPMs    float64 `json:"lcpMs"`
	TBTMs    float64 `json:"tbtMs"`
	SIMs     float64 `json:"siMs"`
	CLSValue float64 `json:"clsValue"`

	// Score is the Lighthouse performance score (0-100), only known when the
	// metrics came from a real Lighthouse run.
	Score  *int   `json:"score,omitempty"`
	Source string `json:"source"`
}

// ComputeMetrics derives Lighthouse-style metrics from the performance
// entries buffered in the page. It returns nil when nothing was painted.
func ComputeMetrics(t *PageTimings) *LighthouseMetrics {
	if t == nil || (t.FirstContentfulPaint <= 0 && len(t.LCPCandidates) == 0) {
		return nil
	}

	m := &LighthouseMetrics{Source: MetricsSourceBrowser}

	fcp := t.FirstContentfulPaint
	if fcp > 0 {
		m.FCPMs = fcp
		m.FCP = FormatSeconds(fcp)
	}

	candidates := append([]LCPCandidate(nil), t.LCPCandidates...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].StartTime < candidates[j].StartTime
	})
	if len(candidates) > 0 {
		m.LCPMs = candidates[len(candidates)-1].StartTime
		m.LCP = FormatSeconds(m.LCPMs)
	}

	m.TBTMs = totalBlockingTime(t.LongTasks, fcp)
	m.TBT = FormatMilliseconds(m.TBTMs)

	m.CLSValue = cumulativeLayoutShift(t.LayoutShifts)
	m.CLS = FormatCLS(m.CLSValue)

	m.SIMs = speedIndex(candidates, fcp)
	if m.SIMs > 0 {
		m.SI = FormatSeconds(m.SIMs)
	}

	return m
}

// totalBlockingTime sums the part of each long task beyond 50ms, counting
// only the portion of a task that runs after first contentful paint.
func totalBlockingTime(tasks []LongTask, fcp float64) float64 {
	total := 0.0
	for _, task := range tasks {
		start := task.StartTime
		end := start + task.Duration
		if end <= fcp {
			continue
		}
		if start < fcp {
			start = fcp
		}
		if blocking := end - start - longTaskBlockingThreshold; blocking > 0 {
			total += blocking
		}
	}
	return total
}

// cumulativeLayoutShift returns the largest session window of layout shifts.
// A window ends after a 1s gap between shifts or once it spans 5s. Shifts
// right after user input are ignored.
func cumulativeLayoutShift(shifts []LayoutShift) float64 {
	sorted := make([]LayoutShift, 0, len(shifts))
	for _, s := range shifts {
		if !s.HadRecentInput {
			sorted = append(sorted, s)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})

	var maxWindow, window, windowStart, last float64
	for i, s := range sorted {
		if i == 0 || s.StartTime-last >= clsSessionGap || s.StartTime-windowStart >= clsSessionMaxSpan {
			window = 0
			windowStart = s.StartTime
		}
		window += s.Value
		last = s.StartTime
		if window > maxWindow {
			maxWindow = window
		}
	}
	return maxWindow
}

// speedIndex estimates Speed Index from the LCP candidates, treating the
// candidate size relative to the final one as visual completeness:
// SI = t0 + sum((1 - s_i/s_final) * (t_i+1 - t_i)). It is never below FCP
// and falls back to FCP without candidates.
func speedIndex(candidates []LCPCandidate, fcp float64) float64 {
	if len(candidates) == 0 {
		return fcp
	}

	final := candidates[len(candidates)-1]
	if final.Size <= 0 {
		return math.Max(final.StartTime, fcp)
	}

	si := candidates[0].StartTime
	for i := 0; i < len(candidates)-1; i++ {
		progress := math.Min(candidates[i].Size/final.Size, 1)
		si += (1 - progress) * (candidates[i+1].StartTime - candidates[i].StartTime)
	}
	return math.Max(si, fcp)
}

// FormatSeconds renders milliseconds as Lighthouse does for paint metrics,
// e.g. "1.2 s" with a non-breaking space.
func FormatSeconds(ms float64) string {
	return fmt.Sprintf("%.1f\u00a0s", ms/1000)
}

// FormatMilliseconds renders milliseconds rounded to 10, e.g. "1,230 ms".
func FormatMilliseconds(ms float64) string {
	rounded := int64(math.Round(ms/10) * 10)
	return groupThousands(rounded) + "\u00a0ms"
}

// FormatCLS renders a layout shift score with up to three decimals.
func FormatCLS(value float64) string {
	s := strconv.FormatFloat(math.Round(value*1000)/1000, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
