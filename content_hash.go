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
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
)

// Dynamic fragments that change between loads of an otherwise identical page.
var (
	timestampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})`),
		regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(?::\d{2})? (?:AM|PM)`),
		regexp.MustCompile(`(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2},?\s+\d{4}\s+\d{1,2}:\d{2}`),
	}

	relativeTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+\s+(?:second|minute|hour|day|week|month|year)s?\s+ago`),
		regexp.MustCompile(`(?:just\s+now|moments?\s+ago)`),
	}

	sessionIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:session|request|trace)[-_]?id[:=]\s*["']?[a-f0-9-]{8,}["']?`),
		regexp.MustCompile(`(?i)csrf[-_]?token[:=]\s*["']?[a-zA-Z0-9+/=]{16,}["']?`),
	}
)

// ContentHash fingerprints the visible text of a page. Timestamps, relative
// times and session tokens are masked first, so two renders of the same page
// hash equal even when a clock or counter on it moved.
func ContentHash(doc *goquery.Document) string {
	return hashText(normalizeForHash(visibleText(doc)))
}

func normalizeForHash(text string) string {
	for _, pattern := range timestampPatterns {
		text = pattern.ReplaceAllString(text, "[TIMESTAMP]")
	}
	for _, pattern := range relativeTimePatterns {
		text = pattern.ReplaceAllString(text, "[RELATIVE_TIME]")
	}
	for _, pattern := range sessionIDPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return normalizeWhitespace(text)
}

func hashText(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
