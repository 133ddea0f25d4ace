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
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func TestContentHash_Format(t *testing.T) {
	hash := ContentHash(mustDoc(t, `<html><body><p>Hello</p></body></html>`))
	if len(hash) != 16 {
		t.Fatalf("expected 16 hex chars, got %q", hash)
	}
	if strings.Trim(hash, "0123456789abcdef") != "" {
		t.Errorf("expected lower-case hex, got %q", hash)
	}
}

func TestContentHash_IgnoresMarkupAndScripts(t *testing.T) {
	a := mustDoc(t, `<html><head><title>A</title><script>var x = 1;</script></head>
		<body><div><p>Hello   world</p></div><style>p{color:red}</style></body></html>`)
	b := mustDoc(t, `<html><head><title>B</title></head>
		<body><section><span>Hello</span>
		<b>world</b></section><script>track()</script></body></html>`)

	if ContentHash(a) != ContentHash(b) {
		t.Error("expected pages with the same visible text to hash equal")
	}
}

func TestContentHash_MasksDynamicContent(t *testing.T) {
	a := mustDoc(t, `<body><p>Updated 2025-01-01T10:00:00Z, posted 5 minutes ago</p></body>`)
	b := mustDoc(t, `<body><p>Updated 2025-03-09T18:30:12Z, posted 2 hours ago</p></body>`)

	if ContentHash(a) != ContentHash(b) {
		t.Error("expected timestamps and relative times to be masked")
	}
}

func TestContentHash_DetectsTextChanges(t *testing.T) {
	a := mustDoc(t, `<body><p>Price: 10</p></body>`)
	b := mustDoc(t, `<body><p>Price: 12</p></body>`)

	if ContentHash(a) == ContentHash(b) {
		t.Error("expected different text to hash differently")
	}
}
