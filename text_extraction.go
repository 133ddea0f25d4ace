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

	"github.com/PuerkitoBio/goquery"
	"github.com/kennygrant/sanitize"
	"golang.org/x/net/html"
)

// extractTitle returns the document title, falling back to og:title.
func extractTitle(doc *goquery.Document) string {
	title := normalizeWhitespace(doc.Find("head title").First().Text())
	if title == "" {
		title = normalizeWhitespace(doc.Find("title").First().Text())
	}
	if title == "" {
		title = metaContent(doc, "property", "og:title")
	}
	return title
}

// extractMetaDescription returns the meta description, falling back to
// og:description. Markup some CMSes leave in the attribute is stripped.
func extractMetaDescription(doc *goquery.Document) string {
	desc := metaContent(doc, "name", "description")
	if desc == "" {
		desc = metaContent(doc, "property", "og:description")
	}
	return desc
}

// metaContent finds the first <meta> whose attr matches value
// case-insensitively and returns its cleaned content.
func metaContent(doc *goquery.Document, attr, value string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr(attr, "")), value) {
			return true
		}
		content = normalizeWhitespace(sanitize.HTML(s.AttrOr("content", "")))
		return content == ""
	})
	return content
}

// nonVisibleElements never contribute to the visible text of a page.
var nonVisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
}

// visibleText returns the text a reader would see, whitespace collapsed.
func visibleText(doc *goquery.Document) string {
	var b strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &b)
	}
	return normalizeWhitespace(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && nonVisibleElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
