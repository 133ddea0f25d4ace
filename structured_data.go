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
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
)

// StructuredDataCounts summarises the structured data embedded in a page.
type StructuredDataCounts struct {
	JSONLD    int      `json:"jsonLd"`
	Microdata int      `json:"microdata"`
	RDFa      int      `json:"rdfa"`
	Invalid   int      `json:"invalid"`
	Types     []string `json:"types,omitempty"`
}

// Total is the number of structured data entities of any syntax.
func (c StructuredDataCounts) Total() int {
	return c.JSONLD + c.Microdata + c.RDFa
}

// extractStructuredData counts JSON-LD, microdata and RDFa entities. The
// second return value is the number of JSON-LD objects typed Product.
func extractStructuredData(doc *goquery.Document) (StructuredDataCounts, int) {
	var counts StructuredDataCounts
	types := make(map[string]bool)
	products := 0

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scriptType := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if scriptType != "application/ld+json" {
			return
		}
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		var data interface{}
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			counts.Invalid++
			return
		}

		for _, entity := range jsonLDEntities(data) {
			counts.JSONLD++
			for _, t := range jsonLDTypes(entity) {
				types[t] = true
			}
		}
		products += countJSONLDProducts(data)
	})

	if len(doc.Nodes) > 0 {
		root := doc.Nodes[0]
		for _, node := range htmlquery.Find(root, "//*[@itemscope and @itemtype]") {
			counts.Microdata++
			for _, itemType := range strings.Fields(htmlquery.SelectAttr(node, "itemtype")) {
				if t := lastPathSegment(itemType); t != "" {
					types[t] = true
				}
			}
		}
		for _, node := range htmlquery.Find(root, "//*[@typeof]") {
			counts.RDFa++
			for _, t := range strings.Fields(htmlquery.SelectAttr(node, "typeof")) {
				if t = lastPathSegment(t); t != "" {
					types[t] = true
				}
			}
		}
	}

	if len(types) > 0 {
		counts.Types = make([]string, 0, len(types))
		for t := range types {
			counts.Types = append(counts.Types, t)
		}
		sort.Strings(counts.Types)
	}

	return counts, products
}

// jsonLDEntities returns the top-level entities of a JSON-LD block: the
// object itself, each element of a top-level array, and the members of any
// @graph. A graph container without its own @type is not an entity.
func jsonLDEntities(data interface{}) []map[string]interface{} {
	var entities []map[string]interface{}
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			entities = append(entities, jsonLDEntities(item)...)
		}
	case map[string]interface{}:
		graph, hasGraph := v["@graph"].([]interface{})
		if !hasGraph || v["@type"] != nil {
			entities = append(entities, v)
		}
		for _, item := range graph {
			if obj, ok := item.(map[string]interface{}); ok {
				entities = append(entities, obj)
			}
		}
	}
	return entities
}

// jsonLDTypes reads @type, which may be a string or a list of strings.
func jsonLDTypes(entity map[string]interface{}) []string {
	var types []string
	switch t := entity["@type"].(type) {
	case string:
		types = append(types, lastPathSegment(t))
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok {
				types = append(types, lastPathSegment(s))
			}
		}
	}
	return types
}

// countJSONLDProducts counts objects typed Product at any depth.
func countJSONLDProducts(data interface{}) int {
	count := 0
	switch v := data.(type) {
	case []interface{}:
		for _, item := range v {
			count += countJSONLDProducts(item)
		}
	case map[string]interface{}:
		for _, t := range jsonLDTypes(v) {
			if strings.EqualFold(t, "Product") {
				count++
				break
			}
		}
		for _, value := range v {
			count += countJSONLDProducts(value)
		}
	}
	return count
}

// lastPathSegment turns "https://schema.org/Product" or "schema:Product"
// into "Product".
func lastPathSegment(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if i := strings.LastIndexAny(s, "/#:"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
