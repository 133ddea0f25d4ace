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
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// ProductConfig tunes the product listing heuristics. Empty fields use the
// built-in defaults.
type ProductConfig struct {
	// Selectors are CSS selectors for elements that look like product tiles.
	Selectors []string
	// RequirePrice only counts candidates showing a price. Nil means true.
	RequirePrice *bool
	// PricePattern overrides the price regular expression.
	PricePattern string
	// CategoryPatterns are regular expressions whose first capture group is
	// the total number of products in a category.
	CategoryPatterns []string
}

// ProductCounts is the result of the product heuristics for one page.
type ProductCounts struct {
	Candidates     int `json:"candidates"`
	WithPrice      int `json:"withPrice"`
	Count          int `json:"count"`
	JSONLDProducts int `json:"jsonLdProducts"`
	CategoryCount  int `json:"categoryCount"`
}

// DefaultProductSelectors match the product tile markup of the common shop
// systems and schema.org microdata.
var DefaultProductSelectors = []string{
	`[itemtype$="schema.org/Product"]`,
	`[data-product-id]`,
	`[data-product-sku]`,
	`[data-testid*="product-card"]`,
	`[data-test*="product-tile"]`,
	`li.product`,
	`.product-item`,
	`.product-card`,
	`.product-tile`,
	`.productTile`,
	`.product-grid-item`,
	`.grid-product`,
	`.card-product`,
}

// DefaultPricePattern matches an amount with a currency symbol or code on
// either side, e.g. "€ 12,95", "$1,299.00", "19.99 EUR" or "12,-".
const DefaultPricePattern = `(?i)(?:[€$£¥]|\b(?:eur|usd|gbp|chf|sek|nok|dkk|pln)\b)\s?\d{1,3}(?:[.,\s]?\d{3})*(?:[.,]\d{1,2}|,-)?|\d{1,3}(?:[.,\s]?\d{3})*(?:[.,]\d{1,2}|,-)?\s?(?:[€$£¥]|\b(?:eur|usd|gbp|chf|sek|nok|dkk|pln)\b)|\d+,-`

// DefaultCategoryPatterns capture the total product count shown on category
// pages in English, Dutch and German.
var DefaultCategoryPatterns = []string{
	`(?i)\bof\s+([\d.,]+)\s+(?:products|items|results)\b`,
	`(?i)\bvan\s+([\d.,]+)\s+(?:producten|artikelen|resultaten)\b`,
	`(?i)\bvon\s+([\d.,]+)\s+(?:produkten|artikeln|ergebnissen)\b`,
	`(?i)\b([\d.,]+)\s+(?:products|items|results|producten|artikelen|resultaten|produkte|artikel|ergebnisse)\b`,
	`(?i)\(\s*([\d.,]+)\s*\)`,
}

type productDetector struct {
	selector         cascadia.Selector
	requirePrice     bool
	price            *regexp.Regexp
	categoryPatterns []*regexp.Regexp
}

func newProductDetector(config ProductConfig) (*productDetector, error) {
	selectors := config.Selectors
	if len(selectors) == 0 {
		selectors = DefaultProductSelectors
	}
	// One bad entry would make the whole group match nothing.
	for _, sel := range selectors {
		if _, err := cascadia.Compile(sel); err != nil {
			return nil, fmt.Errorf("invalid product selector %q: %w", sel, err)
		}
	}
	group, err := cascadia.Compile(strings.Join(selectors, ", "))
	if err != nil {
		return nil, fmt.Errorf("invalid product selectors: %w", err)
	}

	pricePattern := config.PricePattern
	if pricePattern == "" {
		pricePattern = DefaultPricePattern
	}
	price, err := regexp.Compile(pricePattern)
	if err != nil {
		return nil, fmt.Errorf("invalid price pattern: %w", err)
	}

	patterns := config.CategoryPatterns
	if len(patterns) == 0 {
		patterns = DefaultCategoryPatterns
	}
	categoryPatterns := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid category pattern %q: %w", p, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("category pattern %q has no capture group", p)
		}
		categoryPatterns = append(categoryPatterns, re)
	}

	requirePrice := true
	if config.RequirePrice != nil {
		requirePrice = *config.RequirePrice
	}

	return &productDetector{
		selector:         group,
		requirePrice:     requirePrice,
		price:            price,
		categoryPatterns: categoryPatterns,
	}, nil
}

// Count applies the heuristics to doc. jsonLDProducts is the number of
// Product objects found in the page's JSON-LD and acts as a floor.
func (d *productDetector) Count(doc *goquery.Document, jsonLDProducts int) ProductCounts {
	counts := ProductCounts{JSONLDProducts: jsonLDProducts}

	matches := doc.FindMatcher(d.selector)
	matched := make(map[*html.Node]bool, matches.Length())
	for _, n := range matches.Nodes {
		matched[n] = true
	}

	matches.Each(func(_ int, s *goquery.Selection) {
		if hasMatchedAncestor(s.Nodes[0], matched) {
			return
		}
		counts.Candidates++
		if d.price.MatchString(normalizeWhitespace(s.Text())) {
			counts.WithPrice++
		}
	})

	if d.requirePrice {
		counts.Count = counts.WithPrice
	} else {
		counts.Count = counts.Candidates
	}
	if counts.Count < jsonLDProducts {
		counts.Count = jsonLDProducts
	}

	counts.CategoryCount = d.categoryCount(visibleText(doc))
	return counts
}

func hasMatchedAncestor(n *html.Node, matched map[*html.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if matched[p] {
			return true
		}
	}
	return false
}

// categoryCount returns the first positive count captured by the category
// patterns, tried in order.
func (d *productDetector) categoryCount(text string) int {
	for _, re := range d.categoryPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if n := parseCount(m[1]); n > 0 {
				return n
			}
		}
	}
	return 0
}

// parseCount reads "1.234", "1,234" or "1 234" as 1234.
func parseCount(s string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
