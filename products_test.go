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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/pagelens/testutil"
)

func TestProductDetector_Fixture(t *testing.T) {
	d, err := newProductDetector(ProductConfig{})
	require.NoError(t, err)

	counts := d.Count(mustDoc(t, string(testutil.ProductListingHTML)), 2)

	assert.Equal(t, 4, counts.Candidates, "nested product-card is not counted twice")
	assert.Equal(t, 3, counts.WithPrice)
	assert.Equal(t, 3, counts.Count)
	assert.Equal(t, 2, counts.JSONLDProducts)
	assert.Equal(t, 1234, counts.CategoryCount)
}

func TestProductDetector_RequirePriceOff(t *testing.T) {
	off := false
	d, err := newProductDetector(ProductConfig{RequirePrice: &off})
	require.NoError(t, err)

	counts := d.Count(mustDoc(t, string(testutil.ProductListingHTML)), 0)
	assert.Equal(t, 4, counts.Count)
}

func TestProductDetector_JSONLDFloor(t *testing.T) {
	d, err := newProductDetector(ProductConfig{})
	require.NoError(t, err)

	counts := d.Count(mustDoc(t, `<html><body><div class="product-card">No price</div></body></html>`), 5)
	assert.Equal(t, 1, counts.Candidates)
	assert.Zero(t, counts.WithPrice)
	assert.Equal(t, 5, counts.Count)
}

func TestProductDetector_CustomSelectors(t *testing.T) {
	d, err := newProductDetector(ProductConfig{Selectors: []string{".tile"}})
	require.NoError(t, err)

	counts := d.Count(mustDoc(t, `<html><body>
		<div class="tile">€ 10,00</div>
		<div class="tile">EUR 5</div>
		<div class="product-card">€ 1</div>
	</body></html>`), 0)
	assert.Equal(t, 2, counts.Candidates)
	assert.Equal(t, 2, counts.Count)
}

func TestPricePattern(t *testing.T) {
	d, err := newProductDetector(ProductConfig{})
	require.NoError(t, err)

	for _, text := range []string{"€ 12,95", "€12", "$1,299.00", "£7.50", "19.99 EUR", "12,95 €", "Now 25,-", "USD 40"} {
		assert.True(t, d.price.MatchString(text), "expected %q to look like a price", text)
	}
	for _, text := range []string{"Coming soon", "Size 42", "4.5 stars", "2024"} {
		assert.False(t, d.price.MatchString(text), "expected %q not to look like a price", text)
	}
}

func TestCategoryCount(t *testing.T) {
	d, err := newProductDetector(ProductConfig{})
	require.NoError(t, err)

	tests := []struct {
		text string
		want int
	}{
		{"Showing 1–24 of 1.234 products", 1234},
		{"Showing 1-24 of 1,234 results", 1234},
		{"312 producten gevonden", 312},
		{"Artikel 1 - 20 von 2.500 Produkten", 2500},
		{"Sneakers (57 items)", 57},
		{"Sneakers (57)", 57},
		{"Free shipping on all orders", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, d.categoryCount(tt.text))
		})
	}
}

func TestNewProductDetector_InvalidPatterns(t *testing.T) {
	_, err := newProductDetector(ProductConfig{PricePattern: "("})
	assert.Error(t, err)

	_, err = newProductDetector(ProductConfig{CategoryPatterns: []string{`\d+ products`}})
	assert.Error(t, err, "patterns need a capture group")

	_, err = newProductDetector(ProductConfig{Selectors: []string{".product-card", "div[data-x="}})
	assert.ErrorContains(t, err, `invalid product selector "div[data-x="`)
}

func TestNewProductDetector_SelectorGroups(t *testing.T) {
	doc := mustDoc(t, `<ul>
<li class="tile">A <span>€ 10,00</span></li>
<li data-sku="1">B <span>€ 12,00</span></li>
</ul>`)

	d, err := newProductDetector(ProductConfig{Selectors: []string{".tile", "li[data-sku], .missing"}})
	require.NoError(t, err)
	counts := d.Count(doc, 0)
	assert.Equal(t, 2, counts.Candidates)
	assert.Equal(t, 2, counts.WithPrice)
}
