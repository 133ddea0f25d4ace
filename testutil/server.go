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

// Package testutil provides shared test utilities for pagelens tests.
// This includes an HTTP test server serving fixture pages.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"
)

// Test data shared across tests
var (
	// ProductListingHTML is a category page with JSON-LD, microdata, RDFa,
	// four product tiles (three with a price) and an inline fetch call.
	ProductListingHTML = []byte(`<!DOCTYPE html>
<html lang="en">
<head>
<title>
  Running Shoes | Example Shop
</title>
<meta name="Description" content="Shop <b>running shoes</b> online.">
<meta property="og:title" content="OG Running Shoes">
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"Organization","name":"Example Shop"},
  {"@type":"ItemList","itemListElement":[
    {"@type":"ListItem","position":1,"item":{"@type":"Product","name":"Road Runner"}},
    {"@type":"ListItem","position":2,"item":{"@type":"Product","name":"Trail Blazer"}}
  ]}
]}
</script>
<script type="application/ld+json">{ broken json </script>
</head>
<body>
<p class="summary">Showing 1–24 of 1.234 products</p>
<ul class="grid">
  <li class="product" itemscope itemtype="https://schema.org/Product">
    <div class="product-card"><span itemprop="name">Road Runner</span> <span class="price">€ 89,95</span></div>
  </li>
  <li class="product" itemscope itemtype="https://schema.org/Product">
    <span itemprop="name">Trail Blazer</span> <span class="price">$120.00</span>
  </li>
  <li class="product" itemscope itemtype="https://schema.org/Product">
    <span itemprop="name">City Walker</span> <span class="price">49,-</span>
  </li>
  <li class="product"><span>Coming soon</span></li>
</ul>
<div vocab="https://schema.org/" typeof="BreadcrumbList"><span>Home</span></div>
<script>
  fetch("/api/products?page=2").then(r => r.json());
</script>
</body>
</html>
`)

	// PlainHTML has no structured data, products or scripts.
	PlainHTML = []byte(`<!DOCTYPE html>
<html>
<head>
<meta property="og:title" content="Plain Page">
<meta property="og:description" content="Nothing to see here.">
</head>
<body><p>Just some text.</p></body>
</html>
`)

	// LatinTitle is the title of the /latin1 page once decoded.
	LatinTitle = "Café crème"

	RobotsFile = `
User-agent: *
Allow: /
Disallow: /private
`
)

// latin1HTML is LatinTitle's page encoded as ISO-8859-1.
var latin1HTML = []byte("<html><head><title>Caf\xe9 cr\xe8me</title></head><body><p>Cr\xe8me br\xfbl\xe9e</p></body></html>")

// FlakyFailures is how many times /flaky fails before it serves a page.
const FlakyFailures = 2

// NewHandler returns the fixture site: product listings, robots.txt,
// sitemaps and a handful of failure endpoints.
func NewHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(PlainHTML)
	})

	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(ProductListingHTML)
	})

	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(PlainHTML)
	})

	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write(latin1HTML)
	})

	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(RobotsFile))
	})

	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(PlainHTML)
	})

	mux.HandleFunc("/500", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("<p>error</p>"))
	})

	mux.HandleFunc("/404", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	var flakyCalls atomic.Int32
	mux.HandleFunc("/flaky", func(w http.ResponseWriter, r *http.Request) {
		if flakyCalls.Add(1) <= FlakyFailures {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(ProductListingHTML)
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(PlainHTML)
	})

	mux.HandleFunc("/user_agent", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>%s</title></head><body></body></html>", r.Header.Get("User-Agent"))
	})

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/products</loc></url>
  <url><loc>%[1]s/plain</loc></url>
  <url><loc>%[1]s/products</loc></url>
</urlset>`, base)
	})

	mux.HandleFunc("/sitemap-extra.xml", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%[1]s/latin1</loc></url>
</urlset>`, base)
	})

	mux.HandleFunc("/sitemap_index.xml", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%[1]s/sitemap.xml</loc></sitemap>
  <sitemap><loc>%[1]s/sitemap-extra.xml</loc></sitemap>
</sitemapindex>`, base)
	})

	return mux
}

// NewUnstartedTestServer creates an unstarted HTTP test server with all endpoints configured
func NewUnstartedTestServer() *httptest.Server {
	return httptest.NewUnstartedServer(NewHandler())
}

// NewTestServer creates and starts an HTTP test server
func NewTestServer() *httptest.Server {
	srv := NewUnstartedTestServer()
	srv.Start()
	return srv
}
