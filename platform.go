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

import "strings"

// Platform identifiers reported in PageResult.Platform.
const (
	PlatformOther     = "other"
	PlatformNextJS    = "nextjs"
	PlatformNuxtJS    = "nuxtjs"
	PlatformWordPress = "wordpress"
	PlatformShopify   = "shopify"
	PlatformMagento   = "magento"
	PlatformWebflow   = "webflow"
	PlatformWix       = "wix"
	PlatformGatsby    = "gatsby"
	PlatformAngular   = "angular"
	PlatformVue       = "vue"
	PlatformReact     = "react"
	PlatformDrupal    = "drupal"
	PlatformJoomla    = "joomla"
)

// where a platform marker is looked for
const (
	inHTML = 1 << iota
	inURLs
)

type platformMarker struct {
	needles []string
	where   int
	weight  int
	signal  string
}

type platformRule struct {
	name      string
	threshold int
	markers   []platformMarker
}

// platformRules are evaluated in order and the first rule reaching its
// threshold wins. Meta-frameworks come before the libraries they build on.
var platformRules = []platformRule{
	{PlatformNextJS, 3, []platformMarker{
		{[]string{"/_next/static/"}, inHTML | inURLs, 3, "Found /_next/static/ in HTML or network requests"},
		{[]string{`<div id="__next"`, `<div id='__next'`}, inHTML, 2, `Found <div id="__next">`},
		{[]string{"_rsc="}, inURLs, 2, "Found _rsc= query params in network requests"},
		{[]string{"__next_data__"}, inHTML, 2, "Found Next.js data script"},
	}},
	{PlatformNuxtJS, 3, []platformMarker{
		{[]string{"/_nuxt/"}, inHTML | inURLs, 3, "Found /_nuxt/ in HTML or network requests"},
		{[]string{`<div id="__nuxt"`, `<div id='__nuxt'`}, inHTML, 2, `Found <div id="__nuxt">`},
		{[]string{"window.__nuxt__"}, inHTML, 1, "Found __NUXT__ state"},
	}},
	{PlatformWordPress, 3, []platformMarker{
		{[]string{"/wp-content/"}, inHTML | inURLs, 3, "Found /wp-content/ in HTML or network requests"},
		{[]string{"/wp-includes/"}, inHTML | inURLs, 2, "Found /wp-includes/ in HTML or network requests"},
		{[]string{`name="generator" content="wordpress`}, inHTML, 2, "Found WordPress generator meta tag"},
	}},
	{PlatformShopify, 3, []platformMarker{
		{[]string{"cdn.shopify.com"}, inHTML | inURLs, 3, "Found cdn.shopify.com in HTML or network requests"},
		{[]string{"shopify.theme", "shopify.shop"}, inHTML, 2, "Found Shopify theme object"},
	}},
	{PlatformMagento, 3, []platformMarker{
		{[]string{"/static/version"}, inHTML | inURLs, 2, "Found Magento static versioned assets"},
		{[]string{"mage/cookies", "mage-init", `data-mage-init`}, inHTML, 2, "Found Magento mage-init widgets"},
		{[]string{"/customer/section/load"}, inURLs, 2, "Found Magento customer section requests"},
	}},
	{PlatformWebflow, 3, []platformMarker{
		{[]string{"webflow.js", "assets.website-files.com"}, inHTML | inURLs, 3, "Found webflow.js"},
		{[]string{`class="w-`}, inHTML, 2, "Found Webflow CSS classes (.w-)"},
	}},
	{PlatformWix, 3, []platformMarker{
		{[]string{"static.wixstatic.com", "static.parastorage.com"}, inHTML | inURLs, 3, "Found Wix static hosts in HTML or network requests"},
		{[]string{"data-wix-", "_wixcssimports"}, inHTML, 2, "Found Wix attributes"},
	}},
	{PlatformGatsby, 3, []platformMarker{
		{[]string{"/___gatsby"}, inHTML | inURLs, 3, "Found /___gatsby in HTML or network requests"},
		{[]string{"gatsby-"}, inHTML, 1, "Found gatsby- classes"},
	}},
	{PlatformAngular, 2, []platformMarker{
		{[]string{" ng-version=", " ng-app", "data-ng-app"}, inHTML, 2, "Found Angular directives (ng-)"},
		{[]string{"<app-root"}, inHTML, 2, "Found Angular app-root component"},
	}},
	{PlatformVue, 2, []platformMarker{
		{[]string{"v-if=", "v-for=", "v-bind:", "data-v-"}, inHTML, 2, "Found Vue directives (v-)"},
		{[]string{"__vue__", "vue.runtime"}, inHTML | inURLs, 2, "Found Vue runtime"},
	}},
	{PlatformReact, 2, []platformMarker{
		{[]string{`<div id="root"`}, inHTML, 1, `Found <div id="root">`},
		{[]string{"data-reactroot", "data-react-"}, inHTML, 2, "Found React data attributes"},
		{[]string{"react-dom"}, inURLs, 2, "Found react-dom bundle in network requests"},
	}},
	{PlatformDrupal, 3, []platformMarker{
		{[]string{"/sites/all/", "/sites/default/files/"}, inHTML | inURLs, 3, "Found Drupal sites directory in HTML or network requests"},
		{[]string{"drupal.settings", "drupalsettings"}, inHTML, 2, "Found Drupal settings JS object"},
		{[]string{`name="generator" content="drupal`}, inHTML, 2, "Found Drupal generator meta tag"},
	}},
	{PlatformJoomla, 3, []platformMarker{
		{[]string{"/media/joomla/", "/media/jui/"}, inHTML | inURLs, 3, "Found Joomla media directory in HTML or network requests"},
		{[]string{`name="generator" content="joomla`}, inHTML, 2, "Found Joomla generator meta tag"},
	}},
}

// DetectPlatform identifies the CMS, shop system or front-end framework a page
// is built with. It returns PlatformOther and no signals when nothing
// matches.
func DetectPlatform(html string, requestURLs []string) (string, []string) {
	htmlLower := strings.ToLower(html)
	urlsLower := strings.ToLower(strings.Join(requestURLs, " "))

	for _, rule := range platformRules {
		score := 0
		var signals []string
		for _, m := range rule.markers {
			if m.found(htmlLower, urlsLower) {
				score += m.weight
				signals = append(signals, m.signal)
			}
		}
		if score >= rule.threshold {
			return rule.name, signals
		}
	}
	return PlatformOther, nil
}

func (m platformMarker) found(html, urls string) bool {
	for _, needle := range m.needles {
		if m.where&inHTML != 0 && strings.Contains(html, needle) {
			return true
		}
		if m.where&inURLs != 0 && strings.Contains(urls, needle) {
			return true
		}
	}
	return false
}
