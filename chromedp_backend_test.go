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
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/pagelens/testutil"
)

func TestChromedpRenderer_ExecPathFromEnv(t *testing.T) {
	t.Setenv("CHROME_EXECUTABLE_PATH", "/opt/chrome/chrome")

	r := newChromedpRenderer(&AnalyzerConfig{})
	assert.Equal(t, "/opt/chrome/chrome", r.execPath)

	r = newChromedpRenderer(&AnalyzerConfig{ChromePath: "/usr/bin/chromium"})
	assert.Equal(t, "/usr/bin/chromium", r.execPath, "explicit path wins over the environment")
}

func TestChromedpRenderer_AllocatorOptions(t *testing.T) {
	t.Setenv("CHROME_EXECUTABLE_PATH", "")

	withoutPath := newChromedpRenderer(&AnalyzerConfig{}).allocatorOptions()
	withPath := newChromedpRenderer(&AnalyzerConfig{ChromePath: "/usr/bin/chromium"}).allocatorOptions()
	assert.Len(t, withPath, len(withoutPath)+1)
}

func TestChromedpRenderer_CloseWithoutBrowser(t *testing.T) {
	r := newChromedpRenderer(&AnalyzerConfig{ReuseBrowser: true})
	r.Close()
	r.Close()
}

// findChrome returns a local Chrome or Chromium binary, if any.
func findChrome() string {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func TestChromedpRenderer_RendersFixture(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("Chrome not installed")
	}

	ts := testutil.NewTestServer()
	defer ts.Close()

	r := newChromedpRenderer(&AnalyzerConfig{ChromePath: chrome, WaitAfterLoad: 100 * time.Millisecond})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	page, err := r.Render(ctx, ts.URL+"/products", NoThrottlingProfile)
	require.NoError(t, err)

	assert.Equal(t, 200, page.StatusCode)
	assert.True(t, strings.Contains(page.HTML, "Road Runner"))
	assert.NotEmpty(t, page.Requests)
	assert.Equal(t, "Document", page.Requests[0].ResourceType)
	require.NotNil(t, page.Timings)
	assert.Greater(t, page.Timings.LoadEventEnd, 0.0)
}

func TestChromedpRenderer_ReuseBrowserSharesProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	chrome := findChrome()
	if chrome == "" {
		t.Skip("Chrome not installed")
	}

	ts := testutil.NewTestServer()
	defer ts.Close()

	r := newChromedpRenderer(&AnalyzerConfig{ChromePath: chrome, ReuseBrowser: true, WaitAfterLoad: 100 * time.Millisecond})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	first, closeFirst, err := r.newTab(ctx)
	require.NoError(t, err)
	defer closeFirst()
	second, closeSecond, err := r.newTab(ctx)
	require.NoError(t, err)
	defer closeSecond()

	browser := chromedp.FromContext(first).Browser
	require.NotNil(t, browser)
	assert.Same(t, browser, chromedp.FromContext(second).Browser)

	for _, path := range []string{"/products", "/plain"} {
		page, err := r.Render(ctx, ts.URL+path, NoThrottlingProfile)
		require.NoError(t, err)
		assert.Equal(t, 200, page.StatusCode)
	}
	assert.Same(t, browser, chromedp.FromContext(r.browserCtx).Browser, "renders keep using the shared browser")

	r.Close()
	assert.Nil(t, r.browserCtx)
}
