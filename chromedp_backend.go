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
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// chromedpRenderer handles browser-based page rendering
type chromedpRenderer struct {
	execPath      string
	waitAfterLoad time.Duration
	reuseBrowser  bool

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func newChromedpRenderer(config *AnalyzerConfig) *chromedpRenderer {
	execPath := config.ChromePath
	if execPath == "" {
		execPath = os.Getenv("CHROME_EXECUTABLE_PATH")
	}

	return &chromedpRenderer{
		execPath:      execPath,
		waitAfterLoad: config.WaitAfterLoad,
		reuseBrowser:  config.ReuseBrowser,
	}
}

func (r *chromedpRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	return opts
}

// newTab opens a tab for a single render. Without reuseBrowser the tab comes
// with its own browser process, which the returned cancel func tears down.
// With reuseBrowser the tab is opened in a shared browser that lives until
// Close, and cancel only closes the tab.
func (r *chromedpRenderer) newTab(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if !r.reuseBrowser {
		allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		return tabCtx, func() {
			tabCancel()
			allocCancel()
		}, nil
	}

	browserCtx, err := r.sharedBrowser()
	if err != nil {
		return nil, nil, err
	}
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	return tabCtx, tabCancel, nil
}

// sharedBrowser starts the shared browser on first use, and again if it has
// gone away since.
func (r *chromedpRenderer) sharedBrowser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}
	r.closeBrowser()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), r.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	r.allocCancel = allocCancel
	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	return browserCtx, nil
}

// closeBrowser must be called with mu held.
func (r *chromedpRenderer) closeBrowser() {
	if r.browserCancel != nil {
		r.browserCancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	r.browserCtx = nil
	r.browserCancel = nil
	r.allocCancel = nil
}

// Render loads url in headless Chrome with the given emulation profile applied
// and collects the rendered DOM, network requests and performance entries.
func (r *chromedpRenderer) Render(ctx context.Context, url string, profile *EmulationProfile) (*RenderedPage, error) {
	tabCtx, cancel, err := r.newTab(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	// The shared browser is not derived from ctx, so tie the tab to it.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}

	var mu sync.Mutex
	requests := make(map[network.RequestID]*NetworkRequest)
	var order []network.RequestID
	documentStatus := 0

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *network.EventRequestWillBeSent:
			mu.Lock()
			if _, seen := requests[ev.RequestID]; !seen {
				order = append(order, ev.RequestID)
			}
			requests[ev.RequestID] = &NetworkRequest{
				URL:          ev.Request.URL,
				Method:       ev.Request.Method,
				ResourceType: string(ev.Type),
			}
			mu.Unlock()
		case *network.EventResponseReceived:
			mu.Lock()
			if req, ok := requests[ev.RequestID]; ok {
				req.Status = int(ev.Response.Status)
				req.MimeType = ev.Response.MimeType
			}
			if ev.Type == network.ResourceTypeDocument && documentStatus == 0 {
				documentStatus = int(ev.Response.Status)
			}
			mu.Unlock()
		}
	})

	var title, html, finalURL, timingsJSON string

	actions := []chromedp.Action{
		network.Enable(),
		network.SetCacheDisabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
	}
	actions = append(actions, profile.Actions()...)

	var start time.Time
	var loadTime time.Duration
	actions = append(actions,
		chromedp.ActionFunc(func(context.Context) error {
			start = time.Now()
			return nil
		}),
		// Navigate returns once the load event has fired.
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(context.Context) error {
			loadTime = time.Since(start)
			return nil
		}),
		chromedp.Sleep(r.waitAfterLoad),
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Evaluate(collectTimingsScript, &timingsJSON),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return nil, fmt.Errorf("chromedp rendering failed: %w", err)
	}

	var payload timingsPayload
	if err := json.Unmarshal([]byte(timingsJSON), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode performance entries: %w", err)
	}

	mu.Lock()
	status := documentStatus
	collected := make([]NetworkRequest, 0, len(order))
	for _, id := range order {
		collected = append(collected, *requests[id])
	}
	mu.Unlock()

	if status == 0 {
		status = payload.Status
	}

	rendered := &RenderedPage{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: status,
		HTML:       html,
		LoadTime:   loadTime,
		Requests:   collected,
		Timings:    &payload.PageTimings,
	}

	if status >= 400 {
		return rendered, fmt.Errorf("%w: %d", ErrHTTPStatus, status)
	}

	return rendered, nil
}

// Close releases the shared browser, if one was started.
func (r *chromedpRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeBrowser()
}
