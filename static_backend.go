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
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// maxStaticBodySize caps how much of a response the static renderer reads.
const maxStaticBodySize = 10 << 20

// staticRenderer fetches the raw HTML without executing any JavaScript.
// Pages rendered this way have no performance entries and no subresources.
type staticRenderer struct {
	client    *http.Client
	userAgent string
}

func newStaticRenderer(client *http.Client, userAgent string) *staticRenderer {
	if client == nil {
		client = &http.Client{}
	}
	return &staticRenderer{client: client, userAgent: userAgent}
}

func (r *staticRenderer) Render(ctx context.Context, url string, profile *EmulationProfile) (*RenderedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	userAgent := r.userAgent
	if profile != nil && profile.UserAgent != "" && userAgent == "" {
		userAgent = profile.UserAgent
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	trace := &requestTrace{}
	req = trace.withTrace(req)

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	loadTime := time.Since(start)

	rendered := &RenderedPage{
		URL:             url,
		FinalURL:        resp.Request.URL.String(),
		StatusCode:      resp.StatusCode,
		LoadTime:        loadTime,
		TimeToFirstByte: trace.timeToFirstByte(),
		ConnectTime:     trace.connectDuration(),
	}

	if resp.StatusCode >= 400 {
		return rendered, fmt.Errorf("%w: %d", ErrHTTPStatus, resp.StatusCode)
	}

	html, err := decodeBody(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return rendered, err
	}
	rendered.HTML = html

	return rendered, nil
}

func (r *staticRenderer) Close() {}

// decodeBody converts body to UTF-8. A charset in the Content-Type header wins;
// otherwise non-UTF-8 bodies go through charset detection.
func decodeBody(body []byte, contentType string) (string, error) {
	label := ""
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		label = params["charset"]
	}

	if label == "" {
		if utf8.Valid(body) {
			return string(body), nil
		}
		detected, err := chardet.NewHtmlDetector().DetectBest(body)
		if err != nil {
			return string(body), nil
		}
		label = detected.Charset
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(body))
	if err != nil {
		// Unknown label: hand back the bytes untouched rather than failing the page.
		return string(body), nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", label, err)
	}
	return string(decoded), nil
}
