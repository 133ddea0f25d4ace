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

package testutil

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"sync"
)

// MockResponse is a canned reply served by MockTransport. A non-nil Error
// simulates a network failure.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    http.Header
	Error      error
}

type mockPattern struct {
	pattern  *regexp.Regexp
	response *MockResponse
}

// MockTransport is an http.RoundTripper serving registered responses by exact
// URL or regex, without opening sockets. Unknown URLs get a 404.
type MockTransport struct {
	mu        sync.RWMutex
	responses map[string]*MockResponse
	patterns  []mockPattern
	requests  []string
}

// NewMockTransport creates an empty transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{responses: make(map[string]*MockResponse)}
}

// Client returns an http.Client using the transport.
func (m *MockTransport) Client() *http.Client {
	return &http.Client{Transport: m}
}

// RegisterResponse serves response for url.
func (m *MockTransport) RegisterResponse(url string, response *MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = withDefaults(response)
}

// RegisterBody serves body with status 200 and the given content type.
func (m *MockTransport) RegisterBody(url, contentType, body string) {
	headers := make(http.Header)
	headers.Set("Content-Type", contentType)
	m.RegisterResponse(url, &MockResponse{StatusCode: http.StatusOK, Body: body, Headers: headers})
}

// RegisterError makes requests to url fail with err.
func (m *MockTransport) RegisterError(url string, err error) {
	m.RegisterResponse(url, &MockResponse{Error: err})
}

// RegisterPattern serves response for every URL matching pattern.
func (m *MockTransport) RegisterPattern(pattern string, response *MockResponse) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, mockPattern{pattern: re, response: withDefaults(response)})
	return nil
}

// Requests returns the URLs requested so far, in order.
func (m *MockTransport) Requests() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.requests...)
}

// RoundTrip implements http.RoundTripper.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	m.mu.Lock()
	m.requests = append(m.requests, url)
	resp, found := m.responses[url]
	if !found {
		for _, p := range m.patterns {
			if p.pattern.MatchString(url) {
				resp, found = p.response, true
				break
			}
		}
	}
	m.mu.Unlock()

	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	if !found {
		resp = &MockResponse{StatusCode: http.StatusNotFound, Body: "Not Found", Headers: make(http.Header)}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	header := make(http.Header)
	for k, v := range resp.Headers {
		header[k] = append([]string(nil), v...)
	}
	return &http.Response{
		StatusCode:    resp.StatusCode,
		Status:        http.StatusText(resp.StatusCode),
		Body:          io.NopCloser(bytes.NewBufferString(resp.Body)),
		Header:        header,
		ContentLength: int64(len(resp.Body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}, nil
}

func withDefaults(r *MockResponse) *MockResponse {
	if r.StatusCode == 0 {
		r.StatusCode = http.StatusOK
	}
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	return r
}
