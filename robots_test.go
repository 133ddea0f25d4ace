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
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/agentberlin/pagelens/testutil"
)

func TestRobotsWhenAllowed(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	checker := NewRobotsChecker(ts.Client(), "pagelens-test")
	allowed, err := checker.Allowed(context.Background(), ts.URL+"/products")
	if err != nil {
		t.Fatal(err)
	}
	if !allowed {
		t.Error("expected /products to be allowed")
	}
}

func TestRobotsWhenDisallowed(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	checker := NewRobotsChecker(ts.Client(), "pagelens-test")
	allowed, err := checker.Allowed(context.Background(), ts.URL+"/private?page=2")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("expected /private to be disallowed")
	}
}

func TestRobotsStatusHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		allowed bool
	}{
		{"missing robots.txt allows all", http.StatusNotFound, true},
		{"server error disallows all", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			allowed, err := NewRobotsChecker(ts.Client(), "pagelens-test").Allowed(context.Background(), ts.URL+"/page")
			if err != nil {
				t.Fatal(err)
			}
			if allowed != tt.allowed {
				t.Errorf("expected allowed=%v, got %v", tt.allowed, allowed)
			}
		})
	}
}

func TestRobotsFetchedOncePerHost(t *testing.T) {
	var fetches atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
			w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
		}
	}))
	defer ts.Close()

	checker := NewRobotsChecker(ts.Client(), "pagelens-test")
	for _, path := range []string{"/a", "/b", "/admin/users"} {
		if _, err := checker.Allowed(context.Background(), ts.URL+path); err != nil {
			t.Fatal(err)
		}
	}
	if n := fetches.Load(); n != 1 {
		t.Errorf("expected robots.txt to be fetched once, got %d", n)
	}
}

func TestRobotsAgentSpecificRules(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: BadBot\nDisallow: /\n\nUser-agent: *\nAllow: /\n"))
	}))
	defer ts.Close()

	ctx := context.Background()
	if allowed, _ := NewRobotsChecker(ts.Client(), "BadBot/1.0").Allowed(ctx, ts.URL+"/"); allowed {
		t.Error("expected BadBot to be disallowed")
	}
	if allowed, _ := NewRobotsChecker(ts.Client(), "GoodBot/1.0").Allowed(ctx, ts.URL+"/"); !allowed {
		t.Error("expected other agents to be allowed")
	}
}

func TestRobotsNetworkErrorNotCached(t *testing.T) {
	mock := testutil.NewMockTransport()
	mock.RegisterError("https://shop.example/robots.txt", errors.New("connection refused"))

	checker := NewRobotsChecker(mock.Client(), "pagelens-test")
	if _, err := checker.Allowed(context.Background(), "https://shop.example/a"); err == nil {
		t.Fatal("expected an error when robots.txt cannot be fetched")
	}

	mock.RegisterBody("https://shop.example/robots.txt", "text/plain", "User-agent: *\nDisallow: /a\n")
	allowed, err := checker.Allowed(context.Background(), "https://shop.example/a")
	if err != nil {
		t.Fatal(err)
	}
	if allowed {
		t.Error("expected /a to be disallowed after retry")
	}
	if n := len(mock.Requests()); n != 2 {
		t.Errorf("expected 2 robots.txt requests, got %d", n)
	}
}
