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
	"errors"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "https://example.com/"},
		{"example.com/shoes", "https://example.com/shoes"},
		{"  http://Example.COM:80/a?b=1#reviews ", "http://example.com/a?b=1"},
		{"https://example.com/100%", "https://example.com/100%25"},
		{"https://example.com/a b", "https://example.com/a%20b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if err != nil {
				t.Fatalf("NormalizeURL(%q) returned error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.com/file", "http://", "javascript:alert(1)"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeURL(in)
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("expected ErrInvalidURL for %q, got %v", in, err)
			}
		})
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://Shop.Example.com:8443/x"); got != "shop.example.com:8443" {
		t.Errorf("hostOf() = %q", got)
	}
	if got := hostOf("https://shop.example.com/x"); got != "shop.example.com" {
		t.Errorf("hostOf() = %q", got)
	}
}
