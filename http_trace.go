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
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

// requestTrace records connection and first-byte timings for one request.
type requestTrace struct {
	mu        sync.Mutex
	start     time.Time
	connect   time.Time
	connected time.Duration
	firstByte time.Duration
}

func (rt *requestTrace) clientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		GetConn: func(string) {
			rt.mu.Lock()
			if rt.start.IsZero() {
				rt.start = time.Now()
			}
			rt.mu.Unlock()
		},
		ConnectStart: func(string, string) {
			rt.mu.Lock()
			rt.connect = time.Now()
			rt.mu.Unlock()
		},
		ConnectDone: func(string, string, error) {
			rt.mu.Lock()
			rt.connected = time.Since(rt.connect)
			rt.mu.Unlock()
		},
		GotFirstResponseByte: func() {
			rt.mu.Lock()
			rt.firstByte = time.Since(rt.start)
			rt.mu.Unlock()
		},
	}
}

// withTrace attaches the trace to req.
func (rt *requestTrace) withTrace(req *http.Request) *http.Request {
	return req.WithContext(httptrace.WithClientTrace(req.Context(), rt.clientTrace()))
}

// timeToFirstByte is measured from the first connection lookup, so it
// includes redirects.
func (rt *requestTrace) timeToFirstByte() time.Duration {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.firstByte
}

func (rt *requestTrace) connectDuration() time.Duration {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.connected
}
