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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/pagelens/testutil"
)

func TestStaticRenderer_Render(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	r := newStaticRenderer(ts.Client(), "")
	page, err := r.Render(context.Background(), ts.URL+"/products", MobileProfile)
	require.NoError(t, err)

	assert.Equal(t, 200, page.StatusCode)
	assert.Equal(t, ts.URL+"/products", page.FinalURL)
	assert.Contains(t, page.HTML, "Road Runner")
	assert.Nil(t, page.Timings)
	assert.Empty(t, page.Requests)
	assert.Greater(t, page.LoadTime.Nanoseconds(), int64(0))
}

func TestStaticRenderer_ConnectionTimings(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	page, err := newStaticRenderer(ts.Client(), "").Render(context.Background(), ts.URL+"/plain", nil)
	require.NoError(t, err)
	assert.Greater(t, page.ConnectTime, time.Duration(0), "a fresh client dials a new connection")
	assert.GreaterOrEqual(t, page.TimeToFirstByte, page.ConnectTime)
}

func TestStaticRenderer_UserAgent(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	page, err := newStaticRenderer(ts.Client(), "").Render(context.Background(), ts.URL+"/user_agent", DesktopProfile)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, desktopUserAgent, "profile user agent is sent")

	page, err = newStaticRenderer(ts.Client(), "custom-agent/1.0").Render(context.Background(), ts.URL+"/user_agent", DesktopProfile)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "custom-agent/1.0")
}

func TestStaticRenderer_ErrorStatus(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	page, err := newStaticRenderer(ts.Client(), "").Render(context.Background(), ts.URL+"/500", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHTTPStatus))
	require.NotNil(t, page)
	assert.Equal(t, 500, page.StatusCode)
}

func TestStaticRenderer_Charset(t *testing.T) {
	ts := testutil.NewTestServer()
	defer ts.Close()

	page, err := newStaticRenderer(ts.Client(), "").Render(context.Background(), ts.URL+"/latin1", nil)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, testutil.LatinTitle)
}

func TestDecodeBody(t *testing.T) {
	utf8Body := []byte("<p>Crème</p>")
	got, err := decodeBody(utf8Body, "text/html")
	require.NoError(t, err)
	assert.Equal(t, "<p>Crème</p>", got)

	latin := []byte("<html><head><title>Caf\xe9</title></head><body><p>Cr\xe8me br\xfbl\xe9e, d\xe9j\xe0 vu, tr\xe8s fran\xe7ais</p></body></html>")
	got, err = decodeBody(latin, "text/html; charset=ISO-8859-1")
	require.NoError(t, err)
	assert.Contains(t, got, "Café")

	got, err = decodeBody([]byte("plain"), "text/html; charset=no-such-charset")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}
