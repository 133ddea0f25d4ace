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

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/pagelens/internal/app"
	"github.com/agentberlin/pagelens/internal/config"
	"github.com/agentberlin/pagelens/internal/store"
	"github.com/agentberlin/pagelens/internal/types"
	"github.com/agentberlin/pagelens/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, *httptest.Server) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Analyzer.Rendering = false
	cfg.Analyzer.Attempts = 1
	cfg.Server.MaxBatchSize = 3

	st, err := store.NewStoreForTesting(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	api := httptest.NewServer(NewServer(app.NewApp(cfg, st)))
	t.Cleanup(api.Close)

	pages := testutil.NewTestServer()
	t.Cleanup(pages.Close)

	return api, pages
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestLighthouseValidation(t *testing.T) {
	api, _ := newTestServer(t)

	bodies := []string{
		`{}`,
		`{"urls": "https://example.com"}`,
		`{"urls": null}`,
		`{"urls": [1, 2]}`,
		`not json`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			resp, data := post(t, api.URL+"/lighthouse", body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.JSONEq(t, `{"error":"Body must contain an array \"urls\""}`, string(data))
		})
	}
}

func TestLighthouseResults(t *testing.T) {
	api, pages := newTestServer(t)

	resp, data := post(t, api.URL+"/lighthouse", `{"urls": []}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"results": []}`, string(data))

	body := fmt.Sprintf(`{"urls": [%q, %q]}`, pages.URL+"/plain", pages.URL+"/404")
	resp, data = post(t, api.URL+"/lighthouse", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Results []types.LighthouseEntry `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Results, 2)
	assert.Equal(t, pages.URL+"/plain", out.Results[0].URL)
	assert.NotEmpty(t, out.Results[0].Error, "no browser means no metrics")
	assert.Contains(t, out.Results[1].Error, "404")
}

func TestLighthouseMethodNotAllowed(t *testing.T) {
	api, _ := newTestServer(t)

	resp, err := http.Get(api.URL + "/lighthouse")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAnalyzeAndRuns(t *testing.T) {
	api, pages := newTestServer(t)

	body := fmt.Sprintf(`{"urls": [%q], "profile": "desktop"}`, pages.URL+"/products")
	resp, data := post(t, api.URL+"/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var run types.RunResponse
	require.NoError(t, json.Unmarshal(data, &run))
	require.Len(t, run.Results, 1)
	assert.Equal(t, "Running Shoes | Example Shop", run.Results[0].Title)
	assert.NotZero(t, run.RunID)

	listResp, err := http.Get(api.URL + "/api/v1/runs?limit=5")
	require.NoError(t, err)
	var runs []types.RunInfo
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&runs))
	listResp.Body.Close()
	require.Len(t, runs, 1)
	assert.Equal(t, "desktop", runs[0].Profile)

	runURL := fmt.Sprintf("%s/api/v1/runs/%d", api.URL, run.RunID)
	getResp, err := http.Get(runURL)
	require.NoError(t, err)
	var detail types.RunDetail
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&detail))
	getResp.Body.Close()
	assert.Equal(t, run.RequestID, detail.RunInfo.RequestID)

	byRequest, err := http.Get(api.URL + "/api/v1/runs/" + run.RequestID)
	require.NoError(t, err)
	var sameRun types.RunDetail
	require.NoError(t, json.NewDecoder(byRequest.Body).Decode(&sameRun))
	byRequest.Body.Close()
	assert.Equal(t, run.RunID, sameRun.RunInfo.ID, "runs can be addressed by request ID")

	exportResp, err := http.Get(runURL + "/export?format=csv")
	require.NoError(t, err)
	csvData, _ := io.ReadAll(exportResp.Body)
	exportResp.Body.Close()
	assert.Equal(t, http.StatusOK, exportResp.StatusCode)
	assert.Contains(t, exportResp.Header.Get("Content-Disposition"), fmt.Sprintf("pagelens-run-%d.csv", run.RunID))
	assert.True(t, strings.HasPrefix(string(csvData), "Address,"))

	badExport, err := http.Get(runURL + "/export?format=pdf")
	require.NoError(t, err)
	badExport.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badExport.StatusCode)

	req, _ := http.NewRequest(http.MethodDelete, runURL, nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missing, err := http.Get(runURL)
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	api, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing urls", `{"profile": "mobile"}`},
		{"empty batch", `{"urls": []}`},
		{"too many urls", `{"urls": ["a.test", "b.test", "c.test", "d.test"]}`},
		{"unknown profile", `{"urls": ["a.test"], "profile": "tablet"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := post(t, api.URL+"/api/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var out map[string]string
			require.NoError(t, json.Unmarshal(data, &out))
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestOversizedBodyIsRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	srv := NewServer(app.NewApp(cfg, nil))

	body := `{"urls": ["` + strings.Repeat("a", maxBodyBytes) + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/lighthouse", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Body must contain an array \"urls\""}`, rec.Body.String())
}

func TestRunsWithIDErrors(t *testing.T) {
	api, _ := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/api/v1/runs/abc", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/runs/", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/runs/999", http.StatusNotFound},
		{http.MethodGet, "/api/v1/runs/6f1c2d1e-8a51-4c4b-9a57-0d3f0e0f4b11", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/runs/999", http.StatusNotFound},
		{http.MethodPost, "/api/v1/runs/1", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/runs/1/unknown", http.StatusNotFound},
		{http.MethodPost, "/api/v1/runs", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/health", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/v1/version", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, api.URL+tt.path, nil)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestHealthVersionAndCORS(t *testing.T) {
	api, _ := newTestServer(t)

	resp, err := http.Get(api.URL + "/api/v1/health")
	require.NoError(t, err)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(api.URL + "/api/v1/version")
	require.NoError(t, err)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var version map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&version))
	resp.Body.Close()
	assert.NotEmpty(t, version["version"])

	req, _ := http.NewRequest(http.MethodOptions, api.URL+"/api/v1/analyze", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}
