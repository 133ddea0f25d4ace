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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kennygrant/sanitize"

	"github.com/agentberlin/pagelens/internal/app"
	"github.com/agentberlin/pagelens/internal/export"
	"github.com/agentberlin/pagelens/internal/store"
	"github.com/agentberlin/pagelens/internal/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// errURLsRequired is the /lighthouse validation message.
const errURLsRequired = `Body must contain an array "urls"`

// Server represents the HTTP server
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// NewServer creates a new HTTP server
func NewServer(app *app.App) *Server {
	s := &Server{
		app: app,
		mux: http.NewServeMux(),
	}

	// Register routes
	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// CORS middleware
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	// Handle preflight
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	// Logging middleware
	log.Printf("%s %s", r.Method, r.URL.Path)

	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	}

	// Serve request
	s.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/lighthouse", s.handleLighthouse)
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/version", s.handleGetVersion)
	s.mux.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/api/v1/runs/", s.handleRunsWithID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps application errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNoURLs), errors.Is(err, app.ErrTooManyURLs), errors.Is(err, app.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeURLs reads a JSON object whose "urls" member must be an array of
// strings. The remaining members are decoded into extra when it is non-nil.
func decodeURLs(r *http.Request, extra interface{}) ([]string, bool) {
	body, err := readBody(r)
	if err != nil {
		return nil, false
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, false
	}
	rawURLs, ok := raw["urls"]
	if !ok {
		return nil, false
	}
	var urls []string
	if err := json.Unmarshal(rawURLs, &urls); err != nil || urls == nil {
		return nil, false
	}

	if extra != nil {
		if err := json.Unmarshal(body, extra); err != nil {
			return nil, false
		}
	}
	return urls, true
}

func readBody(r *http.Request) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// handleLighthouse handles POST /lighthouse
func (s *Server) handleLighthouse(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urls, ok := decodeURLs(r, nil)
	if !ok {
		writeError(w, http.StatusBadRequest, errURLsRequired)
		return
	}

	entries, err := s.app.Lighthouse(r.Context(), urls)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("Error in /lighthouse endpoint: %v", err)
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": entries,
	})
}

// handleAnalyze handles POST /api/v1/analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req types.AnalyzeRequest
	urls, ok := decodeURLs(r, &req)
	if !ok {
		writeError(w, http.StatusBadRequest, errURLsRequired)
		return
	}
	req.URLs = urls

	resp, err := s.app.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := s.app.CheckSystemHealth()
	status := "ok"
	if !health.IsHealthy {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": status,
		"system": health,
	})
}

// handleGetVersion returns the application version
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.app.GetVersion(),
	})
}

// handleRuns handles GET /api/v1/runs?limit=N
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	runs, err := s.app.ListRuns(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}

// handleRunsWithID handles /api/v1/runs/{id} and /api/v1/runs/{id}/export
func (s *Server) handleRunsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	parts := strings.Split(path, "/")

	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Run ID required", http.StatusBadRequest)
		return
	}

	runID, err := s.app.ResolveRunID(parts[0])
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	switch {
	// GET /api/v1/runs/{id}
	case len(parts) == 1 && r.Method == "GET":
		detail, err := s.app.GetRun(runID)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(detail)

	// DELETE /api/v1/runs/{id}
	case len(parts) == 1 && r.Method == "DELETE":
		if err := s.app.DeleteRun(runID); err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}
		w.WriteHeader(http.StatusNoContent)

	// GET /api/v1/runs/{id}/export?format=xlsx|csv|json
	case len(parts) == 2 && parts[1] == "export" && r.Method == "GET":
		s.exportRun(w, r, runID)

	case len(parts) == 1 || (len(parts) == 2 && parts[1] == "export"):
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)

	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

func (s *Server) exportRun(w http.ResponseWriter, r *http.Request, runID uint) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = export.FormatXLSX
	}

	var buf bytes.Buffer
	if err := s.app.ExportRun(runID, format, &buf); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	filename := sanitize.BaseName(fmt.Sprintf("pagelens-run-%d", runID)) + "." + format
	w.Header().Set("Content-Type", export.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
