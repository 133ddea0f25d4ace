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

package mcp

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentberlin/pagelens/internal/app"
	"github.com/agentberlin/pagelens/internal/version"
)

const (
	ServerName = "pagelens"
)

// MCPServer exposes the pagelens app as MCP tools
type MCPServer struct {
	server *mcp.Server
	app    *app.App
	logger *log.Logger
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(coreApp *app.App) *MCPServer {
	logger := log.New(os.Stderr, "[pagelens MCP] ", log.LstdFlags)

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: version.CurrentVersion,
	}, nil)

	s := &MCPServer{
		server: mcpServer,
		app:    coreApp,
		logger: logger,
	}

	s.registerTools()

	logger.Printf("MCP server initialized successfully")
	return s
}

// GetServer returns the internal MCP server instance
func (s *MCPServer) GetServer() *mcp.Server {
	return s.server
}

// Handler returns the streamable HTTP handler serving the tools.
func (s *MCPServer) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.server }, nil)
}

// RunHTTP listens on addr and serves the tools over streamable HTTP in the
// background. Bind errors are returned; later serve errors are logged.
func (s *MCPServer) RunHTTP(addr string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}()

	s.logger.Printf("Serving MCP tools on http://%s", ln.Addr())
	return httpServer, nil
}
