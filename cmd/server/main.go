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

// pagelens HTTP Server
//
// Serves page analysis over HTTP: the POST /lighthouse endpoint and the
// /api/v1 REST API. Optionally serves the MCP tools on a second port.
//
// Usage:
//
//	pagelens-server [flags]
//
// Flags:
//
//	-config string  Path to a YAML config file
//	-host string    Host to bind the server to (default "0.0.0.0")
//	-port int       Port to run the server on (default 3000, or $PORT)
//	-mcp-port int   Serve MCP tools over HTTP on this port (0 disables)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentberlin/pagelens/internal/app"
	"github.com/agentberlin/pagelens/internal/config"
	"github.com/agentberlin/pagelens/internal/mcp"
	"github.com/agentberlin/pagelens/internal/server"
	"github.com/agentberlin/pagelens/internal/store"
	"github.com/agentberlin/pagelens/internal/version"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to a YAML config file")
	port := flag.Int("port", 3000, "Port to run the HTTP server on")
	host := flag.String("host", "0.0.0.0", "Host to bind the HTTP server to")
	mcpPort := flag.Int("mcp-port", 0, "Port for the MCP HTTP server (0 disables it)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("pagelens server %s\n", version.CurrentVersion)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given explicitly win over the file and the environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "host":
			cfg.Server.Host = *host
		case "mcp-port":
			cfg.Server.MCPPort = *mcpPort
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize the database store
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer st.Close()

	coreApp := app.NewApp(cfg, st)
	if health := coreApp.CheckSystemHealth(); !health.IsHealthy {
		log.Printf("Warning: %s: %s", health.ErrorTitle, health.ErrorMsg)
	}

	srv := server.NewServer(coreApp)

	// Analyses of large batches outlive any fixed write timeout.
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     srv,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("pagelens server %s starting on %s", version.CurrentVersion, addr)
		log.Printf("Health check: http://%s/api/v1/health", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	var mcpHTTP *http.Server
	if cfg.Server.MCPPort > 0 {
		mcpHTTP, err = mcp.NewMCPServer(coreApp).RunHTTP(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MCPPort))
		if err != nil {
			log.Fatalf("Failed to start MCP server: %v", err)
		}
	}

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if mcpHTTP != nil {
		if err := mcpHTTP.Shutdown(ctx); err != nil {
			log.Printf("MCP server forced to shutdown: %v", err)
		}
	}
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
