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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentberlin/pagelens/internal/mcp"
)

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	var configPath, host string
	var port int
	fs.StringVar(&configPath, "config", "", "Path to a YAML config file")
	fs.StringVar(&host, "host", "127.0.0.1", "Host to bind the MCP server to")
	fs.IntVar(&port, "port", 3001, "Port to serve the MCP tools on")

	fs.Usage = func() {
		fmt.Println(`Usage: pagelens mcp [flags]

Serve the analyze_urls, lighthouse, list_runs and get_run tools over
streamable HTTP.

Flags:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	coreApp, st, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer st.Close()

	httpServer, err := mcp.NewMCPServer(coreApp).RunHTTP(fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down MCP server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
