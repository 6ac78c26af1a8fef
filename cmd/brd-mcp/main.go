// brd-mcp serves the BRD wizard as MCP tools over stdio.
//
// Usage:
//
//	brd-mcp            # start the MCP server
//	brd-mcp version    # print the version
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joelkehle/brd-assistant/internal/app"
	"github.com/joelkehle/brd-assistant/internal/config"
	"github.com/joelkehle/brd-assistant/internal/mcptools"
	"github.com/joelkehle/brd-assistant/internal/telemetry"
)

var version = "0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("brd-mcp v%s\n", version)
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
			os.Exit(1)
		}
	}
	// stdout carries the MCP protocol.
	log.SetOutput(os.Stderr)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(ctx)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return server.ServeStdio(mcptools.NewServer(a.Service, version))
}
