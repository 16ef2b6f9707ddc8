package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	workbenchcmd "github.com/workbenchd/workbench/internal/cmd/workbench"
	"github.com/workbenchd/workbench/internal/platform/config"
)

// main starts the workbench MCP server on stdio or HTTP.
func main() {
	cfg, err := workbenchcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[workbench] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := workbenchcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve MCP: %v", err)
	}
}
