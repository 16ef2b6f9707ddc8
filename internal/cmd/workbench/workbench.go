// Package workbench parses workbench command flags and selects stdio or HTTP
// transport.
package workbench

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/workbenchd/workbench/internal/mcp/service"
	"github.com/workbenchd/workbench/internal/platform/config"
	"github.com/workbenchd/workbench/internal/platform/otel"
)

// Config holds workbench command configuration.
type Config struct {
	Transport        string `env:"WORKBENCH_TRANSPORT"         envDefault:"stdio"`
	HTTPAddr         string `env:"WORKBENCH_HTTP_ADDR"         envDefault:"localhost:8081"`
	HistoryPath      string `env:"WORKBENCH_HISTORY_PATH"`
	CompanionEnabled bool   `env:"WORKBENCH_COMPANION_ENABLED" envDefault:"false"`
	CompanionBinary  string `env:"WORKBENCH_COMPANION_BINARY"  envDefault:"workbench-companion"`
	CompanionArgs    string `env:"WORKBENCH_COMPANION_ARGS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport type: stdio or http")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address (for HTTP transport)")
	fs.StringVar(&cfg.HistoryPath, "history-path", cfg.HistoryPath, "SQLite invocation history path (empty disables history)")
	fs.BoolVar(&cfg.CompanionEnabled, "companion", cfg.CompanionEnabled, "Enable the companion bridge")
	fs.StringVar(&cfg.CompanionBinary, "companion-binary", cfg.CompanionBinary, "Companion binary name located via PATH")
	fs.StringVar(&cfg.CompanionArgs, "companion-args", cfg.CompanionArgs, "Space-separated companion arguments")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the workbench MCP server.
func Run(ctx context.Context, cfg Config) error {
	shutdown, err := otel.Setup(ctx, "workbench")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	return service.Run(ctx, service.Config{
		Transport:        service.TransportKind(cfg.Transport),
		HTTPAddr:         cfg.HTTPAddr,
		HistoryPath:      cfg.HistoryPath,
		CompanionEnabled: cfg.CompanionEnabled,
		CompanionBinary:  cfg.CompanionBinary,
		CompanionArgs:    splitArgs(cfg.CompanionArgs),
	})
}

// splitArgs splits a space-separated argument string, dropping empty fields.
func splitArgs(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Fields(value)
}
