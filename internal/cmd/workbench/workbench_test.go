package workbench

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("workbench", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("transport = %q, want stdio", cfg.Transport)
	}
	if cfg.HTTPAddr != "localhost:8081" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.CompanionEnabled {
		t.Fatal("expected companion bridge disabled by default")
	}
	if cfg.CompanionBinary != "workbench-companion" {
		t.Fatalf("companion binary = %q", cfg.CompanionBinary)
	}
}

func TestParseConfigEnvOverrides(t *testing.T) {
	t.Setenv("WORKBENCH_TRANSPORT", "http")
	t.Setenv("WORKBENCH_COMPANION_ENABLED", "true")
	t.Setenv("WORKBENCH_COMPANION_ARGS", "--verbose --cache /tmp/cache")

	fs := flag.NewFlagSet("workbench", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "http" {
		t.Fatalf("transport = %q, want http", cfg.Transport)
	}
	if !cfg.CompanionEnabled {
		t.Fatal("expected companion bridge enabled from env")
	}
	args := splitArgs(cfg.CompanionArgs)
	if len(args) != 3 || args[0] != "--verbose" || args[2] != "/tmp/cache" {
		t.Fatalf("companion args = %v", args)
	}
}

func TestParseConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("WORKBENCH_TRANSPORT", "http")

	fs := flag.NewFlagSet("workbench", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-transport", "stdio"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Transport != "stdio" {
		t.Fatalf("transport = %q, want flag override", cfg.Transport)
	}
}

func TestSplitArgsEmpty(t *testing.T) {
	if args := splitArgs("   "); args != nil {
		t.Fatalf("expected nil for blank input, got %v", args)
	}
}
