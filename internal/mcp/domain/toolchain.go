// Package domain defines the MCP tools exposed by the workbench host.
package domain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/workbenchd/workbench/internal/platform/timeouts"
)

// Runner executes one toolchain command and returns its combined output.
type Runner func(ctx context.Context, dir string, name string, args ...string) (string, error)

// ExecRunner runs toolchain commands through the local go binary.
func ExecRunner(ctx context.Context, dir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// ToolchainVersionInput represents the MCP tool input for the version query.
type ToolchainVersionInput struct{}

// ToolchainVersionResult represents the MCP tool output for the version query.
type ToolchainVersionResult struct {
	Version string `json:"version" jsonschema:"go toolchain version string"`
}

// ProjectBuildInput represents the MCP tool input for a project build.
type ProjectBuildInput struct {
	Dir      string `json:"dir" jsonschema:"optional working directory"`
	Packages string `json:"packages" jsonschema:"optional package pattern, defaults to ./..."`
}

// ProjectBuildResult represents the MCP tool output for a project build.
type ProjectBuildResult struct {
	Ok     bool   `json:"ok" jsonschema:"whether the build succeeded"`
	Output string `json:"output" jsonschema:"combined build output"`
}

// ProjectTestInput represents the MCP tool input for a project test run.
type ProjectTestInput struct {
	Dir      string `json:"dir" jsonschema:"optional working directory"`
	Packages string `json:"packages" jsonschema:"optional package pattern, defaults to ./..."`
	Run      string `json:"run" jsonschema:"optional -run regular expression"`
}

// ProjectTestResult represents the MCP tool output for a project test run.
type ProjectTestResult struct {
	Ok     bool   `json:"ok" jsonschema:"whether the tests passed"`
	Output string `json:"output" jsonschema:"combined test output"`
}

// ToolchainVersionTool defines the MCP tool schema for the version query.
func ToolchainVersionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "toolchain_version",
		Description: "Reports the local go toolchain version",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}
}

// ProjectBuildTool defines the MCP tool schema for building the project.
func ProjectBuildTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "project_build",
		Description: "Builds project packages with the local go toolchain",
	}
}

// ProjectTestTool defines the MCP tool schema for running project tests.
func ProjectTestTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "project_test",
		Description: "Runs project tests with the local go toolchain",
	}
}

// ToolchainVersionHandler executes the version query.
func ToolchainVersionHandler(run Runner) mcp.ToolHandlerFor[ToolchainVersionInput, ToolchainVersionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ ToolchainVersionInput) (*mcp.CallToolResult, ToolchainVersionResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, timeouts.ToolchainRun)
		defer cancel()

		output, err := run(runCtx, "", "go", "version")
		if err != nil {
			return nil, ToolchainVersionResult{}, fmt.Errorf("toolchain version failed: %w", err)
		}
		return nil, ToolchainVersionResult{Version: strings.TrimSpace(output)}, nil
	}
}

// ProjectBuildHandler executes a project build request.
func ProjectBuildHandler(run Runner) mcp.ToolHandlerFor[ProjectBuildInput, ProjectBuildResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProjectBuildInput) (*mcp.CallToolResult, ProjectBuildResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, timeouts.ToolchainRun)
		defer cancel()

		output, err := run(runCtx, input.Dir, "go", "build", packagePattern(input.Packages))
		result := ProjectBuildResult{Ok: err == nil, Output: output}
		if err != nil && output == "" {
			return nil, ProjectBuildResult{}, fmt.Errorf("project build failed: %w", err)
		}
		return nil, result, nil
	}
}

// ProjectTestHandler executes a project test request.
func ProjectTestHandler(run Runner) mcp.ToolHandlerFor[ProjectTestInput, ProjectTestResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProjectTestInput) (*mcp.CallToolResult, ProjectTestResult, error) {
		runCtx, cancel := context.WithTimeout(ctx, timeouts.ToolchainRun)
		defer cancel()

		args := []string{"test"}
		if strings.TrimSpace(input.Run) != "" {
			args = append(args, "-run", input.Run)
		}
		args = append(args, packagePattern(input.Packages))

		output, err := run(runCtx, input.Dir, "go", args...)
		result := ProjectTestResult{Ok: err == nil, Output: output}
		if err != nil && output == "" {
			return nil, ProjectTestResult{}, fmt.Errorf("project test failed: %w", err)
		}
		return nil, result, nil
	}
}

func packagePattern(value string) string {
	if strings.TrimSpace(value) == "" {
		return "./..."
	}
	return value
}
