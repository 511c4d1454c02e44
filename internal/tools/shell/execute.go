// Package shell provides command execution and text search tools. Commands
// run through the shell in the workspace root with a hard wall-clock
// timeout; exceeding it yields a timeout error, never a hang.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"codewright/internal/logging"
	"codewright/internal/tools"
)

// DefaultTimeout bounds shell commands when no override is configured.
const DefaultTimeout = 60 * time.Second

// maxOutputBytes caps the report fed back into the model's context.
const maxOutputBytes = 50000

// RunCommandTool returns a tool executing a shell command in the
// workspace root. Non-zero exit codes are part of the report, not errors;
// only a timeout is.
func RunCommandTool(ws *tools.Workspace, timeout time.Duration) *tools.Tool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &tools.Tool{
		Name:        "run_command",
		Description: "Execute a shell command and return exit code, stdout and stderr",
		Category:    tools.CategoryMutate,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			return executeRunCommand(ctx, ws, command, timeout)
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {Type: "string", Description: "The shell command to execute"},
			},
		},
	}
}

func executeRunCommand(ctx context.Context, ws *tools.Workspace, command string, timeout time.Duration) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("command is required")
	}

	logging.ToolsDebug("run_command: cmd=%s dir=%s timeout=%v", command, ws.Root(), timeout)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = ws.Root()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if execCtx.Err() == context.DeadlineExceeded {
		logging.ToolsWarn("run_command: timeout after %v: %s", timeout, command)
		return "", fmt.Errorf("%w after %v: %s", tools.ErrCommandTimeout, timeout, command)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Shell failed to start at all (sh missing, bad dir).
			return "", fmt.Errorf("failed to run command: %w", err)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Exit Code: %d\n", exitCode)
	if stdout.Len() > 0 {
		fmt.Fprintf(&sb, "STDOUT:\n%s\n", stdout.String())
	}
	if stderr.Len() > 0 {
		fmt.Fprintf(&sb, "STDERR:\n%s\n", stderr.String())
	}

	output := sb.String()
	if len(output) > maxOutputBytes {
		output = output[:maxOutputBytes] + "\n...[truncated]"
	}

	logging.Tools("run_command: exit=%d output=%d bytes: %s", exitCode, len(output), command)
	return output, nil
}

// SearchTextTool returns a tool for recursive text search. It delegates
// to a grep invocation through run_command rather than matching in
// process.
func SearchTextTool(ws *tools.Workspace, timeout time.Duration) *tools.Tool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &tools.Tool{
		Name:        "search_text",
		Description: "Recursively search files for a text pattern",
		Category:    tools.CategoryObserve,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			pattern, _ := args["pattern"].(string)
			path, _ := args["path"].(string)
			return executeSearchText(ctx, ws, pattern, path, timeout)
		},
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {Type: "string", Description: "The text pattern to search for"},
				"path":    {Type: "string", Description: "Directory to search (default: workspace root)"},
			},
		},
	}
}

func executeSearchText(ctx context.Context, ws *tools.Workspace, pattern, path string, timeout time.Duration) (string, error) {
	if strings.TrimSpace(pattern) == "" {
		return "", fmt.Errorf("pattern is required")
	}
	if path == "" {
		path = "."
	}

	command := fmt.Sprintf("grep -rn --exclude-dir=.git %s %s", shellQuote(pattern), shellQuote(path))
	logging.ToolsDebug("search_text: %s", command)

	report, err := executeRunCommand(ctx, ws, command, timeout)
	if err != nil {
		return "", err
	}
	// grep exits 1 on no matches; make that explicit for the model.
	if strings.HasPrefix(report, "Exit Code: 1\n") && !strings.Contains(report, "STDOUT:") {
		return fmt.Sprintf("No matches for %q in %s", pattern, path), nil
	}
	return report, nil
}

// shellQuote wraps s in single quotes for use in a sh -c command line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
