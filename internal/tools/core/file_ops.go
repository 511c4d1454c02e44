package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codewright/internal/logging"
	"codewright/internal/patch"
	"codewright/internal/tools"
)

// Options tunes file tool behavior.
type Options struct {
	// DiffOnly renders the preview of a write/edit instead of applying it.
	DiffOnly bool
}

// ListFilesTool returns a tool listing the immediate children of a
// directory, directories suffixed with a path separator.
func ListFilesTool(ws *tools.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "list_files",
		Description: "List files in a directory",
		Category:    tools.CategoryObserve,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				path = "."
			}
			return executeListFiles(ws, path)
		},
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "The directory path to list (default: workspace root)"},
			},
		},
	}
}

func executeListFiles(ws *tools.Workspace, path string) (string, error) {
	target := ws.Resolve(path)
	logging.ToolsDebug("list_files: path=%s resolved=%s", path, target)

	entries, err := os.ReadDir(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", tools.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to list %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += string(os.PathSeparator)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return strings.Join(names, "\n"), nil
}

// ReadFileTool returns a tool reading full file content. A successful
// read marks the path as observed, unlocking write/edit on it.
func ReadFileTool(ws *tools.Workspace) *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Category:    tools.CategoryObserve,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			return executeReadFile(ws, path)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "The file path to read"},
			},
		},
	}
}

func executeReadFile(ws *tools.Workspace, path string) (string, error) {
	target := ws.Resolve(path)
	logging.ToolsDebug("read_file: path=%s resolved=%s", path, target)

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file %s", tools.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", tools.ErrIsDirectory, path)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	ws.MarkRead(target)
	logging.Tools("read_file: %s (%d bytes, %d paths observed)", path, len(content), ws.ReadCount())
	return string(content), nil
}

// WriteFileTool returns a tool for creating or overwriting a file.
// Overwriting an existing file requires it to have been read first.
func WriteFileTool(ws *tools.Workspace, opts Options) *tools.Tool {
	return &tools.Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating it and parent directories if needed",
		Category:    tools.CategoryMutate,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			return executeWriteFile(ws, opts, path, content)
		},
		Preview: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			return previewWriteFile(ws, path, content), nil
		},
		Schema: tools.ToolSchema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path":    {Type: "string", Description: "The file path to write"},
				"content": {Type: "string", Description: "The full content to write"},
			},
		},
	}
}

// previewWriteFile renders the old-vs-new diff of a pending write
// without touching the file. Empty when the write changes nothing.
func previewWriteFile(ws *tools.Workspace, path, content string) string {
	target := ws.Resolve(path)
	existing := ""
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		if data, err := os.ReadFile(target); err == nil {
			existing = string(data)
		}
	}
	return patch.Preview(path, existing, content)
}

// previewEditFile renders the diff a search/replace payload would
// produce, without applying it. Errors mirror what execution would hit.
func previewEditFile(ws *tools.Workspace, path, payload string) (string, error) {
	target := ws.Resolve(path)
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: cannot edit, file %s does not exist", tools.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	block, err := patch.ParseBlock(payload)
	if err != nil {
		return "", err
	}
	updated, err := patch.Apply(string(data), block)
	if err != nil {
		return "", err
	}
	return patch.Preview(path, string(data), updated), nil
}

func executeWriteFile(ws *tools.Workspace, opts Options, path, content string) (string, error) {
	target := ws.Resolve(path)
	logging.ToolsDebug("write_file: path=%s resolved=%s size=%d", path, target, len(content))

	if info, err := os.Stat(target); err == nil && !info.IsDir() && !ws.IsRead(target) {
		logging.ToolsWarn("write_file: read-before-write breach on %s", path)
		return "", fmt.Errorf("%w: you must read '%s' before writing to it", tools.ErrPolicyViolation, path)
	}

	if opts.DiffOnly {
		preview := previewWriteFile(ws, path, content)
		if preview == "" {
			return fmt.Sprintf("No changes for %s", path), nil
		}
		return "DIFF ONLY (not applied):\n" + preview, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create directories for %s: %w", path, err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	// The session produced this content; it counts as observed.
	ws.MarkRead(target)
	logging.Tools("write_file: %s (%d bytes)", path, len(content))
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

// EditFileTool returns a tool applying a search/replace block to an
// existing, previously read file.
func EditFileTool(ws *tools.Workspace, opts Options) *tools.Tool {
	return &tools.Tool{
		Name:        "edit_file",
		Description: "Edit an existing file with a SEARCH/REPLACE block",
		Category:    tools.CategoryMutate,
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			payload, _ := args["diff"].(string)
			return executeEditFile(ws, opts, path, payload)
		},
		Preview: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			payload, _ := args["diff"].(string)
			return previewEditFile(ws, path, payload)
		},
		Schema: tools.ToolSchema{
			Required: []string{"path", "diff"},
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "The file path to edit"},
				"diff": {Type: "string", Description: "A <<<<<<< SEARCH / ======= / >>>>>>> REPLACE block"},
			},
		},
	}
}

func executeEditFile(ws *tools.Workspace, opts Options, path, payload string) (string, error) {
	target := ws.Resolve(path)
	logging.ToolsDebug("edit_file: path=%s resolved=%s payload_len=%d", path, target, len(payload))

	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: cannot edit, file %s does not exist", tools.ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", tools.ErrIsDirectory, path)
	}
	if !ws.IsRead(target) {
		logging.ToolsWarn("edit_file: read-before-write breach on %s", path)
		return "", fmt.Errorf("%w: you must read '%s' before editing it", tools.ErrPolicyViolation, path)
	}

	block, err := patch.ParseBlock(payload)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	original := string(data)

	// Apply never partially mutates: on error the file stays untouched.
	updated, err := patch.Apply(original, block)
	if err != nil {
		return "", err
	}

	preview := patch.Preview(path, original, updated)

	if opts.DiffOnly {
		if preview == "" {
			return fmt.Sprintf("No changes for %s", path), nil
		}
		return "DIFF ONLY (not applied):\n" + preview, nil
	}

	if err := os.WriteFile(target, []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logging.Tools("edit_file: %s (%d -> %d bytes)", path, len(original), len(updated))
	if preview == "" {
		return fmt.Sprintf("Successfully applied edit to %s (no content change)", path), nil
	}
	return fmt.Sprintf("Successfully applied edit to %s:\n%s", path, preview), nil
}
