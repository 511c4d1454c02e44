package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codewright/internal/tools"
)

func newWorkspace(t *testing.T) *tools.Workspace {
	t.Helper()
	ws, err := tools.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	return ws
}

func seed(t *testing.T, ws *tools.Workspace, name, content string) {
	t.Helper()
	target := ws.Resolve(name)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func run(t *testing.T, tool *tools.Tool, args map[string]any) (string, error) {
	t.Helper()
	return tool.Execute(context.Background(), args)
}

func TestListFiles(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "b.txt", "b")
	seed(t, ws, "a.txt", "a")
	seed(t, ws, "sub/inner.txt", "x")

	out, err := run(t, ListFilesTool(ws), map[string]any{})
	if err != nil {
		t.Fatalf("list_files: %v", err)
	}
	want := "a.txt\nb.txt\nsub" + string(os.PathSeparator)
	if out != want {
		t.Errorf("list_files = %q, want %q", out, want)
	}
}

func TestListFilesMissingDir(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, ListFilesTool(ws), map[string]any{"path": "nope"})
	if !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestReadFile(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "main.go", "package main\n")

	out, err := run(t, ReadFileTool(ws), map[string]any{"path": "main.go"})
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if out != "package main\n" {
		t.Errorf("content = %q", out)
	}
	if !ws.IsRead(ws.Resolve("main.go")) {
		t.Error("successful read should mark the path observed")
	}
}

func TestReadFileErrors(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "dir/x.txt", "x")

	_, err := run(t, ReadFileTool(ws), map[string]any{"path": "absent.txt"})
	if !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("missing file: want ErrNotFound, got %v", err)
	}

	_, err = run(t, ReadFileTool(ws), map[string]any{"path": "dir"})
	if !errors.Is(err, tools.ErrIsDirectory) {
		t.Errorf("directory: want ErrIsDirectory, got %v", err)
	}
}

func TestWriteNewFileCreatesParents(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, WriteFileTool(ws, Options{}), map[string]any{
		"path":    "new/dir/file.txt",
		"content": "hi",
	})
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if out != "Successfully wrote 2 bytes to new/dir/file.txt" {
		t.Errorf("message = %q", out)
	}

	data, err := os.ReadFile(ws.Resolve("new/dir/file.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("content = %q", data)
	}
	if !ws.IsRead(ws.Resolve("new/dir/file.txt")) {
		t.Error("write should mark the path observed")
	}
}

func TestWriteExistingUnreadIsRefused(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "config.yaml", "version: 1\n")

	_, err := run(t, WriteFileTool(ws, Options{}), map[string]any{
		"path":    "config.yaml",
		"content": "version: 2\n",
	})
	if !errors.Is(err, tools.ErrPolicyViolation) {
		t.Fatalf("want ErrPolicyViolation, got %v", err)
	}
	if !strings.Contains(err.Error(), "must read 'config.yaml' before writing") {
		t.Errorf("error message = %q", err)
	}

	// The refusal must leave the file untouched.
	data, _ := os.ReadFile(ws.Resolve("config.yaml"))
	if string(data) != "version: 1\n" {
		t.Errorf("file mutated despite refusal: %q", data)
	}
}

func TestWriteAfterReadSucceeds(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "config.yaml", "version: 1\n")

	if _, err := run(t, ReadFileTool(ws), map[string]any{"path": "config.yaml"}); err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if _, err := run(t, WriteFileTool(ws, Options{}), map[string]any{
		"path":    "config.yaml",
		"content": "version: 2\n",
	}); err != nil {
		t.Fatalf("write_file after read: %v", err)
	}

	data, _ := os.ReadFile(ws.Resolve("config.yaml"))
	if string(data) != "version: 2\n" {
		t.Errorf("content = %q", data)
	}
}

func TestWriteUnlocksViaEquivalentPath(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "a.txt", "old")

	// Read under one spelling, write under another; resolution must
	// converge so the policy sees the same path.
	if _, err := run(t, ReadFileTool(ws), map[string]any{"path": "./a.txt"}); err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if _, err := run(t, WriteFileTool(ws, Options{}), map[string]any{
		"path":    "sub/../a.txt",
		"content": "new",
	}); err != nil {
		t.Fatalf("write_file: %v", err)
	}
}

func TestWriteDiffOnly(t *testing.T) {
	ws := newWorkspace(t)

	out, err := run(t, WriteFileTool(ws, Options{DiffOnly: true}), map[string]any{
		"path":    "plan.md",
		"content": "# Plan\n",
	})
	if err != nil {
		t.Fatalf("write_file: %v", err)
	}
	if !strings.HasPrefix(out, "DIFF ONLY (not applied):\n") {
		t.Errorf("message = %q", out)
	}
	if _, err := os.Stat(ws.Resolve("plan.md")); !os.IsNotExist(err) {
		t.Error("diff-only mode must not create the file")
	}
}

func TestWritePreviewRendersWithoutApplying(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "config.yaml", "version: 1\n")
	if _, err := run(t, ReadFileTool(ws), map[string]any{"path": "config.yaml"}); err != nil {
		t.Fatalf("read_file: %v", err)
	}

	tool := WriteFileTool(ws, Options{})
	preview, err := tool.Preview(context.Background(), map[string]any{
		"path":    "config.yaml",
		"content": "version: 2\n",
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !strings.Contains(preview, "-version: 1") || !strings.Contains(preview, "+version: 2") {
		t.Errorf("preview = %q", preview)
	}

	data, _ := os.ReadFile(ws.Resolve("config.yaml"))
	if string(data) != "version: 1\n" {
		t.Errorf("preview mutated the file: %q", data)
	}
}

func TestEditPreviewRendersWithoutApplying(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "code.go", "first\nold line\nlast\n")

	tool := EditFileTool(ws, Options{})
	preview, err := tool.Preview(context.Background(), map[string]any{
		"path": "code.go",
		"diff": editPayload,
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !strings.Contains(preview, "-old line") || !strings.Contains(preview, "+new line") {
		t.Errorf("preview = %q", preview)
	}

	data, _ := os.ReadFile(ws.Resolve("code.go"))
	if string(data) != "first\nold line\nlast\n" {
		t.Errorf("preview mutated the file: %q", data)
	}
}

const editPayload = "<<<<<<< SEARCH\nold line\n=======\nnew line\n>>>>>>> REPLACE"

func TestEditFile(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "code.go", "first\nold line\nlast\n")

	if _, err := run(t, ReadFileTool(ws), map[string]any{"path": "code.go"}); err != nil {
		t.Fatalf("read_file: %v", err)
	}
	out, err := run(t, EditFileTool(ws, Options{}), map[string]any{
		"path": "code.go",
		"diff": editPayload,
	})
	if err != nil {
		t.Fatalf("edit_file: %v", err)
	}
	if !strings.Contains(out, "Successfully applied edit to code.go") {
		t.Errorf("message = %q", out)
	}
	if !strings.Contains(out, "+new line") {
		t.Errorf("success message should include the preview: %q", out)
	}

	data, _ := os.ReadFile(ws.Resolve("code.go"))
	if string(data) != "first\nnew line\nlast\n" {
		t.Errorf("content = %q", data)
	}
}

func TestEditMissingFile(t *testing.T) {
	ws := newWorkspace(t)
	_, err := run(t, EditFileTool(ws, Options{}), map[string]any{
		"path": "ghost.go",
		"diff": editPayload,
	})
	if !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
}

func TestEditUnreadFileIsRefused(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "code.go", "old line\n")

	_, err := run(t, EditFileTool(ws, Options{}), map[string]any{
		"path": "code.go",
		"diff": editPayload,
	})
	if !errors.Is(err, tools.ErrPolicyViolation) {
		t.Errorf("want ErrPolicyViolation, got %v", err)
	}
}

func TestEditNoMatchLeavesFileUntouched(t *testing.T) {
	ws := newWorkspace(t)
	seed(t, ws, "code.go", "nothing matches here\n")

	if _, err := run(t, ReadFileTool(ws), map[string]any{"path": "code.go"}); err != nil {
		t.Fatalf("read_file: %v", err)
	}
	_, err := run(t, EditFileTool(ws, Options{}), map[string]any{
		"path": "code.go",
		"diff": editPayload,
	})
	if err == nil {
		t.Fatal("expected no-match error")
	}

	data, _ := os.ReadFile(ws.Resolve("code.go"))
	if string(data) != "nothing matches here\n" {
		t.Errorf("file mutated despite failed edit: %q", data)
	}
}
