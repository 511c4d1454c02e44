package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Model preference: a one-line file remembering the last explicitly chosen
// model, so repeat invocations don't need --model.

func modelPrefPath(workspace string) string {
	return filepath.Join(workspace, ".codewright", "model")
}

// LoadModelPreference returns the persisted model name for a workspace, or
// "" when none has been saved.
func LoadModelPreference(workspace string) string {
	data, err := os.ReadFile(modelPrefPath(workspace))
	if err != nil {
		return ""
	}
	// One line only; ignore anything after the first newline.
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line)
}

// SaveModelPreference persists the model name for a workspace.
func SaveModelPreference(workspace, model string) error {
	path := modelPrefPath(workspace)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strings.TrimSpace(model)+"\n"), 0644)
}
