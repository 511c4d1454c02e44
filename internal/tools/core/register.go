package core

import (
	"codewright/internal/tools"
)

// Register adds the file tools to a registry over the given workspace.
func Register(registry *tools.Registry, ws *tools.Workspace, opts Options) {
	registry.MustRegister(ListFilesTool(ws))
	registry.MustRegister(ReadFileTool(ws))
	registry.MustRegister(WriteFileTool(ws, opts))
	registry.MustRegister(EditFileTool(ws, opts))
}
