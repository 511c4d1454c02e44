package shell

import (
	"time"

	"codewright/internal/tools"
)

// Register adds the shell tools to the registry with a shared command
// timeout.
func Register(registry *tools.Registry, ws *tools.Workspace, timeout time.Duration) {
	registry.MustRegister(RunCommandTool(ws, timeout))
	registry.MustRegister(SearchTextTool(ws, timeout))
}
