package agent

import (
	"fmt"
	"strings"

	"codewright/internal/tools"
)

// BuildSystemPrompt renders the pinned system instruction: the working
// directory, the registered tools, the action protocol and the editing
// rules. The tool list is generated from the registry so the prompt
// never drifts from what is actually callable.
func BuildSystemPrompt(workDir string, registry *tools.Registry) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a local CLI coding agent working in %s.\n", workDir)
	sb.WriteString(`You must strictly follow this cycle:
1. THINK: Analyze the situation.
2. ACT: Call a tool using the format below, or call finish when the task is complete.

TOOLS AVAILABLE:
`)

	for _, tool := range registry.All() {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", tool.Name, describeArgs(tool), tool.Description)
	}
	sb.WriteString("- finish (ARG1: summary): End the task with a summary of what was done\n")

	sb.WriteString(`
FORMATTING:
To call a tool, end your message with:
TOOL: <tool_name>
ARG1: <argument_1>
ARG2: <argument_2 (if needed)>

EDITING RULES:
- You MUST read a file before writing or editing it.
- Use edit_file for existing files, with ARG2 in this format:
<<<<<<< SEARCH
<exact lines to replace>
=======
<new lines>
>>>>>>> REPLACE
- Keep edits atomic. Avoid rewriting entire files if possible.

Be concise. Focus on the task.`)

	return sb.String()
}

// describeArgs maps a tool's schema onto the ARG1/ARG2 protocol slots.
func describeArgs(tool *tools.Tool) string {
	names := argOrder(tool.Name)
	parts := make([]string, 0, 2)
	for i, name := range names {
		prop, ok := tool.Schema.Properties[name]
		if !ok {
			continue
		}
		desc := name
		if prop.Description != "" {
			desc = name + ": " + prop.Description
		}
		if !isRequired(tool, name) {
			desc += " (optional)"
		}
		parts = append(parts, fmt.Sprintf("ARG%d = %s", i+1, desc))
	}
	if len(parts) == 0 {
		return "no arguments"
	}
	return strings.Join(parts, ", ")
}

func isRequired(tool *tools.Tool, name string) bool {
	for _, r := range tool.Schema.Required {
		if r == name {
			return true
		}
	}
	return false
}
