package agent

import (
	"strings"

	"codewright/internal/patch"
)

// Action is one structured request decoded from a model reply: a tool
// name and up to two string arguments.
type Action struct {
	Tool string
	Arg1 string
	Arg2 string
}

// ParseAction scans a model reply for a tool invocation. The reply is
// treated as an ordered sequence of lines; the LAST TOOL: line wins, so
// the model may reason in prose before committing to an action. Returns
// ok=false when no TOOL: line exists, signaling a conversational reply.
//
// Argument 1 starts at an ARG1: line directly under the TOOL: line and
// continues across following lines until an ARG2: or TOOL: marker. For
// edit_file a search/replace block opener also ends argument 1 and
// starts argument 2 implicitly; from there everything up to the next
// TOOL: line is argument 2 verbatim, marker-like lines included, since
// diff payloads legitimately contain them.
func ParseAction(text string) (Action, bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")

	var action Action
	found := false

	for i, line := range lines {
		if !strings.HasPrefix(line, "TOOL:") {
			continue
		}
		found = true
		action = Action{Tool: strings.TrimSpace(strings.TrimPrefix(line, "TOOL:"))}

		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "ARG1:") {
			continue
		}
		arg1Lines := []string{strings.TrimSpace(strings.TrimPrefix(lines[i+1], "ARG1:"))}

		j := i + 2
		for j < len(lines) && !strings.HasPrefix(lines[j], "ARG2:") && !strings.HasPrefix(lines[j], "TOOL:") {
			if action.Tool == "edit_file" && patch.IsBlockStart(lines[j]) {
				break
			}
			arg1Lines = append(arg1Lines, lines[j])
			j++
		}
		action.Arg1 = strings.Join(arg1Lines, "\n")

		if j >= len(lines) {
			continue
		}
		switch {
		case strings.HasPrefix(lines[j], "ARG2:"):
			arg2Lines := []string{strings.TrimSpace(strings.TrimPrefix(lines[j], "ARG2:"))}
			for k := j + 1; k < len(lines) && !strings.HasPrefix(lines[k], "TOOL:"); k++ {
				arg2Lines = append(arg2Lines, lines[k])
			}
			action.Arg2 = strings.Join(arg2Lines, "\n")
		case action.Tool == "edit_file" && patch.IsBlockStart(lines[j]):
			arg2Lines := []string{lines[j]}
			for k := j + 1; k < len(lines) && !strings.HasPrefix(lines[k], "TOOL:"); k++ {
				arg2Lines = append(arg2Lines, lines[k])
			}
			action.Arg2 = strings.Join(arg2Lines, "\n")
		}
	}

	return action, found
}
