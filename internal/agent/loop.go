// Package agent implements the think/act loop: it sends the
// conversation to the model, decodes the reply into an action, gates
// mutations behind confirmation, executes through the tool registry and
// feeds the observation back as the next user turn.
package agent

import (
	"context"
	"fmt"
	"strings"

	"codewright/internal/console"
	"codewright/internal/llm"
	"codewright/internal/logging"
	"codewright/internal/tools"
)

// FinishTool is the sentinel action the model calls to end the task.
const FinishTool = "finish"

// CompletionClient is the model backend as the loop sees it: one
// synchronous call returning plain reply text.
type CompletionClient interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// UserInputFunc supplies the operator's reply when the model responds
// conversationally instead of acting. Returning io.EOF-style errors
// terminates the loop.
type UserInputFunc func(prompt string) (string, error)

// Loop runs one task end to end. Strictly sequential: one model call,
// one parse, one tool execution per iteration.
type Loop struct {
	client    CompletionClient
	registry  *tools.Registry
	conv      *Conversation
	confirmer Confirmer
	ui        *console.Printer
	userInput UserInputFunc
	sessionID string
	log       *logging.SessionLogger
}

// Options configures a Loop.
type Options struct {
	Client    CompletionClient
	Registry  *tools.Registry
	Conv      *Conversation
	Confirmer Confirmer
	UI        *console.Printer
	UserInput UserInputFunc
	SessionID string
}

// New creates a loop. Confirmer defaults to AutoApprove and UI to a
// plain printer when unset.
func New(opts Options) *Loop {
	confirmer := opts.Confirmer
	if confirmer == nil {
		confirmer = AutoApprove{}
	}
	ui := opts.UI
	if ui == nil {
		ui = console.NewPrinter()
	}
	return &Loop{
		client:    opts.Client,
		registry:  opts.Registry,
		conv:      opts.Conv,
		confirmer: confirmer,
		ui:        ui,
		userInput: opts.UserInput,
		sessionID: opts.SessionID,
		log:       logging.WithSessionID(logging.CategoryLoop, opts.SessionID),
	}
}

// Run drives the loop for one task until termination. A model backend
// failure is the one fatal outcome; every tool failure flows back to
// the model as an observation instead. Context cancellation is honored
// at iteration boundaries only, never mid-call.
func (l *Loop) Run(ctx context.Context, task string) error {
	l.ui.TaskBanner(task)
	l.log.Info("Task started: %s", task)
	l.conv.AddUser(task)

	for step := 1; ; step++ {
		if err := ctx.Err(); err != nil {
			l.ui.Warn("Interrupted.")
			l.log.Info("Interrupted at step %d", step)
			return nil
		}

		l.ui.Step(step)
		reply, err := l.client.Complete(ctx, l.conv.Messages())
		if err != nil {
			l.log.Error("Model call failed at step %d: %v", step, err)
			return fmt.Errorf("model call failed: %w", err)
		}
		l.conv.AddAssistant(reply)
		l.ui.Thought(reply)

		action, ok := ParseAction(reply)
		if !ok {
			done, err := l.handleConversationalReply()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
			continue
		}

		if action.Tool == FinishTool {
			l.ui.Finished(action.Arg1)
			l.log.Info("Task finished after %d steps", step)
			return nil
		}

		observation := l.perform(ctx, action)
		l.ui.ToolOutput(action.Tool, observation)
		l.conv.AddUser("TOOL OUTPUT: " + observation)
	}
}

// handleConversationalReply waits for operator input when the model did
// not act. Returns done=true on the exit sentinel.
func (l *Loop) handleConversationalReply() (bool, error) {
	l.ui.Warn("No tool call detected. Waiting for user input...")
	reply, err := l.userInput("Your response (or 'exit')")
	if err != nil {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	if isExitSentinel(reply) {
		l.log.Info("User exit")
		return true, nil
	}
	l.conv.AddUser(reply)
	return false, nil
}

// perform runs one action and renders its observation text. Unknown
// tools and denied confirmations are observations too; the model gets
// to react to them.
func (l *Loop) perform(ctx context.Context, action Action) string {
	tool := l.registry.Get(action.Tool)
	if tool == nil {
		l.log.Info("Unknown tool requested: %s", action.Tool)
		return fmt.Sprintf("Error: Unknown tool '%s'", action.Tool)
	}

	args := buildArgs(action)

	if tool.IsMutating() {
		// The operator approves a concrete diff, not a tool name: render
		// the pending change ahead of the gate. A preview failure is not
		// fatal here; execution will surface the same error as the
		// observation.
		if tool.Preview != nil {
			if preview, err := tool.Preview(ctx, args); err == nil && preview != "" {
				l.ui.Preview(preview)
			}
		}
		if !l.confirmer.Confirm(action.Tool, action.Arg1) {
			l.ui.Warn("Permission denied.")
			l.log.Info("Denied: %s on %s", action.Tool, action.Arg1)
			return "User denied permission."
		}
	}

	l.ui.Action(action.Tool)
	result, _ := l.registry.ExecuteTool(ctx, tool, args)
	l.log.Info("%s completed in %dms (success=%v)", action.Tool, result.DurationMs, result.IsSuccess())
	return result.Text()
}

// argOrder maps a tool name to the schema properties its ARG1/ARG2
// protocol slots bind to.
func argOrder(tool string) []string {
	switch tool {
	case "list_files", "read_file":
		return []string{"path"}
	case "write_file":
		return []string{"path", "content"}
	case "edit_file":
		return []string{"path", "diff"}
	case "run_command":
		return []string{"command"}
	case "search_text":
		return []string{"pattern", "path"}
	default:
		return nil
	}
}

// buildArgs converts positional protocol arguments into the named map
// the registry validates. Empty optional slots are omitted so schema
// defaults apply.
func buildArgs(action Action) map[string]any {
	args := make(map[string]any)
	names := argOrder(action.Tool)
	values := []string{action.Arg1, action.Arg2}
	for i, name := range names {
		if i >= len(values) {
			break
		}
		if values[i] == "" && !requiredSlot(action.Tool, name) {
			continue
		}
		args[name] = values[i]
	}
	return args
}

// requiredSlot reports whether a protocol slot must be passed even when
// empty, so validation rejects it with a clear message.
func requiredSlot(tool, name string) bool {
	switch tool {
	case "read_file":
		return name == "path"
	case "write_file":
		return true
	case "edit_file":
		return true
	case "run_command":
		return name == "command"
	case "search_text":
		return name == "pattern"
	default:
		return false
	}
}

func isExitSentinel(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return true
	}
	return false
}
