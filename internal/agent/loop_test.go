package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"codewright/internal/console"
	"codewright/internal/llm"
	"codewright/internal/tools"
	"codewright/internal/tools/core"
)

// scriptedClient replays canned replies, one per Complete call.
type scriptedClient struct {
	replies []string
	calls   int
	err     error
}

func (c *scriptedClient) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if c.calls >= len(c.replies) {
		return "", errors.New("script exhausted")
	}
	reply := c.replies[c.calls]
	c.calls++
	return reply, nil
}

type denyAll struct{}

func (denyAll) Confirm(tool, target string) bool { return false }

func newTestLoop(t *testing.T, client CompletionClient, confirmer Confirmer) (*Loop, *Conversation, *tools.Workspace) {
	t.Helper()
	ws, err := tools.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	registry := tools.NewRegistry()
	core.Register(registry, ws, core.Options{})

	conv := NewConversation(BuildSystemPrompt(ws.Root(), registry), 20)
	loop := New(Options{
		Client:    client,
		Registry:  registry,
		Conv:      conv,
		Confirmer: confirmer,
		UI:        console.NewPrinterTo(io.Discard),
		UserInput: func(prompt string) (string, error) { return "exit", nil },
	})
	return loop, conv, ws
}

func lastTurn(conv *Conversation) llm.Message {
	msgs := conv.Messages()
	return msgs[len(msgs)-1]
}

func TestLoopFinishTerminates(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"The task is trivial.\nTOOL: finish\nARG1: nothing to do",
	}}
	loop, _, _ := newTestLoop(t, client, nil)

	if err := loop.Run(context.Background(), "do nothing"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
}

func TestLoopExecutesToolAndObserves(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Creating the file.\nTOOL: write_file\nARG1: hello.txt\nARG2: hi",
		"Done.\nTOOL: finish\nARG1: created hello.txt",
	}}
	loop, conv, ws := newTestLoop(t, client, nil)

	if err := loop.Run(context.Background(), "create hello.txt"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(ws.Resolve("hello.txt"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(data) != "hi" {
		t.Errorf("content = %q", data)
	}

	// The observation preceding the final assistant turn is a user turn
	// labeled as tool output.
	msgs := conv.Messages()
	obs := msgs[len(msgs)-2]
	if obs.Role != "user" || !strings.HasPrefix(obs.Content, "TOOL OUTPUT: Successfully wrote") {
		t.Errorf("observation turn = %+v", obs)
	}
}

func TestLoopToolErrorBecomesObservation(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Reading it.\nTOOL: read_file\nARG1: ghost.txt",
		"It does not exist, stopping.\nTOOL: finish",
	}}
	loop, conv, _ := newTestLoop(t, client, nil)

	if err := loop.Run(context.Background(), "read ghost.txt"); err != nil {
		t.Fatalf("tool failure must not abort the loop: %v", err)
	}

	msgs := conv.Messages()
	obs := msgs[len(msgs)-2]
	if !strings.HasPrefix(obs.Content, "TOOL OUTPUT: Error: not found") {
		t.Errorf("observation = %q", obs.Content)
	}
}

func TestLoopUnknownToolBecomesObservation(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: teleport\nARG1: elsewhere",
		"TOOL: finish",
	}}
	loop, conv, _ := newTestLoop(t, client, nil)

	if err := loop.Run(context.Background(), "task"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	msgs := conv.Messages()
	obs := msgs[len(msgs)-2]
	if obs.Content != "TOOL OUTPUT: Error: Unknown tool 'teleport'" {
		t.Errorf("observation = %q", obs.Content)
	}
}

func TestLoopDeniedConfirmation(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: write_file\nARG1: danger.txt\nARG2: boom",
		"TOOL: finish",
	}}
	loop, conv, ws := newTestLoop(t, client, denyAll{})

	if err := loop.Run(context.Background(), "task"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(ws.Resolve("danger.txt")); !os.IsNotExist(err) {
		t.Error("denied write must not touch the filesystem")
	}
	msgs := conv.Messages()
	obs := msgs[len(msgs)-2]
	if obs.Content != "TOOL OUTPUT: User denied permission." {
		t.Errorf("observation = %q", obs.Content)
	}
}

func TestLoopObserveToolsBypassConfirmation(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: list_files",
		"TOOL: finish",
	}}
	// denyAll would block any confirmation; list_files must never ask.
	loop, conv, _ := newTestLoop(t, client, denyAll{})

	if err := loop.Run(context.Background(), "task"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	msgs := conv.Messages()
	obs := msgs[len(msgs)-2]
	if strings.Contains(obs.Content, "denied") {
		t.Errorf("observe tool hit the confirmation gate: %q", obs.Content)
	}
}

func TestLoopBackendFailureIsFatal(t *testing.T) {
	client := &scriptedClient{err: llm.ErrBackendUnavailable}
	loop, _, _ := newTestLoop(t, client, nil)

	err := loop.Run(context.Background(), "task")
	if !errors.Is(err, llm.ErrBackendUnavailable) {
		t.Errorf("want ErrBackendUnavailable, got %v", err)
	}
}

func TestLoopConversationalReplyThenExit(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Which file did you mean? There are several candidates.",
	}}
	loop, _, _ := newTestLoop(t, client, nil)

	// The scripted UserInput answers "exit".
	if err := loop.Run(context.Background(), "fix the bug"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("model calls = %d, want 1", client.calls)
	}
}

func TestLoopConversationalReplyThenFeedback(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Which file did you mean?",
		"TOOL: finish\nARG1: understood",
	}}
	loop, conv, _ := newTestLoop(t, client, nil)

	answers := []string{"the one in src", "exit"}
	loop.userInput = func(prompt string) (string, error) {
		answer := answers[0]
		answers = answers[1:]
		return answer, nil
	}

	if err := loop.Run(context.Background(), "fix the bug"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, msg := range conv.Messages() {
		if msg.Role == "user" && msg.Content == "the one in src" {
			found = true
		}
	}
	if !found {
		t.Error("user feedback not appended to the conversation")
	}
}

func TestLoopCancelledContextStops(t *testing.T) {
	client := &scriptedClient{replies: []string{"TOOL: finish"}}
	loop, _, _ := newTestLoop(t, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := loop.Run(ctx, "task"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("model called despite cancelled context: %d", client.calls)
	}
}

// snapshotConfirmer captures what the UI had printed at the moment the
// confirmation prompt fired.
type snapshotConfirmer struct {
	buf  *bytes.Buffer
	seen []string
}

func (c *snapshotConfirmer) Confirm(tool, target string) bool {
	c.seen = append(c.seen, c.buf.String())
	return true
}

func TestLoopPreviewShownBeforeConfirmation(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: read_file\nARG1: greet.txt",
		"TOOL: edit_file\nARG1: greet.txt\n<<<<<<< SEARCH\nhello\n=======\ngoodbye\n>>>>>>> REPLACE",
		"TOOL: finish",
	}}

	ws, err := tools.NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}
	if err := os.WriteFile(ws.Resolve("greet.txt"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	registry := tools.NewRegistry()
	core.Register(registry, ws, core.Options{})

	var outBuf bytes.Buffer
	confirmer := &snapshotConfirmer{buf: &outBuf}
	loop := New(Options{
		Client:    client,
		Registry:  registry,
		Conv:      NewConversation(BuildSystemPrompt(ws.Root(), registry), 20),
		Confirmer: confirmer,
		UI:        console.NewPrinterTo(&outBuf),
		UserInput: func(prompt string) (string, error) { return "exit", nil },
	})

	if err := loop.Run(context.Background(), "change greeting"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(confirmer.seen) != 1 {
		t.Fatalf("confirmations = %d, want 1", len(confirmer.seen))
	}
	atConfirm := confirmer.seen[0]
	if !strings.Contains(atConfirm, "-hello") || !strings.Contains(atConfirm, "+goodbye") {
		t.Errorf("diff not rendered before the confirmation prompt:\n%s", atConfirm)
	}
}

func TestLoopReadThenEditFlow(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"TOOL: read_file\nARG1: greet.txt",
		"TOOL: edit_file\nARG1: greet.txt\n<<<<<<< SEARCH\nhello\n=======\ngoodbye\n>>>>>>> REPLACE",
		"TOOL: finish",
	}}
	loop, _, ws := newTestLoop(t, client, nil)
	if err := os.WriteFile(ws.Resolve("greet.txt"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := loop.Run(context.Background(), "change greeting"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, _ := os.ReadFile(ws.Resolve("greet.txt"))
	if string(data) != "goodbye\n" {
		t.Errorf("content = %q", data)
	}
}
