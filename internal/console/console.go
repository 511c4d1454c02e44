// Package console renders loop progress on the terminal: bordered
// panels for the task, the model's thoughts and tool output. Thoughts
// are markdown-rendered when a terminal renderer is available and fall
// back to plain text when not.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	taskStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8BC34A")).
			Padding(0, 1)

	thoughtStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#2196F3")).
			Padding(0, 1)

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4db6ac")).
			Padding(0, 1)

	titleStyle  = lipgloss.NewStyle().Bold(true)
	stepStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2196F3"))
	actionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e53935"))
)

// Printer writes styled output to a single destination.
type Printer struct {
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewPrinter creates a printer on stdout.
func NewPrinter() *Printer {
	return NewPrinterTo(os.Stdout)
}

// NewPrinterTo creates a printer on w. Markdown rendering degrades to
// plain text when the renderer cannot be constructed.
func NewPrinterTo(w io.Writer) *Printer {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}
	return &Printer{out: w, renderer: renderer}
}

// TaskBanner announces the task at loop start.
func (p *Printer) TaskBanner(task string) {
	p.panel(taskStyle, "Agent Started", "Task: "+task)
}

// Step announces a new think/act iteration.
func (p *Printer) Step(n int) {
	fmt.Fprintf(p.out, "\n%s Thinking...\n", stepStyle.Render(fmt.Sprintf("Step %d:", n)))
}

// Thought renders the model's reply.
func (p *Printer) Thought(text string) {
	p.panel(thoughtStyle, "Agent Thought", p.markdown(text))
}

// Action announces the tool about to run.
func (p *Printer) Action(tool string) {
	fmt.Fprintf(p.out, "%s Calling %s...\n", actionStyle.Render("Action:"), tool)
}

// ToolOutput renders an observation.
func (p *Printer) ToolOutput(tool, text string) {
	p.panel(outputStyle, "Tool Output: "+tool, text)
}

// Preview renders the diff of a pending mutation ahead of the
// confirmation prompt.
func (p *Printer) Preview(text string) {
	p.panel(outputStyle, "Proposed Change", text)
}

// Finished announces graceful termination with the model's summary.
func (p *Printer) Finished(summary string) {
	if strings.TrimSpace(summary) == "" {
		summary = "Task complete."
	}
	p.panel(taskStyle, "Finished", summary)
}

// Warn prints a warning line.
func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.out, warnStyle.Render(msg))
}

// Error prints an error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.out, errStyle.Render(msg))
}

func (p *Printer) panel(style lipgloss.Style, title, body string) {
	fmt.Fprintln(p.out, titleStyle.Render(title))
	fmt.Fprintln(p.out, style.Render(strings.TrimRight(body, "\n")))
}

func (p *Printer) markdown(text string) string {
	if p.renderer == nil {
		return text
	}
	rendered, err := p.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
