package agent

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"codewright/internal/logging"
)

// Confirmer decides whether a mutating action may proceed.
type Confirmer interface {
	Confirm(tool, target string) bool
}

// AutoApprove allows every action without asking. Used for the
// auto-approve CLI flag and for non-interactive runs.
type AutoApprove struct{}

func (AutoApprove) Confirm(tool, target string) bool { return true }

// ConsoleConfirmer asks the operator on the terminal with a bounded
// wait. When no answer arrives within the timeout the configured
// default applies; the shipped default is allow, so an unattended
// session keeps moving.
type ConsoleConfirmer struct {
	out            io.Writer
	lines          chan string
	timeout        time.Duration
	allowOnTimeout bool

	// timedOut marks that the previous prompt resolved by timeout, so a
	// line the operator typed for it may still be in flight.
	timedOut bool
}

// NewConsoleConfirmer creates a confirmer reading answers from in. A
// single reader goroutine feeds answers to Confirm; the prompt loop
// itself stays single-threaded.
func NewConsoleConfirmer(in io.Reader, out io.Writer, timeout time.Duration, allowOnTimeout bool) *ConsoleConfirmer {
	c := &ConsoleConfirmer{
		out:            out,
		lines:          make(chan string),
		timeout:        timeout,
		allowOnTimeout: allowOnTimeout,
	}
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()
	return c
}

// ReadLine blocks for the next input line with no timeout. The loop
// uses it for conversational replies so the confirmer's reader stays
// the only consumer of the input stream.
func (c *ConsoleConfirmer) ReadLine() (string, error) {
	if c.timedOut {
		c.drainStale()
		c.timedOut = false
	}
	line, ok := <-c.lines
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

// Confirm blocks until the operator answers or the timeout elapses.
// Only an explicit "n" denies. An answer typed after a previous prompt
// already timed out is discarded rather than counted against this
// prompt.
func (c *ConsoleConfirmer) Confirm(tool, target string) bool {
	if c.timedOut {
		c.drainStale()
		c.timedOut = false
	}
	fmt.Fprintf(c.out, "Allow %s on %s? [Y/n] ", tool, target)

	select {
	case line, ok := <-c.lines:
		if !ok {
			// Input closed (piped stdin exhausted); fall back to the
			// timeout default.
			logging.Loop("Confirmation input closed, default=%v", c.allowOnTimeout)
			return c.allowOnTimeout
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		logging.Loop("Confirmation for %s on %s: %q", tool, target, answer)
		return answer != "n"
	case <-time.After(c.timeout):
		c.timedOut = true
		if c.allowOnTimeout {
			fmt.Fprintln(c.out, "\n[Auto-confirming after timeout]")
		} else {
			fmt.Fprintln(c.out, "\n[Denying after timeout]")
		}
		logging.Loop("Confirmation timeout for %s on %s, default=%v", tool, target, c.allowOnTimeout)
		return c.allowOnTimeout
	}
}

// drainStale discards a line left over from a prompt that resolved by
// timeout. Only input already pending is dropped; a line typed after
// the new prompt appears is untouched.
func (c *ConsoleConfirmer) drainStale() {
	select {
	case line, ok := <-c.lines:
		if ok {
			logging.Loop("Discarding stale confirmation input: %q", line)
		}
	default:
	}
}
