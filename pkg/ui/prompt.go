package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// TerminalPrompter collects note text on the terminal while the browser
// session stays attached. A submitted line, including an empty one, is a
// value; end-of-input cancels.
type TerminalPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewTerminalPrompter prompts on the process's own terminal.
func NewTerminalPrompter() *TerminalPrompter {
	return NewTerminalPrompterIO(os.Stdin, os.Stdout)
}

// NewTerminalPrompterIO prompts over explicit streams.
func NewTerminalPrompterIO(in io.Reader, out io.Writer) *TerminalPrompter {
	return &TerminalPrompter{scanner: bufio.NewScanner(in), out: out}
}

// RequestText shows the prompt and current value, then reads one line.
// The returned pointer is nil when the user cancelled.
func (p *TerminalPrompter) RequestText(prompt, initial string) (*string, error) {
	fmt.Fprintln(p.out, promptStyle.Render(prompt))
	if initial != "" {
		fmt.Fprintf(p.out, "current: %s\n", initial)
	}
	fmt.Fprint(p.out, "> ")

	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return nil, nil
	}
	line := p.scanner.Text()
	return &line, nil
}
