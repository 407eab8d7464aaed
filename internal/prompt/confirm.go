// Package prompt asks the operator yes/no questions on a terminal.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var questionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))

// Console reads answers from in and writes questions to out
type Console struct {
	in    *bufio.Reader
	out   io.Writer
	color bool
}

// NewConsole creates a console prompter
func NewConsole(in io.Reader, out io.Writer, color bool) *Console {
	return &Console{in: bufio.NewReader(in), out: out, color: color}
}

// Confirm prints the question and returns true only for "y" or "yes".
// End of input counts as a refusal.
func (c *Console) Confirm(question string) (bool, error) {
	q := "[??] " + question
	if c.color {
		q = questionStyle.Render(q)
	}
	if _, err := fmt.Fprintf(c.out, "%s\n$:", q); err != nil {
		return false, err
	}

	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
