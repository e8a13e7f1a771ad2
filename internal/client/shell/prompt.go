package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter reads answers to interactive questions.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter reads from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Line asks label and returns the trimmed answer. ok is false at end of
// input.
func (p *Prompter) Line(label string) (answer string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.scanner.Text()), true
}

// Float asks label until the answer parses as a number. An empty answer
// returns def.
func (p *Prompter) Float(label string, def float64) (float64, bool) {
	for {
		answer, ok := p.Line(label)
		if !ok {
			return 0, false
		}
		if answer == "" {
			return def, true
		}
		v, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			return v, true
		}
		fmt.Fprintf(p.out, "Not a number: %q\n", answer)
	}
}
