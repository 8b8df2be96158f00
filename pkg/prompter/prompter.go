// Package prompter reads interactive answers from the terminal
package prompter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNoInput is returned when a required answer is empty
var ErrNoInput = errors.New("input cannot be empty")

// Prompter asks questions on out and reads answers from in
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

// New prompts on the process terminal
func New() *Prompter {
	fd := int(os.Stdin.Fd())
	return &Prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stderr,
		fd:  fd,
		tty: term.IsTerminal(fd),
	}
}

// NewWithIO reads from in and writes prompts to out. Passwords are read as
// plain lines.
func NewWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// String reads one trimmed line
func (p *Prompter) String(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Required is String that rejects an empty answer
func (p *Prompter) Required(label string) (string, error) {
	v, err := p.String(label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNoInput
	}
	return v, nil
}

// Password reads without echo when attached to a terminal
func (p *Prompter) Password(label string) (string, error) {
	if !p.tty {
		return p.Required(label)
	}
	fmt.Fprint(p.out, label)
	pw, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	if len(pw) == 0 {
		return "", ErrNoInput
	}
	return string(pw), nil
}

// Confirm asks a yes/no question; anything but y or yes is no
func (p *Prompter) Confirm(label string) (bool, error) {
	answer, err := p.String(label + " (y/n) ")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// Multiline reads lines until an empty one or EOF
func (p *Prompter) Multiline(label string) (string, error) {
	fmt.Fprintf(p.out, "%s (finish with an empty line):\n", label)
	var lines []string
	for {
		line, err := p.in.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" && (err == nil || err == io.EOF) {
			break
		}
		lines = append(lines, trimmed)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.Join(lines, "\n"), nil
}
