package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type lineResult struct {
	text string
	err  error
}

// Prompter reads answers line by line from an input stream.
//
// Reading happens on a background goroutine so a prompt can be abandoned
// when the context is cancelled (Ctrl-C while waiting for input). Once the
// input is exhausted, or after Close, every further call returns io.EOF.
type Prompter struct {
	in  io.Reader
	out io.Writer

	once      sync.Once
	closeOnce sync.Once
	lines     chan lineResult
	done      chan struct{}
	err       error
}

// NewPrompter returns a Prompter reading from in and printing prompts to
// out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, lines: make(chan lineResult), done: make(chan struct{})}
}

func (p *Prompter) start() {
	go func() {
		// bufio.Scanner handles both LF and CRLF line endings.
		scanner := bufio.NewScanner(p.in)
		for scanner.Scan() {
			if !p.send(lineResult{text: scanner.Text()}) {
				return
			}
		}
		err := scanner.Err()
		if err == nil {
			err = io.EOF
		}
		p.send(lineResult{err: err})
	}()
}

// send hands a line to Ask, giving up once the Prompter is closed.
func (p *Prompter) send(r lineResult) bool {
	select {
	case p.lines <- r:
		return true
	case <-p.done:
		return false
	}
}

// Close releases the reader goroutine. A goroutine blocked in a Read of the
// underlying input (a terminal waiting for a line) exits after that Read
// returns. Close is safe to call more than once.
func (p *Prompter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

// Ask prints label and returns the trimmed answer.
func (p *Prompter) Ask(ctx context.Context, label string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	select {
	case <-p.done:
		return "", io.EOF
	default:
	}
	p.once.Do(p.start)

	fmt.Fprint(p.out, label)
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case r := <-p.lines:
		if r.err != nil {
			p.err = r.err
			fmt.Fprintln(p.out)
			return "", r.err
		}
		return strings.TrimSpace(r.text), nil
	}
}

// AskDefault is Ask with def returned for an empty answer.
func (p *Prompter) AskDefault(ctx context.Context, label, def string) (string, error) {
	answer, err := p.Ask(ctx, label)
	if err != nil {
		return "", err
	}
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

// Confirm asks a yes/no question. Only "y" and "yes" confirm; a closed
// input counts as "no".
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.Ask(ctx, question)
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// ignoreEOF treats end of input at a sub-prompt as "no answer"; the menu
// loop then sees EOF on its own prompt and exits.
func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
