package chat

import (
	"fmt"
	"io"
	"sync"

	"github.com/chzyer/readline"
)

// Terminal is a LineReader backed by readline.
type Terminal struct {
	rl        *readline.Instance
	closeOnce sync.Once
	closeErr  error
}

var _ LineReader = (*Terminal)(nil)

// NewTerminal creates a readline prompt.
func NewTerminal(prompt string) (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Terminal{rl: rl}, nil
}

// Readline reads one line.
func (t *Terminal) Readline() (string, error) {
	return t.rl.Readline()
}

// Stdout returns a writer that keeps the prompt intact.
func (t *Terminal) Stdout() io.Writer {
	return t.rl.Stdout()
}

// Stderr returns a writer that keeps the prompt intact.
func (t *Terminal) Stderr() io.Writer {
	return t.rl.Stderr()
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.rl.Close()
	})
	return t.closeErr
}
