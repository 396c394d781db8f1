package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"qrganizer/internal/dispatch"
)

const shellPrompt = "qrg> "

// sayer runs one free-text command.
type sayer interface {
	Say(ctx context.Context, text string) (*dispatch.Outcome, error)
}

// lineReader yields input lines until io.EOF.
type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct{ s *bufio.Scanner }

func (r scannerReader) ReadLine() (string, error) {
	if !r.s.Scan() {
		if err := r.s.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.s.Text(), nil
}

// runShell reads free-text commands from in until EOF or "exit". On a
// terminal it provides line editing and history through x/term.
func runShell(ctx context.Context, a sayer, in *os.File, out io.Writer) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return shellLoop(ctx, a, scannerReader{bufio.NewScanner(in)}, out)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{in, out}, shellPrompt)
	fmt.Fprintln(t, "Type a command such as \"put the hammer in the garage\". Ctrl-D or exit to quit.")
	return shellLoop(ctx, a, t, t)
}

func shellLoop(ctx context.Context, a sayer, r lineReader, out io.Writer) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := a.Say(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, res.Message)
	}
}

// readPassphrase prompts on stderr and reads a passphrase without echo, or
// a plain line when stdin is not a terminal.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	fmt.Fprint(os.Stderr, prompt)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

// readNewPassphrase asks for a passphrase twice.
func readNewPassphrase() (string, error) {
	p1, err := readPassphrase("New passphrase: ")
	if err != nil {
		return "", err
	}
	if p1 == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return p1, nil
	}
	p2, err := readPassphrase("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if p1 != p2 {
		return "", fmt.Errorf("passphrases do not match")
	}
	return p1, nil
}
