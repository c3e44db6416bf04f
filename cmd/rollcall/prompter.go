package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// console reads operator input line by line.  Prompts wait for Enter only
// when the input is a terminal, so scripted runs do not stall.
type console struct {
	out         io.Writer
	interactive bool
	lines       chan string
	errs        chan error
	r           *bufio.Reader
	started     bool
}

func newConsole(in io.Reader, out io.Writer) *console {
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	return &console{out: out, interactive: interactive, r: bufio.NewReader(in)}
}

// readLine returns the next input line.  The blocked read is abandoned,
// not interrupted, when ctx ends.
func (c *console) readLine(ctx context.Context) (string, error) {
	if !c.started {
		c.started = true
		c.lines = make(chan string)
		c.errs = make(chan error, 1)
		go func() {
			for {
				s, err := c.r.ReadString('\n')
				if s != "" || err == nil {
					c.lines <- strings.TrimRight(s, "\r\n")
				}
				if err != nil {
					c.errs <- err
					return
				}
			}
		}()
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case s := <-c.lines:
		return s, nil
	case err := <-c.errs:
		c.errs <- err
		return "", err
	}
}

// readToken waits for a non-blank line, as typed by a keyboard-wedge
// reader.
func (c *console) readToken(ctx context.Context) (string, error) {
	fmt.Fprintln(c.out, "Place the card on the reader...")
	for {
		s, err := c.readLine(ctx)
		if err != nil {
			return "", err
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
}

func (c *console) Prompt(ctx context.Context, msg string) error {
	if !c.interactive {
		fmt.Fprintf(c.out, "Capturing: %s\n", msg)
		return ctx.Err()
	}
	fmt.Fprintf(c.out, "Press Enter to capture: %s\n", msg)
	_, err := c.readLine(ctx)
	return err
}
