// Package wedge reads tokens from keyboard-wedge card readers, which type
// the card UID followed by Enter.
package wedge

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/hardware"
)

const DefaultModuleID = "wedge"

type line struct {
	text string
	err  error
}

// Reader turns lines from r into taps.  Blank lines are skipped.  EOF on r
// closes the reader.
type Reader struct {
	moduleID string
	lines    chan line
	once     sync.Once
	src      io.Reader
}

func NewReader(r io.Reader, moduleID string) *Reader {
	if moduleID == "" {
		moduleID = DefaultModuleID
	}
	return &Reader{moduleID: moduleID, lines: make(chan line), src: r}
}

// scan runs for the life of the source; a blocked stdin read cannot be
// interrupted, so it is started lazily and never joined.
func (r *Reader) scan() {
	sc := bufio.NewScanner(r.src)
	for sc.Scan() {
		r.lines <- line{text: sc.Text()}
	}
	err := sc.Err()
	if err == nil {
		err = hardware.ErrReaderClosed
	}
	for {
		r.lines <- line{err: err}
	}
}

func (r *Reader) ReadToken(ctx context.Context) (hardware.TokenRead, error) {
	r.once.Do(func() { go r.scan() })

	for {
		select {
		case <-ctx.Done():
			return hardware.TokenRead{}, ctx.Err()
		case l := <-r.lines:
			if l.err != nil {
				return hardware.TokenRead{}, l.err
			}
			token := strings.TrimSpace(l.text)
			if token == "" {
				continue
			}
			return hardware.TokenRead{Token: token, Text: l.text, ModuleID: r.moduleID, At: time.Now().UTC()}, nil
		}
	}
}
