// Package netreader turns taps posted by networked reader modules into a
// hardware.TokenReader.
package netreader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/hardware"
)

var (
	ErrEmptyToken    = errors.New("token is required")
	ErrUnknownModule = errors.New("reader module not allowed")
	// ErrReaderBusy means the intake loop is behind (usually mid
	// verification) and the queue is full.  The module should retry.
	ErrReaderBusy = errors.New("reader queue full")
)

// Reader queues taps from any number of modules for the single intake loop.
type Reader struct {
	taps  chan hardware.TokenRead
	known map[string]struct{}

	mu     sync.RWMutex
	closed bool
	seen   map[string]time.Time
	done   chan struct{}
}

// New returns a reader with room for buffer queued taps.  An empty modules
// list accepts any module id.
func New(buffer int, modules []string) *Reader {
	if buffer <= 0 {
		buffer = 32
	}
	k := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		m = strings.TrimSpace(m)
		if m != "" {
			k[m] = struct{}{}
		}
	}
	return &Reader{
		taps:  make(chan hardware.TokenRead, buffer),
		known: k,
		seen:  make(map[string]time.Time),
		done:  make(chan struct{}),
	}
}

// IsKnown reports whether moduleID may submit taps.
func (r *Reader) IsKnown(moduleID string) bool {
	if len(r.known) == 0 {
		return moduleID != ""
	}
	_, ok := r.known[moduleID]
	return ok
}

// Submit queues one tap without blocking.
func (r *Reader) Submit(_ context.Context, moduleID, token string) error {
	moduleID = strings.TrimSpace(moduleID)
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if !r.IsKnown(moduleID) {
		return ErrUnknownModule
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return hardware.ErrReaderClosed
	}
	now := time.Now().UTC()
	r.seen[moduleID] = now

	select {
	case r.taps <- hardware.TokenRead{Token: token, ModuleID: moduleID, At: now}:
		return nil
	default:
		return ErrReaderBusy
	}
}

func (r *Reader) ReadToken(ctx context.Context) (hardware.TokenRead, error) {
	select {
	case tr := <-r.taps:
		return tr, nil
	case <-ctx.Done():
		return hardware.TokenRead{}, ctx.Err()
	case <-r.done:
		// Drain what was accepted before Close.
		select {
		case tr := <-r.taps:
			return tr, nil
		default:
			return hardware.TokenRead{}, hardware.ErrReaderClosed
		}
	}
}

// Close rejects further submissions.  Queued taps are still delivered.
func (r *Reader) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
}

// Touch records a heartbeat from moduleID and reports whether the module is
// allowed to submit taps.  Unknown modules are not recorded.
func (r *Reader) Touch(moduleID string) bool {
	moduleID = strings.TrimSpace(moduleID)
	if !r.IsKnown(moduleID) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[moduleID] = time.Now().UTC()
	return true
}

// LastSeen returns when moduleID last submitted a tap.
func (r *Reader) LastSeen(moduleID string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.seen[moduleID]
	return t, ok
}
