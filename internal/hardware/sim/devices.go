package sim

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
)

const defaultModuleID = "sim-reader"

// Reader delivers the script's taps in order.  When they run out it either
// reports hardware.ErrReaderClosed or blocks until ctx is done.
type Reader struct {
	mu        sync.Mutex
	taps      []Tap
	next      int
	closeDone bool
	now       func() time.Time
}

func NewReader(taps []Tap, closeWhenDone bool) *Reader {
	return &Reader{taps: taps, closeDone: closeWhenDone, now: time.Now}
}

func (r *Reader) ReadToken(ctx context.Context) (hardware.TokenRead, error) {
	r.mu.Lock()
	if r.next >= len(r.taps) {
		closeDone := r.closeDone
		r.mu.Unlock()
		if closeDone {
			return hardware.TokenRead{}, hardware.ErrReaderClosed
		}
		<-ctx.Done()
		return hardware.TokenRead{}, ctx.Err()
	}
	tap := r.taps[r.next]
	r.next++
	r.mu.Unlock()

	if tap.Pause > 0 {
		t := time.NewTimer(tap.Pause)
		select {
		case <-ctx.Done():
			t.Stop()
			return hardware.TokenRead{}, ctx.Err()
		case <-t.C:
		}
	}

	module := tap.ModuleID
	if module == "" {
		module = defaultModuleID
	}
	return hardware.TokenRead{Token: tap.Token, ModuleID: module, At: r.now().UTC()}, nil
}

// Remaining reports how many taps are still queued.
func (r *Reader) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.taps) - r.next
}

// Camera plays back the scripted frames, then empty frames forever.  Each
// capture takes Every, like a real camera's frame interval.
type Camera struct {
	mu     sync.Mutex
	frames []FrameSpec
	seq    uint64
	Every  time.Duration
}

func NewCamera(frames []FrameSpec, every time.Duration) *Camera {
	return &Camera{frames: frames, Every: every}
}

// Queue appends frames to play back.  Tests use it to stage faces before a
// verification pass.
func (c *Camera) Queue(frames ...FrameSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frames...)
}

func (c *Camera) CaptureFrame(ctx context.Context) (hardware.Frame, error) {
	if c.Every > 0 {
		t := time.NewTimer(c.Every)
		select {
		case <-ctx.Done():
			t.Stop()
			return hardware.Frame{}, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return hardware.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++

	var spec FrameSpec
	if len(c.frames) > 0 {
		spec = c.frames[0]
		c.frames = c.frames[1:]
	}
	if spec.Fail {
		return hardware.Frame{}, hardware.ErrNoFrame
	}
	return hardware.Frame{
		Seq:        c.seq,
		CapturedAt: time.Now().UTC(),
		Width:      640,
		Height:     480,
		Data:       []byte(strings.Join(spec.Faces, "\n")),
	}, nil
}

// Recognizer reads the face labels the sim camera wrote into the frame.
type Recognizer struct{}

func (Recognizer) Describe(_ context.Context, f hardware.Frame) ([]types.Descriptor, error) {
	if len(f.Data) == 0 {
		return nil, nil
	}
	var out []types.Descriptor
	for _, label := range strings.Split(string(f.Data), "\n") {
		if label = strings.TrimSpace(label); label != "" {
			out = append(out, Face(label))
		}
	}
	return out, nil
}

// Prompter confirms every prompt immediately and remembers what it was asked.
type Prompter struct {
	mu      sync.Mutex
	prompts []string
}

func (p *Prompter) Prompt(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, msg)
	return nil
}

func (p *Prompter) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.prompts))
	copy(out, p.prompts)
	return out
}
