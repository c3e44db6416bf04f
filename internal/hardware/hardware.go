// Package hardware defines the capabilities the attendance engine needs from
// the classroom box.  Real drivers and the scripted sim both implement these.
package hardware

import (
	"context"
	"errors"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

var (
	// ErrReaderClosed is returned by ReadToken once the reader has no more
	// taps to deliver.  The intake loop treats it as a clean stop.
	ErrReaderClosed = errors.New("token reader closed")

	// ErrNoFrame means the camera had no frame ready.  Callers retry within
	// their capture window.
	ErrNoFrame = errors.New("no frame available")
)

// TokenRead is one physical card tap.  Text is the secondary field some
// readers return alongside the id; the engine ignores it.
type TokenRead struct {
	Token    string
	Text     string
	ModuleID string
	At       time.Time
}

// TokenReader blocks until a card is presented.
type TokenReader interface {
	ReadToken(ctx context.Context) (TokenRead, error)
}

type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Width      int
	Height     int
	Data       []byte
}

type Camera interface {
	CaptureFrame(ctx context.Context) (Frame, error)
}

// Recognizer detects faces in a frame and returns one descriptor per face.
// An empty result means no face was found.
type Recognizer interface {
	Describe(ctx context.Context, f Frame) ([]types.Descriptor, error)
}

// Prompter asks the operator to get ready for the next enrollment capture
// and blocks until they confirm.
type Prompter interface {
	Prompt(ctx context.Context, msg string) error
}

// NoCamera is used when the box has no camera attached.  Every capture fails,
// so verification always ends Partial and enrollment fails its quorum.
type NoCamera struct{}

func (NoCamera) CaptureFrame(context.Context) (Frame, error) { return Frame{}, ErrNoFrame }

// NoRecognizer never finds a face.
type NoRecognizer struct{}

func (NoRecognizer) Describe(context.Context, Frame) ([]types.Descriptor, error) { return nil, nil }
