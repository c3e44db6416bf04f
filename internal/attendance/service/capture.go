package service

import (
	"context"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
)

// nextFaces captures one usable frame and returns the faces found in it.
// Capture and recognizer failures are retried after retry until ctx ends;
// the only error returned is ctx's.
func nextFaces(ctx context.Context, cam hardware.Camera, rec hardware.Recognizer, retry time.Duration) ([]types.Descriptor, error) {
	for {
		if f, err := cam.CaptureFrame(ctx); err == nil {
			if faces, err := rec.Describe(ctx, f); err == nil {
				return faces, nil
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !sleepCtx(ctx, retry) {
			return nil, ctx.Err()
		}
	}
}

// sleepCtx waits d and reports whether ctx is still live.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
