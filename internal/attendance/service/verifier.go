package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/metrics"
)

const (
	DefaultMatchThreshold = 0.6
	DefaultVerifyWindow   = 30 * time.Second
)

type VerifierConfig struct {
	// Threshold is the Euclidean distance a face must come in under.
	Threshold float64
	Window    time.Duration

	// RetryDelay paces every retry inside the window.
	RetryDelay time.Duration
}

// Match reports whether any face is strictly closer than threshold to any
// template.  It stops at the first hit.
func Match(faces, templates []types.Descriptor, threshold float64) bool {
	for _, f := range faces {
		for _, t := range templates {
			if f.Distance(t) < threshold {
				return true
			}
		}
	}
	return false
}

// Verifier runs the capture window for one pending check-in.  Calls must not
// overlap: the camera is used exclusively.
type Verifier struct {
	registry   *IdentityRegistry
	camera     hardware.Camera
	recognizer hardware.Recognizer
	cfg        VerifierConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewVerifier(reg *IdentityRegistry, cam hardware.Camera, rec hardware.Recognizer, cfg VerifierConfig, logger *slog.Logger) *Verifier {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultMatchThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultVerifyWindow
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		registry:   reg,
		camera:     cam,
		recognizer: rec,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Verify produces the final record for p in sessionID.  A window that runs
// out is a Partial record, not an error.  If ctx ends, or the stored
// templates cannot be read before the window closes, no record is produced
// and an error is returned.
func (v *Verifier) Verify(ctx context.Context, p types.PendingCheckIn, sessionID string) (types.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.AttendanceRecord{}, err
	}
	start := v.now()
	rec := types.AttendanceRecord{
		IdentityID: p.IdentityID,
		Name:       p.Name,
		Token:      p.Token,
		SessionID:  sessionID,
		TapTime:    p.TapTime,
		Status:     types.StatusPartial,
	}

	wctx, cancel := context.WithTimeout(ctx, v.cfg.Window)
	defer cancel()

	templates, err := v.templates(wctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return types.AttendanceRecord{}, ctx.Err()
		}
		return types.AttendanceRecord{}, fmt.Errorf("%w for %s: %v", ErrTemplatesUnavailable, p.IdentityID, err)
	}

	// Without templates nothing can match; skip the window.
	if len(templates) > 0 {
		if err := v.watch(ctx, wctx, templates, &rec); err != nil {
			return types.AttendanceRecord{}, err
		}
	}

	// Date is the verification day, as the record is finalized now.
	rec.Date = v.now().Format(types.DateLayout)
	metrics.TrackVerification(string(rec.Status), v.now().Sub(start))
	v.logger.InfoContext(ctx, "verification finished",
		"session_id", sessionID, "identity_id", p.IdentityID, "status", string(rec.Status))
	return rec, nil
}

// watch captures frames until a face matches or wctx ends.  Frames that
// match nothing are followed by RetryDelay so a camera that never blocks
// does not spin.
func (v *Verifier) watch(ctx, wctx context.Context, templates []types.Descriptor, rec *types.AttendanceRecord) error {
	for {
		faces, err := nextFaces(wctx, v.camera, v.recognizer, v.cfg.RetryDelay)
		if err != nil {
			return ctx.Err()
		}
		if Match(faces, templates, v.cfg.Threshold) {
			at := v.now().UTC()
			rec.VerifiedTime = &at
			rec.Status = types.StatusPresent
			return nil
		}
		if !sleepCtx(wctx, v.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
}

// templates re-reads the attendee's stored templates, retrying lookup
// failures until ctx ends.  A token that no longer resolves to this
// attendee has no templates.
func (v *Verifier) templates(ctx context.Context, p types.PendingCheckIn) ([]types.Descriptor, error) {
	for {
		id, err := v.registry.Resolve(ctx, p.Token)
		if err == nil {
			att, ok := id.(types.Attendee)
			if !ok || att.ID != p.IdentityID {
				v.logger.WarnContext(ctx, "no templates for pending check-in", "identity_id", p.IdentityID)
				return nil, nil
			}
			return att.Templates, nil
		}
		v.logger.WarnContext(ctx, "template lookup failed", "identity_id", p.IdentityID, "err", err)
		if !sleepCtx(ctx, v.cfg.RetryDelay) {
			return nil, err
		}
	}
}
