package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store"
	"github.com/BrandonDHaskell/rollcall/internal/export"
)

// ExportScheduler periodically uploads the local attendance log.  It runs
// as a background goroutine and is safe to stop via its context or the Stop
// method.
//
// An interval of 0 disables exporting entirely.
type ExportScheduler struct {
	log      store.AttendanceLog
	dest     export.Destination
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

type ExportConfig struct {
	// IntervalMinutes is how often the export runs.  0 disables it.
	IntervalMinutes int
}

// NewExportScheduler creates a scheduler but does not start it.
func NewExportScheduler(log store.AttendanceLog, dest export.Destination, cfg ExportConfig, logger *slog.Logger) *ExportScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportScheduler{
		log:      log,
		dest:     dest,
		interval: time.Duration(cfg.IntervalMinutes) * time.Minute,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start runs an export immediately, then repeats on the interval until ctx
// is cancelled or Stop is called.
func (s *ExportScheduler) Start(ctx context.Context) {
	if s.interval <= 0 || s.dest == nil {
		s.logger.Info("attendance export disabled")
		close(s.done)
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)

	s.logger.Info("attendance export started", "interval", s.interval.String())
}

// Stop signals the scheduler to exit and waits for it to finish.
func (s *ExportScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

func (s *ExportScheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ExportScheduler) runOnce(ctx context.Context) {
	n, err := ExportOnce(ctx, s.log, s.dest)
	if err != nil {
		s.logger.Error("attendance export failed", "err", err)
		return
	}
	s.logger.Info("attendance export completed", "records", n)
}

// ExportOnce writes the whole log to dest and returns the record count.
func ExportOnce(ctx context.Context, log store.AttendanceLog, dest export.Destination) (int, error) {
	var buf bytes.Buffer
	n, err := export.ExportJSONL(ctx, log, &buf)
	if err != nil {
		return 0, err
	}
	if err := dest.Write(ctx, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("export destination: %w", err)
	}
	return n, nil
}
