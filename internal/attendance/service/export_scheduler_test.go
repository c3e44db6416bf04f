package service_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/service"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/store/memory"
	"github.com/BrandonDHaskell/rollcall/internal/export"
)

type captureDest struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (d *captureDest) Write(_ context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.writes = append(d.writes, append([]byte(nil), data...))
	return nil
}

func (d *captureDest) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func seededLog(t *testing.T) *memory.AttendanceLog {
	t.Helper()
	log := memory.NewAttendanceLog()
	if err := log.AppendRecord(context.Background(), testRecord()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return log
}

func TestExportOnce_WritesHeaderAndRecords(t *testing.T) {
	dest := &captureDest{}

	n, err := service.ExportOnce(context.Background(), seededLog(t), dest)
	if err != nil {
		t.Fatalf("ExportOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}
	if dest.count() != 1 {
		t.Fatalf("expected one upload, got %d", dest.count())
	}

	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(dest.writes[0]))
	for sc.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("expected header + 1 record line, got %d", lines)
	}
}

func TestExportOnce_DestinationError(t *testing.T) {
	dest := &captureDest{err: errors.New("access denied")}

	if _, err := service.ExportOnce(context.Background(), seededLog(t), dest); err == nil {
		t.Fatal("expected destination error")
	}
}

func TestExportOnce_FileDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.jsonl")

	if _, err := service.ExportOnce(context.Background(), seededLog(t), export.FileDestination{Path: path}); err != nil {
		t.Fatalf("ExportOnce: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Contains(data, []byte(`"identity_id":"att-000001"`)) {
		t.Errorf("export missing record: %s", data)
	}
}

func TestExportScheduler_RunsImmediatelyAndStops(t *testing.T) {
	dest := &captureDest{}
	s := service.NewExportScheduler(seededLog(t), dest, service.ExportConfig{IntervalMinutes: 60}, discardLogger())

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for dest.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	if dest.count() != 1 {
		t.Errorf("expected the initial export only, got %d", dest.count())
	}
}

func TestExportScheduler_Disabled(t *testing.T) {
	dest := &captureDest{}
	s := service.NewExportScheduler(seededLog(t), dest, service.ExportConfig{}, discardLogger())

	s.Start(context.Background())
	s.Stop()

	if dest.count() != 0 {
		t.Errorf("disabled scheduler exported %d times", dest.count())
	}
}
