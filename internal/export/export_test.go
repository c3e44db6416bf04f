package export_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/store/memory"
	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/export"
)

func seededLog(t *testing.T) *memory.AttendanceLog {
	t.Helper()
	log := memory.NewAttendanceLog()
	tap := time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	verified := tap.Add(6 * time.Second)
	ctx := context.Background()

	require.NoError(t, log.AppendRecord(ctx, types.AttendanceRecord{
		IdentityID: "att-000001", Name: "Ada", Token: "1001", SessionID: "CS101_20260302_100000_abc234",
		Date: "2026-03-02", TapTime: tap, VerifiedTime: &verified, Status: types.StatusPresent,
	}))
	require.NoError(t, log.AppendRecord(ctx, types.AttendanceRecord{
		IdentityID: "att-000002", Name: "Bo", Token: "1002", SessionID: "CS101_20260302_100000_abc234",
		Date: "2026-03-02", TapTime: tap.Add(time.Second), Status: types.StatusPartial,
	}))
	return log
}

func TestExportJSONL_Golden(t *testing.T) {
	var buf bytes.Buffer
	n, err := export.ExportJSONL(context.Background(), seededLog(t), &buf,
		export.WithTimestamp(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "attendance_export", buf.Bytes())
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := export.ExportJSONL(context.Background(), memory.NewAttendanceLog(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

type failingLog struct{ memory.AttendanceLog }

func (*failingLog) ListAll(context.Context) ([]types.AttendanceRecord, error) {
	return nil, errors.New("db locked")
}

func TestExportJSONL_ListError(t *testing.T) {
	var buf bytes.Buffer
	_, err := export.ExportJSONL(context.Background(), &failingLog{}, &buf)
	assert.ErrorContains(t, err, "db locked")
	assert.Zero(t, buf.Len())
}

func TestFileDestination_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "attendance.jsonl")
	dest := export.FileDestination{Path: path}

	require.NoError(t, dest.Write(context.Background(), []byte("first\n")))
	require.NoError(t, dest.Write(context.Background(), []byte("second\n")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(b))
}
