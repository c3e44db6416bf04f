package netreader_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/netreader"
)

func TestSubmitThenRead(t *testing.T) {
	r := netreader.New(4, nil)
	ctx := context.Background()

	require.NoError(t, r.Submit(ctx, "room-101", " 1001 "))
	tr, err := r.ReadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1001", tr.Token)
	assert.Equal(t, "room-101", tr.ModuleID)

	_, ok := r.LastSeen("room-101")
	assert.True(t, ok)
}

func TestSubmit_Validation(t *testing.T) {
	r := netreader.New(4, []string{"room-101"})
	ctx := context.Background()

	assert.ErrorIs(t, r.Submit(ctx, "room-101", ""), netreader.ErrEmptyToken)
	assert.ErrorIs(t, r.Submit(ctx, "room-999", "1001"), netreader.ErrUnknownModule)
	assert.NoError(t, r.Submit(ctx, "room-101", "1001"))
}

func TestSubmit_FullQueue(t *testing.T) {
	r := netreader.New(1, nil)
	ctx := context.Background()

	require.NoError(t, r.Submit(ctx, "m", "1001"))
	assert.ErrorIs(t, r.Submit(ctx, "m", "1002"), netreader.ErrReaderBusy)
}

func TestClose_DrainsThenReportsClosed(t *testing.T) {
	r := netreader.New(4, nil)
	ctx := context.Background()

	require.NoError(t, r.Submit(ctx, "m", "1001"))
	r.Close()
	r.Close()

	assert.ErrorIs(t, r.Submit(ctx, "m", "1002"), hardware.ErrReaderClosed)

	tr, err := r.ReadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1001", tr.Token)

	_, err = r.ReadToken(ctx)
	assert.ErrorIs(t, err, hardware.ErrReaderClosed)
}

func TestReadToken_Cancelled(t *testing.T) {
	r := netreader.New(1, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.ReadToken(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTouch(t *testing.T) {
	r := netreader.New(4, []string{"room-101"})

	assert.True(t, r.Touch("room-101"))
	_, ok := r.LastSeen("room-101")
	assert.True(t, ok)

	assert.False(t, r.Touch("room-999"))
	_, ok = r.LastSeen("room-999")
	assert.False(t, ok)
}
