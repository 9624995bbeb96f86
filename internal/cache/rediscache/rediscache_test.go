package rediscache

import (
	"context"
	"testing"
	"time"

	"github.com/SIRI-bit-tech/courier-web/internal/models"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCache_GetSetCurrent(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	ctx := context.Background()

	_, ok, err := c.GetCurrent(ctx, "SC00000001")
	require.NoError(t, err)
	require.False(t, ok)

	snap := &models.PackageSnapshot{TrackingNumber: "SC00000001", Status: models.StatusPending}
	require.NoError(t, c.SetCurrent(ctx, "SC00000001", snap, time.Minute))
	require.True(t, mr.Exists("package:SC00000001:current"))

	got, ok, err := c.GetCurrent(ctx, "SC00000001")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, models.StatusPending, got.Status)
	require.Equal(t, "SC00000001", got.TrackingNumber)
}

func TestSnapshotCache_CorruptEntryIsAMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(mr.Addr())

	require.NoError(t, mr.Set("package:SC00000001:current", "{not json"))

	_, ok, err := c.GetCurrent(context.Background(), "SC00000001")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := NewRateLimiter(mr.Addr())

	ctx := context.Background()
	ok, n, err := rl.Allow(ctx, "notify:u1@example.com", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), n)

	ok, n, _ = rl.Allow(ctx, "notify:u1@example.com", 2, time.Minute)
	require.True(t, ok)
	require.Equal(t, int64(2), n)

	ok, n, _ = rl.Allow(ctx, "notify:u1@example.com", 2, time.Minute)
	require.False(t, ok)
	require.Equal(t, int64(3), n)
}
