package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusiveUntilRelease(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	token, ok, err := l.TryLock(ctx, "payroll-run:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "payroll-run:1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "payroll-run:1", token))
	_, ok, err = l.TryLock(ctx, "payroll-run:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLocker_ReleaseWithWrongTokenKeepsLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	_, ok, _ := l.TryLock(ctx, "k", time.Minute)
	require.True(t, ok)

	require.NoError(t, l.Release(ctx, "k", "not-the-token"))
	_, ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.False(t, ok)
}

func TestLocalLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.clock = func() time.Time { return now }

	_, ok, _ := l.TryLock(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.TryLock(ctx, "k", time.Minute)
	assert.True(t, ok)
}

func TestLocalLocker_RejectsInvalidArguments(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	_, _, err := l.TryLock(ctx, "", time.Minute)
	assert.Error(t, err)
	_, _, err = l.TryLock(ctx, "k", 0)
	assert.Error(t, err)
}
