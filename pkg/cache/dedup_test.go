package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("5511999887766", "oi, tudo bem?")
	b := Fingerprint("5511999887766", "oi, tudo bem?")
	c := Fingerprint("5511999887766", "oi, tudo bem!")
	d := Fingerprint("5521988776655", "oi, tudo bem?")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 64)
}

func TestMemoryDeduper_CheckAndSet(t *testing.T) {
	d := NewMemoryDeduper()
	ctx := context.Background()

	seen, err := d.CheckAndSet(ctx, "fp1", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = d.CheckAndSet(ctx, "fp1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = d.CheckAndSet(ctx, "fp2", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryDeduper_Expiry(t *testing.T) {
	d := NewMemoryDeduper()
	now := time.Now()
	d.now = func() time.Time { return now }
	ctx := context.Background()

	seen, err := d.CheckAndSet(ctx, "fp1", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, seen)

	now = now.Add(4 * time.Minute)
	seen, err = d.CheckAndSet(ctx, "fp1", 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, seen)

	now = now.Add(2 * time.Minute)
	seen, err = d.CheckAndSet(ctx, "fp1", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, seen, "entry past its ttl should read as unseen")
}

func TestMemoryDeduper_PurgesExpired(t *testing.T) {
	d := NewMemoryDeduper()
	now := time.Now()
	d.now = func() time.Time { return now }
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := d.CheckAndSet(ctx, key, time.Minute)
		require.NoError(t, err)
	}
	now = now.Add(2 * time.Minute)

	_, err := d.CheckAndSet(ctx, "d", time.Minute)
	require.NoError(t, err)
	assert.Len(t, d.entries, 1)
}
