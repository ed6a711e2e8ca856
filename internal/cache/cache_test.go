package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCacheRoundTripAndExpiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set("vocab", []byte("ENV_COAL\t120000"), 0))

	got, ok := c.Get("vocab")
	require.True(t, ok)
	assert.Equal(t, "ENV_COAL\t120000", string(got))

	now = now.Add(2 * time.Hour)
	_, ok = c.Get("vocab")
	assert.False(t, ok, "entry should expire after the default TTL")

	assert.NoError(t, c.Delete("vocab"), "deleting a missing entry is not an error")
}

func TestLayeredCachePromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	first := NewLayeredCache(time.Hour, dir, time.Hour)
	require.NoError(t, first.Set("k", []byte("v"), 0))

	// A fresh process shares only the disk layer
	second := NewLayeredCache(time.Hour, dir, time.Hour)
	got, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	got, ok = second.memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, second.Clear())
	_, ok = second.Get("k")
	assert.False(t, ok)
}

func TestGetOrLoad(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	calls := 0
	load := func() ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	val, hit, err := GetOrLoad(c, "k", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "payload", string(val))

	val, hit, err = GetOrLoad(c, "k", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "payload", string(val))
	assert.Equal(t, 1, calls)

	_, _, err = GetOrLoad(nil, "k", 0, func() ([]byte, error) { return nil, errors.New("offline") })
	assert.EqualError(t, err, "offline")
}

func TestKeyIsStableAndNamespaced(t *testing.T) {
	a := Key("themes", "http://example.com/a")
	assert.Equal(t, a, Key("themes", "http://example.com/a"))
	assert.NotEqual(t, a, Key("themes", "http://example.com/b"))
	assert.NotEqual(t, a, Key("other", "http://example.com/a"))
}
