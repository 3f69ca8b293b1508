package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Minute))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStore_Expiration(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))

	later := time.Now().Add(time.Second)
	store.removeExpired(later)

	_, ok, _ := store.Get(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = store.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"사과", "바나나"})

	assert.Equal(t, a, Fingerprint([]string{"사과", "바나나"}))
	assert.NotEqual(t, a, Fingerprint([]string{"바나나", "사과"}))
	assert.NotEqual(t, Fingerprint([]string{"ab", "c"}), Fingerprint([]string{"a", "bc"}))
}
