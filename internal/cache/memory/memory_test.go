package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Decentr-net/animenexus/internal/cache"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	m := newMemory(func() time.Time { return now })

	_, err := m.Get(ctx, "key")
	require.Equal(t, cache.ErrMiss, err)

	require.NoError(t, m.Set(ctx, "key", []byte("value"), time.Minute))

	v, err := m.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), v)

	now = now.Add(time.Minute)

	_, err = m.Get(ctx, "key")
	require.Equal(t, cache.ErrMiss, err)
	require.Empty(t, m.items)

	require.NoError(t, m.Set(ctx, "key", []byte("value"), time.Minute))
	require.NoError(t, m.Delete(ctx, "key"))

	_, err = m.Get(ctx, "key")
	require.Equal(t, cache.ErrMiss, err)

	require.NoError(t, m.Ping(ctx))
}
