package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recvSet(t *testing.T, w *IndexWatch) []string {
	t.Helper()
	select {
	case ids, ok := <-w.Sets():
		require.True(t, ok, "index watch closed early: %v", w.Err())
		return ids
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for index set")
		return nil
	}
}

func TestIndexAbsentEqualsEmpty(t *testing.T) {
	ds, _ := newTestEnv(t)
	r := NewIndexResolver(ds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := r.Watch(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, recvSet(t, w))
}

func TestIndexEmitsSortedIDsOnChange(t *testing.T) {
	ds, _ := newTestEnv(t)
	r := NewIndexResolver(ds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := r.Watch(ctx, "u1")
	require.NoError(t, err)
	_ = recvSet(t, w)

	seedIndex(t, ds, "u1", "b")
	seedIndex(t, ds, "u1", "a")

	deadline := time.Now().Add(2 * time.Second)
	for {
		ids := recvSet(t, w)
		if len(ids) == 2 {
			require.Equal(t, []string{"a", "b"}, ids)
			return
		}
		require.True(t, time.Now().Before(deadline))
	}
}

func TestIndexWatchEndsWithStoreError(t *testing.T) {
	ds, _ := newTestEnv(t)
	r := NewIndexResolver(ds)

	w, err := r.Watch(context.Background(), "u1")
	require.NoError(t, err)
	_ = recvSet(t, w)

	require.NoError(t, ds.Close())
	for range w.Sets() {
	}
	require.Error(t, w.Err())
}
