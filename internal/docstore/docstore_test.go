package docstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type doc struct {
	Name string `json:"name"`
	N    int    `json:"n"`
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "stores/s1", doc{Name: "burgers", N: 3}))

	snap, err := s.Get(ctx, "stores/s1")
	require.NoError(t, err)
	require.True(t, snap.Exists)

	var got doc
	require.NoError(t, snap.Decode(&got))
	require.Equal(t, doc{Name: "burgers", N: 3}, got)
}

func TestGetAbsentPath(t *testing.T) {
	s := newTestStore(t)
	snap, err := s.Get(context.Background(), "stores/nope")
	require.NoError(t, err)
	require.False(t, snap.Exists)
	require.Nil(t, snap.Value)
	require.Nil(t, snap.Children)
}

func TestChildrenImmediateOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "user_orders/u1/o1", true))
	require.NoError(t, s.Set(ctx, "user_orders/u1/o2", true))
	require.NoError(t, s.Set(ctx, "user_orders/u2/o9", true))

	kids, err := s.Children(ctx, "user_orders/u1")
	require.NoError(t, err)
	require.Len(t, kids, 2)
	require.Contains(t, kids, "o1")
	require.Contains(t, kids, "o2")

	// A parent scan must not flatten grandchildren into this level.
	kids, err = s.Children(ctx, "user_orders")
	require.NoError(t, err)
	require.Empty(t, kids)
}

func TestUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "orders/o1", map[string]any{"status": "placed", "rating": 0}))
	require.NoError(t, s.Update(ctx, "orders/o1", map[string]any{"status": "ready"}))

	snap, err := s.Get(ctx, "orders/o1")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, snap.Decode(&got))
	require.Equal(t, "ready", got["status"])
	require.Equal(t, float64(0), got["rating"])
}

func TestUpdateCreatesAbsentDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Update(ctx, "orders/new", map[string]any{"status": "placed"}))
	snap, err := s.Get(ctx, "orders/new")
	require.NoError(t, err)
	require.True(t, snap.Exists)
}

func TestDeleteRemovesSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "user_orders/u1/o1", true))
	require.NoError(t, s.Set(ctx, "user_orders/u1/o2", true))
	require.NoError(t, s.Delete(ctx, "user_orders/u1"))

	snap, err := s.Get(ctx, "user_orders/u1")
	require.NoError(t, err)
	require.False(t, snap.Exists)
}

func TestInvalidPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, p := range []string{"", "/abs", "trail/", "a//b"} {
		require.ErrorIs(t, s.Set(ctx, p, 1), ErrInvalidPath, "path %q", p)
	}
}

func recvSnap(t *testing.T, w *Watch) Snapshot {
	t.Helper()
	select {
	case s, ok := <-w.Snapshots():
		require.True(t, ok, "watch closed early: %v", w.Err())
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		return Snapshot{}
	}
}

func TestWatchEmitsInitialSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := s.Watch(ctx, "user_orders/u1")
	require.NoError(t, err)
	snap := recvSnap(t, w)
	require.False(t, snap.Exists)
}

func TestWatchSeesWrites(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := s.Watch(ctx, "user_orders/u1")
	require.NoError(t, err)
	_ = recvSnap(t, w) // initial, absent

	require.NoError(t, s.Set(ctx, "user_orders/u1/o1", true))
	snap := recvSnap(t, w)
	require.True(t, snap.Exists)
	require.Contains(t, snap.Children, "o1")

	// Writes outside the watched subtree must not produce an emission
	// with their data.
	require.NoError(t, s.Set(ctx, "user_orders/u2/o5", true))
	require.NoError(t, s.Set(ctx, "user_orders/u1/o2", true))
	snap = recvSnap(t, w)
	require.NotContains(t, snap.Children, "o5")
	require.Contains(t, snap.Children, "o2")
}

func TestWatchCoalescesBursts(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := s.Watch(ctx, "user_orders/u1")
	require.NoError(t, err)
	_ = recvSnap(t, w)

	for i := 0; i < 50; i++ {
		require.NoError(t, s.Set(ctx, "user_orders/u1/o1", i))
	}
	// Eventually the latest value is observable; intermediate states may
	// be skipped entirely.
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := recvSnap(t, w)
		var v int
		require.NoError(t, json.Unmarshal(snap.Children["o1"], &v))
		if v == 49 {
			break
		}
		require.True(t, time.Now().Before(deadline), "never observed final write")
	}
}

func TestWatchEndsOnCancel(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	w, err := s.Watch(ctx, "orders/o1")
	require.NoError(t, err)
	_ = recvSnap(t, w)
	cancel()

	select {
	case _, ok := <-w.Snapshots():
		if ok {
			// A snapshot may have been in flight; the next receive must
			// observe the close.
			_, ok = <-w.Snapshots()
			require.False(t, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not end after cancel")
	}
	require.NoError(t, w.Err())
}

func TestWatchEndsOnStoreClose(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	ctx := context.Background()

	w, err := s.Watch(ctx, "orders/o1")
	require.NoError(t, err)
	_, ok := <-w.Snapshots()
	require.True(t, ok)

	require.NoError(t, s.Close())
	for range w.Snapshots() {
	}
	require.ErrorIs(t, w.Err(), ErrClosed)
}

func TestWatchAfterCloseFails(t *testing.T) {
	s, err := Open(Options{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_, err = s.Watch(context.Background(), "orders/o1")
	require.ErrorIs(t, err, ErrClosed)
}
