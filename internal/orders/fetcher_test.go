package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snackhub/orderfeed/internal/model"
)

func TestFetchOrderNotFound(t *testing.T) {
	ds, _ := newTestEnv(t)
	f := NewFetcher(ds)

	_, err := f.FetchOrder(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFetchOrderRoundTrip(t *testing.T) {
	ds, _ := newTestEnv(t)
	f := NewFetcher(ds)
	want := testOrder("o1", "u1", "s1", time.Now().UTC().Truncate(time.Second))
	seedOrder(t, ds, want)

	got, err := f.FetchOrder(context.Background(), "o1")
	require.NoError(t, err)
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.UserID, got.UserID)
	require.True(t, want.Total.Equal(got.Total))
	require.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestFetchStoreEmptyIDUsesPlaceholderWithoutRead(t *testing.T) {
	ds, _ := newTestEnv(t)
	// Closing the store first proves no read is attempted for "".
	require.NoError(t, ds.Close())
	f := NewFetcher(ds)

	st := f.FetchStore(context.Background(), "")
	require.Equal(t, "Lanchonete", st.Name)
	require.Equal(t, "Categoria", st.Category)
	require.Empty(t, st.ImageURL)
}

func TestFetchStoreMissingFallsBack(t *testing.T) {
	ds, _ := newTestEnv(t)
	f := NewFetcher(ds)

	st := f.FetchStore(context.Background(), "ghost")
	require.Equal(t, "ghost", st.ID)
	require.Equal(t, "Lanchonete", st.Name)
}

func TestFetchStoreFound(t *testing.T) {
	ds, _ := newTestEnv(t)
	f := NewFetcher(ds)
	seedStore(t, ds, model.Store{ID: "s1", Name: "Burgueria Central", Category: "Hambúrguer"})

	st := f.FetchStore(context.Background(), "s1")
	require.Equal(t, "Burgueria Central", st.Name)
}
