package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/orders"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	ds, err := docstore.Open(docstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return NewRepository(ds)
}

func TestStoreRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveStore(ctx, model.Store{ID: "s1", Name: "Zé do Pastel", Category: "Pastel"}))
	require.NoError(t, r.SaveStore(ctx, model.Store{ID: "s2", Name: "Açaí Mania", Category: "Açaí"}))

	st, err := r.GetStore(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Zé do Pastel", st.Name)

	_, err = r.GetStore(ctx, "missing")
	require.ErrorIs(t, err, orders.ErrNotFound)

	list, err := r.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Açaí Mania", list[0].Name, "sorted by name")
}

func TestProductsPerStore(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	p := func(id, storeID, name string) model.Product {
		return model.Product{ID: id, StoreID: storeID, Name: name, Price: decimal.NewFromFloat(9.90)}
	}
	require.NoError(t, r.SaveProduct(ctx, p("p1", "s1", "Coxinha")))
	require.NoError(t, r.SaveProduct(ctx, p("p2", "s1", "Pastel de queijo")))
	require.NoError(t, r.SaveProduct(ctx, p("p3", "s2", "Açaí 500ml")))

	list, err := r.ListProducts(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Coxinha", list[0].Name)

	list, err = r.ListProducts(ctx, "s9")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCategories(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SaveCategory(ctx, model.Category{ID: "c1", Name: "Lanches"}))
	require.Error(t, r.SaveCategory(ctx, model.Category{Name: "sem id"}))

	list, err := r.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestToggleFavorite(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	on, err := r.ToggleFavorite(ctx, "u1", "s1")
	require.NoError(t, err)
	require.True(t, on)

	ids, err := r.ListFavorites(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"s1"}, ids)

	on, err = r.ToggleFavorite(ctx, "u1", "s1")
	require.NoError(t, err)
	require.False(t, on)

	ids, err = r.ListFavorites(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, ids)
}
