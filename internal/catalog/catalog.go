// Package catalog holds the simple single-collection repositories:
// stores, products, categories, and per-user favorites. Point reads and
// flat listings only; anything that joins collections lives in the
// orders package.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/obs"
	"github.com/snackhub/orderfeed/internal/orders"
)

const (
	collProducts   = "products"
	collCategories = "categories"
	collFavorites  = "favorites"
)

// Repository reads and writes the catalog collections.
type Repository struct {
	ds *docstore.Store
}

// NewRepository returns a Repository over ds.
func NewRepository(ds *docstore.Store) *Repository {
	return &Repository{ds: ds}
}

// SaveStore upserts a store record.
func (r *Repository) SaveStore(ctx context.Context, st model.Store) error {
	if st.ID == "" {
		return fmt.Errorf("catalog: store id is required")
	}
	return r.ds.Set(ctx, orders.StorePath(st.ID), st)
}

// GetStore reads one store record.
func (r *Repository) GetStore(ctx context.Context, id string) (model.Store, error) {
	snap, err := r.ds.Get(ctx, orders.StorePath(id))
	if err != nil {
		return model.Store{}, fmt.Errorf("catalog: get store: %w", err)
	}
	if !snap.Exists {
		return model.Store{}, fmt.Errorf("store %s: %w", id, orders.ErrNotFound)
	}
	var st model.Store
	if err := snap.Decode(&st); err != nil {
		return model.Store{}, fmt.Errorf("catalog: decode store %s: %w", id, err)
	}
	return st, nil
}

// ListStores returns every store, sorted by name.
func (r *Repository) ListStores(ctx context.Context) ([]model.Store, error) {
	kids, err := r.ds.Children(ctx, orders.CollStores)
	if err != nil {
		return nil, fmt.Errorf("catalog: list stores: %w", err)
	}
	list := decodeAll[model.Store](kids, "store")
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// SaveProduct upserts a product under its store.
func (r *Repository) SaveProduct(ctx context.Context, p model.Product) error {
	if p.ID == "" || p.StoreID == "" {
		return fmt.Errorf("catalog: product id and store id are required")
	}
	return r.ds.Set(ctx, docstore.Join(collProducts, p.StoreID, p.ID), p)
}

// ListProducts returns a store's products, sorted by name.
func (r *Repository) ListProducts(ctx context.Context, storeID string) ([]model.Product, error) {
	kids, err := r.ds.Children(ctx, docstore.Join(collProducts, storeID))
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	list := decodeAll[model.Product](kids, "product")
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// SaveCategory upserts a category.
func (r *Repository) SaveCategory(ctx context.Context, c model.Category) error {
	if c.ID == "" {
		return fmt.Errorf("catalog: category id is required")
	}
	return r.ds.Set(ctx, docstore.Join(collCategories, c.ID), c)
}

// ListCategories returns every category, sorted by name.
func (r *Repository) ListCategories(ctx context.Context) ([]model.Category, error) {
	kids, err := r.ds.Children(ctx, collCategories)
	if err != nil {
		return nil, fmt.Errorf("catalog: list categories: %w", err)
	}
	list := decodeAll[model.Category](kids, "category")
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// ToggleFavorite flips a store in the user's favorites and reports the
// new state.
func (r *Repository) ToggleFavorite(ctx context.Context, userID, storeID string) (bool, error) {
	if userID == "" || storeID == "" {
		return false, fmt.Errorf("catalog: user id and store id are required")
	}
	path := docstore.Join(collFavorites, userID, storeID)
	snap, err := r.ds.Get(ctx, path)
	if err != nil {
		return false, fmt.Errorf("catalog: toggle favorite: %w", err)
	}
	if snap.Exists {
		if err := r.ds.Delete(ctx, path); err != nil {
			return false, fmt.Errorf("catalog: toggle favorite: %w", err)
		}
		return false, nil
	}
	if err := r.ds.Set(ctx, path, true); err != nil {
		return false, fmt.Errorf("catalog: toggle favorite: %w", err)
	}
	return true, nil
}

// ListFavorites returns the ids of the user's favorite stores.
func (r *Repository) ListFavorites(ctx context.Context, userID string) ([]string, error) {
	kids, err := r.ds.Children(ctx, docstore.Join(collFavorites, userID))
	if err != nil {
		return nil, fmt.Errorf("catalog: list favorites: %w", err)
	}
	ids := make([]string, 0, len(kids))
	for id := range kids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func decodeAll[T any](kids map[string]json.RawMessage, kind string) []T {
	list := make([]T, 0, len(kids))
	for id, raw := range kids {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			obs.Logger.Warn("catalog_decode_failed", "kind", kind, "id", id, "error", err)
			continue
		}
		list = append(list, v)
	}
	return list
}
