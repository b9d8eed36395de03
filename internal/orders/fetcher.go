package orders

import (
	"context"
	"fmt"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/obs"
)

// Fetcher performs the single-shot point reads of the pipeline. Each
// fetch is independent; nothing here blocks on a sibling fetch.
type Fetcher struct {
	ds *docstore.Store
}

// NewFetcher returns a Fetcher reading from ds.
func NewFetcher(ds *docstore.Store) *Fetcher {
	return &Fetcher{ds: ds}
}

// FetchOrder reads one order record. Absent records return ErrNotFound.
func (f *Fetcher) FetchOrder(ctx context.Context, orderID string) (model.Order, error) {
	snap, err := f.ds.Get(ctx, OrderPath(orderID))
	if err != nil {
		return model.Order{}, fmt.Errorf("fetch order %s: %w", orderID, err)
	}
	if !snap.Exists {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	var ord model.Order
	if err := snap.Decode(&ord); err != nil {
		return model.Order{}, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return ord, nil
}

// FetchStore reads one store record. The fallback rule is centralized
// here: an empty id skips the read entirely, and any failure or missing
// record substitutes the placeholder store. FetchStore therefore always
// produces a usable Store and never excludes an order from the result.
func (f *Fetcher) FetchStore(ctx context.Context, storeID string) model.Store {
	if storeID == "" {
		return defaultStore("")
	}
	snap, err := f.ds.Get(ctx, StorePath(storeID))
	if err != nil {
		obs.Logger.Warn("store_fetch_failed", "store_id", storeID, "error", err)
		return defaultStore(storeID)
	}
	if !snap.Exists {
		obs.Logger.Warn("store_fetch_missing", "store_id", storeID)
		return defaultStore(storeID)
	}
	var st model.Store
	if err := snap.Decode(&st); err != nil {
		obs.Logger.Warn("store_decode_failed", "store_id", storeID, "error", err)
		return defaultStore(storeID)
	}
	return st
}

func defaultStore(id string) model.Store {
	return model.Store{
		ID:       id,
		Name:     defaultStoreName,
		Category: defaultStoreCategory,
		ImageURL: "",
	}
}
