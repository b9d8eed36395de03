package orders

import (
	"context"
	"sort"

	"github.com/snackhub/orderfeed/internal/docstore"
)

// IndexResolver turns the per-user secondary index into a stream of
// order-id sets. The index carries no payload: the existence of
// user_orders/<uid>/<oid> is the fact.
type IndexResolver struct {
	ds *docstore.Store
}

// NewIndexResolver returns a resolver reading from ds.
func NewIndexResolver(ds *docstore.Store) *IndexResolver {
	return &IndexResolver{ds: ds}
}

// IndexWatch is a live stream of order-id sets for one user.
type IndexWatch struct {
	sets  chan []string
	inner *docstore.Watch
}

// Sets returns the stream. A new slice arrives each time the index
// changes; the channel closes when the watch ends (check Err).
func (w *IndexWatch) Sets() <-chan []string { return w.sets }

// Err reports why the stream ended; nil after plain cancellation.
func (w *IndexWatch) Err() error { return w.inner.Err() }

// Watch subscribes to the user's index. An absent index behaves exactly
// like an empty one: the first emission is an empty set, not an error.
// The resolver does not retry a failed subscription; retry policy
// belongs to the caller.
func (r *IndexResolver) Watch(ctx context.Context, userID string) (*IndexWatch, error) {
	inner, err := r.ds.Watch(ctx, UserIndexPath(userID))
	if err != nil {
		return nil, err
	}
	w := &IndexWatch{sets: make(chan []string), inner: inner}
	go func() {
		defer close(w.sets)
		for snap := range inner.Snapshots() {
			ids := orderIDs(snap)
			select {
			case w.sets <- ids:
			case <-ctx.Done():
				return
			}
		}
	}()
	return w, nil
}

// orderIDs extracts the child keys of an index snapshot in lexicographic
// order. Order ids are ULIDs, so this is also creation order, which is
// what "insertion order" means for sort ties downstream.
func orderIDs(snap docstore.Snapshot) []string {
	ids := make([]string, 0, len(snap.Children))
	for id := range snap.Children {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
