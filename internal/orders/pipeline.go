package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/obs"
)

// recordFetcher is what the pipeline needs from the fetch layer; tests
// substitute instrumented implementations.
type recordFetcher interface {
	FetchOrder(ctx context.Context, orderID string) (model.Order, error)
	FetchStore(ctx context.Context, storeID string) model.Store
}

// Service runs the order aggregation pipeline.
type Service struct {
	resolver *IndexResolver
	fetcher  recordFetcher

	batchesStarted    atomic.Uint64
	batchesEmitted    atomic.Uint64
	batchesSuperseded atomic.Uint64
	slotsRejected     atomic.Uint64
	slotsMissing      atomic.Uint64
}

// NewService builds the pipeline over ds.
func NewService(ds *docstore.Store) *Service {
	return &Service{
		resolver: NewIndexResolver(ds),
		fetcher:  NewFetcher(ds),
	}
}

// Metrics are cumulative pipeline counters for observability.
type Metrics struct {
	BatchesStarted    uint64 `json:"batches_started"`
	BatchesEmitted    uint64 `json:"batches_emitted"`
	BatchesSuperseded uint64 `json:"batches_superseded"`
	SlotsRejected     uint64 `json:"slots_rejected"`
	SlotsMissing      uint64 `json:"slots_missing"`
}

// Metrics returns a snapshot of the pipeline counters.
func (s *Service) Metrics() Metrics {
	return Metrics{
		BatchesStarted:    s.batchesStarted.Load(),
		BatchesEmitted:    s.batchesEmitted.Load(),
		BatchesSuperseded: s.batchesSuperseded.Load(),
		SlotsRejected:     s.slotsRejected.Load(),
		SlotsMissing:      s.slotsMissing.Load(),
	}
}

// batchResult is one completed pipeline run, tagged with the index
// generation that triggered it so stale runs can be discarded cheaply.
type batchResult struct {
	gen  uint64
	list []model.AggregatedOrder
}

// ObserveUserOrders is the sole public entry point of the pipeline. For
// every change of the user's order index it re-runs the fan-out join and
// delivers a complete, ownership-filtered, date-descending list on the
// returned feed. Cancelling ctx releases the index subscription.
//
// An empty userID yields a single empty list; the feed then ends with
// ErrUnauthenticated and no subscription is created. An index
// subscription failure likewise yields an empty list plus the error on
// Err; retrying is the caller's decision.
func (s *Service) ObserveUserOrders(ctx context.Context, userID string) *OrderFeed {
	feed := newOrderFeed()
	if userID == "" {
		feed.fail(ErrUnauthenticated)
		feed.send([]model.AggregatedOrder{})
		close(feed.updates)
		return feed
	}
	iw, err := s.resolver.Watch(ctx, userID)
	if err != nil {
		feed.fail(fmt.Errorf("order index subscription: %w", err))
		feed.send([]model.AggregatedOrder{})
		close(feed.updates)
		return feed
	}
	go s.run(ctx, userID, iw, feed)
	return feed
}

// run owns the feed: it alone sends and closes. Batches report back on
// an internal channel so that emission and the superseded check stay on
// one goroutine, which makes "exactly one emission per non-superseded
// snapshot" trivially race-free.
func (s *Service) run(ctx context.Context, userID string, iw *IndexWatch, feed *OrderFeed) {
	defer close(feed.updates)

	rctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan batchResult)
	sets := iw.Sets()
	var latest uint64
	inflight := 0

	for sets != nil || inflight > 0 {
		select {
		case <-ctx.Done():
			// In-flight batches see rctx cancelled and exit without
			// sending; nothing more can be emitted.
			return
		case ids, ok := <-sets:
			if !ok {
				sets = nil
				if err := iw.Err(); err != nil {
					// Batch-fatal: surface the error and bail without
					// waiting on stale runs; rctx cancellation unblocks
					// their result sends.
					feed.fail(fmt.Errorf("order index subscription: %w", err))
					feed.send([]model.AggregatedOrder{})
					return
				}
				continue
			}
			latest++
			inflight++
			s.batchesStarted.Add(1)
			go s.runBatch(rctx, userID, ids, latest, results)
		case res := <-results:
			inflight--
			if res.gen != latest {
				s.batchesSuperseded.Add(1)
				obs.Logger.Debug("batch_superseded",
					"user_id", userID, "generation", res.gen, "latest", latest)
				continue
			}
			feed.send(res.list)
			s.batchesEmitted.Add(1)
		}
	}
}

// runBatch fans out one fetch per order id, waits for every slot to
// resolve, and reports the sorted result. No artificial serialization:
// all N order fetches run concurrently, and each accepted order's store
// fetch runs concurrently with its siblings'.
func (s *Service) runBatch(ctx context.Context, userID string, ids []string, gen uint64, results chan<- batchResult) {
	slots := make([]*model.AggregatedOrder, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			slots[i] = s.resolveSlot(ctx, userID, id)
			return nil
		})
	}
	_ = g.Wait()

	list := make([]model.AggregatedOrder, 0, len(ids))
	for _, a := range slots {
		if a != nil {
			list = append(list, *a)
		}
	}
	// Most recent first; the stable sort keeps index order for ties.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	select {
	case results <- batchResult{gen: gen, list: list}:
	case <-ctx.Done():
	}
}

// resolveSlot resolves exactly one completion slot. A nil return means
// the order is excluded from the result; the slot still counts as done.
// Store-side problems never exclude an order thanks to the FetchStore
// fallback.
func (s *Service) resolveSlot(ctx context.Context, userID, orderID string) *model.AggregatedOrder {
	ord, err := s.fetcher.FetchOrder(ctx, orderID)
	if err != nil {
		s.slotsMissing.Add(1)
		if errors.Is(err, ErrNotFound) {
			obs.Logger.Warn("order_fetch_missing", "user_id", userID, "order_id", orderID)
		} else {
			obs.Logger.Error("order_fetch_failed", "user_id", userID, "order_id", orderID, "error", err)
		}
		return nil
	}
	if !ownedBy(ord, userID) {
		// Data-integrity signal: the record sits in this user's index but
		// belongs to someone else (or to nobody).
		s.slotsRejected.Add(1)
		obs.Logger.Warn("ownership_rejected",
			"user_id", userID, "order_id", orderID, "owner_id", ord.UserID)
		return nil
	}
	st := s.fetcher.FetchStore(ctx, ord.StoreID)
	agg := aggregate(ord, st)
	return &agg
}

// ownedBy is the security boundary: the index is application-maintained
// and not authoritative, so every record is re-validated against its own
// owner field before it can reach a result.
func ownedBy(ord model.Order, userID string) bool {
	return ord.UserID != "" && ord.UserID == userID
}

// displayDate is the date layout shown to users.
const displayDate = "02/01/2006 15:04"

func aggregate(ord model.Order, st model.Store) model.AggregatedOrder {
	return model.AggregatedOrder{
		ID:            ord.ID,
		Number:        ord.Number,
		Date:          ord.CreatedAt.Format(displayDate),
		StoreName:     st.Name,
		StoreCategory: st.Category,
		StoreImageURL: st.ImageURL,
		Status:        ord.Status,
		Total:         ord.Total,
		Rating:        ord.Rating,
		Rateable:      ord.Rateable,
		CreatedAt:     ord.CreatedAt,
	}
}

// ListUserOrders runs the pipeline once and returns the first emission.
// It is the one-shot form of ObserveUserOrders used by plain request
// handlers.
func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]model.AggregatedOrder, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := s.ObserveUserOrders(ctx, userID)
	select {
	case list, ok := <-feed.Updates():
		if !ok {
			if err := feed.Err(); err != nil {
				return nil, err
			}
			return []model.AggregatedOrder{}, nil
		}
		if err := feed.Err(); err != nil {
			return nil, err
		}
		return list, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
