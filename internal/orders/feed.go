package orders

import (
	"sync"

	"github.com/snackhub/orderfeed/internal/model"
)

// OrderFeed is a live stream of full replacement order lists for one
// user. Deliveries are coalesced: a slow consumer observes only the
// most recent list, never a backlog of stale ones.
type OrderFeed struct {
	updates chan []model.AggregatedOrder

	mu  sync.Mutex
	err error
}

func newOrderFeed() *OrderFeed {
	return &OrderFeed{updates: make(chan []model.AggregatedOrder, 1)}
}

// Updates returns the delivery channel. Every element is a complete
// list; there are no incremental diffs. The channel closes when the
// feed ends; check Err afterwards.
func (f *OrderFeed) Updates() <-chan []model.AggregatedOrder { return f.updates }

// Err reports why the feed ended: nil after plain cancellation,
// ErrUnauthenticated when no user was supplied, or the index
// subscription failure otherwise.
func (f *OrderFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *OrderFeed) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// send delivers the latest list, displacing an unconsumed older one.
func (f *OrderFeed) send(list []model.AggregatedOrder) {
	for {
		select {
		case f.updates <- list:
			return
		default:
			select {
			case <-f.updates:
			default:
			}
		}
	}
}
