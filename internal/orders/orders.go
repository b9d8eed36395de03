// Package orders implements the live order feed: it resolves the
// per-user order index, fans out concurrent record fetches joined with
// their store records, enforces ownership on every record, and emits a
// sorted replacement list on each index change.
package orders

import (
	"errors"

	"github.com/snackhub/orderfeed/internal/docstore"
)

// Collection roots inside the document store.
const (
	CollOrders    = "orders"
	CollStores    = "stores"
	CollUserIndex = "user_orders"
)

// OrderPath is the document path of one order record.
func OrderPath(orderID string) string { return docstore.Join(CollOrders, orderID) }

// StorePath is the document path of one store record.
func StorePath(storeID string) string { return docstore.Join(CollStores, storeID) }

// UserIndexPath is the root of one user's secondary order index.
func UserIndexPath(userID string) string { return docstore.Join(CollUserIndex, userID) }

// UserIndexEntryPath is the index entry tying an order to a user. The
// entry's existence is the fact; it carries no payload.
func UserIndexEntryPath(userID, orderID string) string {
	return docstore.Join(CollUserIndex, userID, orderID)
}

var (
	// ErrNotFound marks a point read that found no record.
	ErrNotFound = errors.New("orders: record not found")
	// ErrUnauthenticated is reported by a feed started without a user.
	ErrUnauthenticated = errors.New("orders: no authenticated user")
)

// Placeholder store substituted whenever a store record cannot be
// resolved. Display-layer fallback, not an error path.
const (
	defaultStoreName     = "Lanchonete"
	defaultStoreCategory = "Categoria"
)
