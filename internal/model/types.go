// Package model defines domain types shared across the service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPlaced    OrderStatus = "placed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusPickedUp  OrderStatus = "picked_up"
	StatusCancelled OrderStatus = "cancelled"
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPlaced, StatusPreparing, StatusReady, StatusPickedUp, StatusCancelled:
		return true
	}
	return false
}

// Order is the authoritative order record. The UserID field is the
// ownership source of truth; the per-user index is only a lookup aid.
type Order struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	UserID      string          `json:"user_id"`
	StoreID     string          `json:"store_id"`
	Status      OrderStatus     `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Rating      int             `json:"rating,omitempty"`
	Rateable    bool            `json:"rateable"`
	CreatedAt   time.Time       `json:"created_at"`
	PaymentCode string          `json:"payment_code,omitempty"`
}

// Store is a merchant record, read-only from the feed's perspective.
type Store struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
}

// AggregatedOrder joins one Order with its Store for display. It is a
// transient projection; every feed emission rebuilds the full list.
type AggregatedOrder struct {
	ID            string          `json:"id"`
	Number        string          `json:"number"`
	Date          string          `json:"date"`
	StoreName     string          `json:"store_name"`
	StoreCategory string          `json:"store_category"`
	StoreImageURL string          `json:"store_image_url"`
	Status        OrderStatus     `json:"status"`
	Total         decimal.Decimal `json:"total"`
	Rating        int             `json:"rating,omitempty"`
	Rateable      bool            `json:"rateable"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Notification is a per-user feed entry.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Product belongs to exactly one store.
type Product struct {
	ID          string          `json:"id"`
	StoreID     string          `json:"store_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// Category is a catalog grouping for stores.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}
