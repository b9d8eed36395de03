// Package checkout is the order write path: it creates order records,
// maintains the per-user secondary index the live feed resolves, and
// pushes the matching notifications.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/notify"
	"github.com/snackhub/orderfeed/internal/obs"
	"github.com/snackhub/orderfeed/internal/orders"
)

// ErrNotRateable is returned when an order refuses a rating.
var ErrNotRateable = errors.New("checkout: order is not rateable")

// Service places and mutates orders.
type Service struct {
	ds    *docstore.Store
	notes *notify.Service
	seq   Sequencer
}

// NewService returns a Service over ds. The order-number sequence is
// seeded from the current order count so numbers keep growing across
// restarts.
func NewService(ds *docstore.Store, notes *notify.Service) *Service {
	s := &Service{ds: ds, notes: notes}
	if kids, err := ds.Children(context.Background(), orders.CollOrders); err == nil {
		s.seq.Seed(uint64(len(kids)))
	}
	return s
}

// PlaceOrderInput is what a client supplies to place an order.
type PlaceOrderInput struct {
	UserID      string          `json:"user_id"`
	StoreID     string          `json:"store_id"`
	Total       decimal.Decimal `json:"total"`
	PaymentCode string          `json:"payment_code,omitempty"`
}

// PlaceOrder creates the order record, then the index entry. The order
// record is written first so a reader woken by the index write always
// finds it. Order ids are ULIDs: lexicographic order is creation order,
// which keeps index snapshots in insertion order for free.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (model.Order, error) {
	if in.UserID == "" {
		return model.Order{}, fmt.Errorf("checkout: user id is required")
	}
	if in.Total.IsNegative() {
		return model.Order{}, fmt.Errorf("checkout: total must not be negative")
	}

	ord := model.Order{
		ID:          ulid.Make().String(),
		Number:      fmt.Sprintf("#%04d", s.seq.Next()),
		UserID:      in.UserID,
		StoreID:     in.StoreID,
		Status:      model.StatusPlaced,
		Total:       in.Total,
		Rateable:    false,
		CreatedAt:   time.Now().UTC(),
		PaymentCode: in.PaymentCode,
	}

	if err := s.ds.Set(ctx, orders.OrderPath(ord.ID), ord); err != nil {
		return model.Order{}, fmt.Errorf("checkout: write order: %w", err)
	}
	if err := s.ds.Set(ctx, orders.UserIndexEntryPath(ord.UserID, ord.ID), true); err != nil {
		return model.Order{}, fmt.Errorf("checkout: write index entry: %w", err)
	}

	if _, err := s.notes.Push(ctx, ord.UserID, "Pedido realizado",
		fmt.Sprintf("Seu pedido %s foi recebido", ord.Number)); err != nil {
		obs.Logger.Warn("order_notification_failed", "order_id", ord.ID, "error", err)
	}
	return ord, nil
}

// UpdateStatus moves an order through its lifecycle. Picked-up orders
// become rateable; the owner is notified of every transition.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error) {
	if !model.ValidStatus(status) {
		return model.Order{}, fmt.Errorf("checkout: unknown status %q", status)
	}
	ord, err := s.getOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}

	fields := map[string]any{"status": status}
	if status == model.StatusPickedUp {
		fields["rateable"] = true
	}
	if err := s.ds.Update(ctx, orders.OrderPath(orderID), fields); err != nil {
		return model.Order{}, fmt.Errorf("checkout: update status: %w", err)
	}
	ord.Status = status
	if status == model.StatusPickedUp {
		ord.Rateable = true
	}

	if _, err := s.notes.Push(ctx, ord.UserID, "Pedido atualizado",
		fmt.Sprintf("Seu pedido %s agora está: %s", ord.Number, status)); err != nil {
		obs.Logger.Warn("order_notification_failed", "order_id", ord.ID, "error", err)
	}
	return ord, nil
}

// RateOrder records a 1..5 rating and clears the rateable flag.
func (s *Service) RateOrder(ctx context.Context, orderID string, rating int) (model.Order, error) {
	if rating < 1 || rating > 5 {
		return model.Order{}, fmt.Errorf("checkout: rating must be between 1 and 5")
	}
	ord, err := s.getOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if !ord.Rateable {
		return model.Order{}, ErrNotRateable
	}
	err = s.ds.Update(ctx, orders.OrderPath(orderID), map[string]any{
		"rating":   rating,
		"rateable": false,
	})
	if err != nil {
		return model.Order{}, fmt.Errorf("checkout: rate order: %w", err)
	}
	ord.Rating = rating
	ord.Rateable = false
	return ord, nil
}

func (s *Service) getOrder(ctx context.Context, orderID string) (model.Order, error) {
	snap, err := s.ds.Get(ctx, orders.OrderPath(orderID))
	if err != nil {
		return model.Order{}, fmt.Errorf("checkout: read order %s: %w", orderID, err)
	}
	if !snap.Exists {
		return model.Order{}, fmt.Errorf("order %s: %w", orderID, orders.ErrNotFound)
	}
	var ord model.Order
	if err := snap.Decode(&ord); err != nil {
		return model.Order{}, fmt.Errorf("checkout: decode order %s: %w", orderID, err)
	}
	return ord, nil
}
