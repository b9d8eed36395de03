// Package notify implements the per-user notification feed: a live,
// time-decorated list rebuilt from the store on every change. Unlike the
// order feed there is no fan-out; each emission is a single decode of
// the user's notification collection, sorted newest first.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/snackhub/orderfeed/internal/docstore"
	"github.com/snackhub/orderfeed/internal/model"
	"github.com/snackhub/orderfeed/internal/obs"
)

const collNotifications = "notifications"

// Service reads and writes the notification collection.
type Service struct {
	ds *docstore.Store
}

// NewService returns a Service over ds.
func NewService(ds *docstore.Store) *Service {
	return &Service{ds: ds}
}

// Push stores a new notification for the user.
func (s *Service) Push(ctx context.Context, userID, title, body string) (model.Notification, error) {
	if userID == "" {
		return model.Notification{}, fmt.Errorf("notify: empty user id")
	}
	n := model.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.ds.Set(ctx, docstore.Join(collNotifications, userID, n.ID), n); err != nil {
		return model.Notification{}, fmt.Errorf("notify: push: %w", err)
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]model.Notification, error) {
	snap, err := s.ds.Get(ctx, docstore.Join(collNotifications, userID))
	if err != nil {
		return nil, fmt.Errorf("notify: list: %w", err)
	}
	return decodeFeed(snap), nil
}

// Feed is a live stream of full notification lists for one user.
type Feed struct {
	updates chan []model.Notification

	mu  sync.Mutex
	err error
}

// Updates returns the delivery channel; closed when the feed ends.
func (f *Feed) Updates() <-chan []model.Notification { return f.updates }

// Err reports why the feed ended; nil after plain cancellation.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Observe streams the user's notification list, re-emitting on every
// change. Same discipline as the order feed: merge once, sort once,
// emit once per change, full replacement lists only.
func (s *Service) Observe(ctx context.Context, userID string) (*Feed, error) {
	w, err := s.ds.Watch(ctx, docstore.Join(collNotifications, userID))
	if err != nil {
		return nil, fmt.Errorf("notify: observe: %w", err)
	}
	f := &Feed{updates: make(chan []model.Notification, 1)}
	go func() {
		defer close(f.updates)
		for snap := range w.Snapshots() {
			list := decodeFeed(snap)
			select {
			case f.updates <- list:
			case <-ctx.Done():
				return
			}
		}
		if err := w.Err(); err != nil {
			f.mu.Lock()
			f.err = err
			f.mu.Unlock()
		}
	}()
	return f, nil
}

func decodeFeed(snap docstore.Snapshot) []model.Notification {
	list := make([]model.Notification, 0, len(snap.Children))
	for id, raw := range snap.Children {
		var n model.Notification
		if err := json.Unmarshal(raw, &n); err != nil {
			obs.Logger.Warn("notification_decode_failed", "notification_id", id, "error", err)
			continue
		}
		list = append(list, n)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list
}
