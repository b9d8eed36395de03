package docstore

import (
	"context"
	"strings"
	"sync"
)

// watcher is the registry entry for one live subscription. The notify
// channel has capacity 1 so bursts of writes coalesce into a single
// wake-up.
type watcher struct {
	path   string
	notify chan struct{}
}

func (w *watcher) wake() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// covers reports whether a write at p must wake this watcher: the write
// hits the watched path itself, a descendant of it, or an ancestor
// (ancestor deletes take descendants with them).
func (w *watcher) covers(p string) bool {
	return w.path == p ||
		strings.HasPrefix(p, w.path+"/") ||
		strings.HasPrefix(w.path, p+"/")
}

// Watch is a live subscription to one path. The first snapshot is
// delivered immediately (Exists=false when nothing is stored there);
// afterwards a fresh snapshot is delivered after every covering write.
// Snapshots are coalesced: a slow receiver observes only the latest
// state, never a backlog.
type Watch struct {
	out chan Snapshot

	mu  sync.Mutex
	err error
}

// Snapshots returns the delivery channel. It is closed when the watch
// ends; check Err afterwards.
func (w *Watch) Snapshots() <-chan Snapshot { return w.out }

// Err reports why the watch ended. It is nil after a plain context
// cancellation and non-nil when the store was closed or a read failed.
func (w *Watch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *Watch) fail(err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
}

// push delivers the latest snapshot, displacing an unconsumed older one.
func (w *Watch) push(s Snapshot) {
	for {
		select {
		case w.out <- s:
			return
		default:
			select {
			case <-w.out:
			default:
			}
		}
	}
}

// Watch subscribes to path. The subscription ends when ctx is cancelled
// or the store is closed.
func (s *Store) Watch(ctx context.Context, path string) (*Watch, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	if s.isClosed() {
		return nil, ErrClosed
	}

	wr := &watcher{path: path, notify: make(chan struct{}, 1)}
	s.mu.Lock()
	s.watchers[wr] = struct{}{}
	s.mu.Unlock()

	w := &Watch{out: make(chan Snapshot, 1)}
	go s.watchLoop(ctx, wr, w)
	return w, nil
}

func (s *Store) watchLoop(ctx context.Context, wr *watcher, w *Watch) {
	defer func() {
		s.mu.Lock()
		delete(s.watchers, wr)
		s.mu.Unlock()
		close(w.out)
	}()

	// Initial snapshot, then one per wake-up.
	for {
		snap, err := s.Get(ctx, wr.path)
		if err != nil {
			switch {
			case ctx.Err() != nil:
			case s.isClosed():
				w.fail(ErrClosed)
			default:
				w.fail(err)
			}
			return
		}
		w.push(snap)

		select {
		case <-ctx.Done():
			return
		case <-s.closed:
			w.fail(ErrClosed)
			return
		case <-wr.notify:
		}
	}
}

func (s *Store) notify(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		if w.covers(path) {
			w.wake()
		}
	}
}
