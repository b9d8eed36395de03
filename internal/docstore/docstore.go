// Package docstore implements a path-addressable document store on top
// of BadgerDB. Documents are JSON values keyed by slash-separated paths
// ("orders/o1", "user_orders/u1/o1"). Reads are point lookups or
// immediate-children scans; Watch provides a live subscription that
// re-emits the current snapshot after every write under a path.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

var (
	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("docstore: store is closed")
	// ErrInvalidPath is returned for empty or malformed paths.
	ErrInvalidPath = errors.New("docstore: invalid path")
)

// Snapshot is the state of one path at a moment in time. Exists is false
// when neither a document nor any children are present; callers must
// treat that as an empty result, not an error.
type Snapshot struct {
	Path     string
	Exists   bool
	Value    json.RawMessage
	Children map[string]json.RawMessage
}

// Decode unmarshals the snapshot's document value into v.
func (s Snapshot) Decode(v any) error {
	if !s.Exists || s.Value == nil {
		return fmt.Errorf("docstore: no document at %q", s.Path)
	}
	return json.Unmarshal(s.Value, v)
}

// Options configures a Store.
type Options struct {
	// Dir is the directory for database files. Ignored when InMemory.
	Dir string
	// InMemory keeps all data in RAM; used by tests.
	InMemory bool
	// GCEvery is the value-log GC interval. Zero disables GC. GC never
	// runs for in-memory stores.
	GCEvery time.Duration
	// GCRatio is the minimum garbage ratio that triggers a rewrite.
	GCRatio float64
	// Logger receives Badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// Store is a document store backed by a single Badger instance. It is
// safe for concurrent use.
type Store struct {
	db   *badger.DB
	opts Options

	mu       sync.Mutex
	watchers map[*watcher]struct{}

	closed    chan struct{}
	closeOnce sync.Once
	gcDone    chan struct{}
}

// Open creates or opens a store with the given options.
func Open(opts Options) (*Store, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.Dir == "" {
			return nil, errors.New("docstore: dir is required for a persistent store")
		}
		if err := os.MkdirAll(opts.Dir, 0o750); err != nil {
			return nil, fmt.Errorf("docstore: create dir %s: %w", opts.Dir, err)
		}
		bopts = badger.DefaultOptions(opts.Dir)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(&badgerLogger{logger: opts.Logger})
	} else {
		bopts = bopts.WithLogger(nil)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("docstore: open badger: %w", err)
	}

	s := &Store{
		db:       db,
		opts:     opts,
		watchers: make(map[*watcher]struct{}),
		closed:   make(chan struct{}),
		gcDone:   make(chan struct{}),
	}
	if !opts.InMemory && opts.GCEvery > 0 {
		if s.opts.GCRatio <= 0 || s.opts.GCRatio >= 1 {
			s.opts.GCRatio = 0.5
		}
		go s.gcLoop()
	} else {
		close(s.gcDone)
	}
	return s, nil
}

// Close stops background work, terminates all watches, and closes the
// underlying database.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		<-s.gcDone
		s.mu.Lock()
		for w := range s.watchers {
			w.wake()
		}
		s.mu.Unlock()
		err = s.db.Close()
	})
	return err
}

func (s *Store) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Get reads the snapshot at path: its document value if one is stored
// there, plus any immediate children. An absent path yields a snapshot
// with Exists=false.
func (s *Store) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := checkPath(path); err != nil {
		return Snapshot{}, err
	}
	if s.isClosed() {
		return Snapshot{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Path: path}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(path))
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			snap.Value = val
			snap.Exists = true
		case errors.Is(err, badger.ErrKeyNotFound):
			// fall through to the children scan
		default:
			return err
		}

		children, err := childrenTxn(txn, path)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			snap.Children = children
			snap.Exists = true
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("docstore: get %q: %w", path, err)
	}
	return snap, nil
}

// Children returns the immediate child documents of path, keyed by the
// child path segment. Keys come back in lexicographic order when ranged
// by a sorted iteration of the returned map's keys.
func (s *Store) Children(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	snap, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return snap.Children, nil
}

func childrenTxn(txn *badger.Txn, path string) (map[string]json.RawMessage, error) {
	prefix := []byte(path + "/")
	iopts := badger.DefaultIteratorOptions
	iopts.Prefix = prefix
	it := txn.NewIterator(iopts)
	defer it.Close()

	var children map[string]json.RawMessage
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		rest := strings.TrimPrefix(string(item.Key()), string(prefix))
		if strings.Contains(rest, "/") {
			// Deeper descendants are not part of this level.
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		if children == nil {
			children = make(map[string]json.RawMessage)
		}
		children[rest] = val
	}
	return children, nil
}

// Set stores v as the document at path, replacing any previous value,
// and wakes every watch covering the path.
func (s *Store) Set(ctx context.Context, path string, v any) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("docstore: marshal %q: %w", path, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(path), raw)
	})
	if err != nil {
		return fmt.Errorf("docstore: set %q: %w", path, err)
	}
	s.notify(path)
	return nil
}

// Update merges fields into the document at path, creating it if absent,
// and wakes every watch covering the path.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		doc := make(map[string]any)
		item, err := txn.Get([]byte(path))
		if err == nil {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(val, &doc); err != nil {
				return fmt.Errorf("existing document is not an object: %w", err)
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		for k, v := range fields {
			doc[k] = v
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set([]byte(path), raw)
	})
	if err != nil {
		return fmt.Errorf("docstore: update %q: %w", path, err)
	}
	s.notify(path)
	return nil
}

// Delete removes the document at path and all of its descendants, and
// wakes every watch covering the path.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := checkPath(path); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(path)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		prefix := []byte(path + "/")
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = prefix
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("docstore: delete %q: %w", path, err)
	}
	s.notify(path)
	return nil
}

func (s *Store) gcLoop() {
	defer close(s.gcDone)
	t := time.NewTicker(s.opts.GCEvery)
	defer t.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-t.C:
			for {
				if err := s.db.RunValueLogGC(s.opts.GCRatio); err != nil {
					break
				}
			}
		}
	}
}

func checkPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") || strings.Contains(path, "//") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return nil
}

// Join builds a path from segments. Segments must be non-empty and must
// not contain slashes themselves.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
