// Package memory provides an in-process document store.  It backs the test
// suites and the STORE_BACKEND=memory development mode, and supports
// all-or-nothing transactions by cloning the state and committing the
// clone only when the callback succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// Snapshot is a deep copy of every collection, keyed by entity type and id.
type Snapshot map[model.EntityType]map[string]store.Document

type state map[model.EntityType]map[string]store.Document

// Store is safe for concurrent use.  Each primitive holds the write lock
// for its whole read-modify-write so Increment is atomic.
type Store struct {
	mu    sync.RWMutex
	state state
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{state: state{}}
}

func (s *Store) Find(ctx context.Context, et model.EntityType, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.find(et, id)
}

func (s *Store) Query(ctx context.Context, et model.EntityType, matches ...store.Match) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.query(et, matches)
}

func (s *Store) Insert(ctx context.Context, et model.EntityType, doc store.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.insert(et, doc)
}

func (s *Store) Remove(ctx context.Context, et model.EntityType, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.remove(et, id)
}

func (s *Store) UpdateField(ctx context.Context, et model.EntityType, id, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.mutate(et, id, func(doc store.Document) (int, error) {
		return 1, store.SetField(doc, field, value)
	})
}

func (s *Store) ArrayPush(ctx context.Context, et model.EntityType, id, field string, elem any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.mutateCount(et, id, func(doc store.Document) (int, error) {
		return store.PushElem(doc, field, elem)
	})
}

func (s *Store) ArrayPull(ctx context.Context, et model.EntityType, id, field string, m store.Match) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.mutateCount(et, id, func(doc store.Document) (int, error) {
		return store.PullElems(doc, field, m)
	})
}

func (s *Store) Increment(ctx context.Context, et model.EntityType, id, field string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.mutate(et, id, func(doc store.Document) (int, error) {
		return 1, store.AddNumber(doc, field, delta)
	})
}

// RunInTransaction runs fn against a private copy of the state and swaps
// it in only when fn returns nil.  Other writers block for the duration.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &txStore{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot(s.state.clone())
}

// Restore replaces the current state with a copy of snap.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state(snap).clone()
}

// Count returns how many documents of type et exist.
func (s *Store) Count(et model.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state[et])
}

// txStore is the Store view handed to transaction callbacks.  The parent
// lock is already held, so it does no locking of its own.
type txStore struct {
	state state
}

func (t *txStore) Find(ctx context.Context, et model.EntityType, id string) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.state.find(et, id)
}

func (t *txStore) Query(ctx context.Context, et model.EntityType, matches ...store.Match) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return t.state.query(et, matches)
}

func (t *txStore) Insert(ctx context.Context, et model.EntityType, doc store.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.state.insert(et, doc)
}

func (t *txStore) Remove(ctx context.Context, et model.EntityType, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.state.remove(et, id)
}

func (t *txStore) UpdateField(ctx context.Context, et model.EntityType, id, field string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.state.mutate(et, id, func(doc store.Document) (int, error) {
		return 1, store.SetField(doc, field, value)
	})
}

func (t *txStore) ArrayPush(ctx context.Context, et model.EntityType, id, field string, elem any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.state.mutateCount(et, id, func(doc store.Document) (int, error) {
		return store.PushElem(doc, field, elem)
	})
}

func (t *txStore) ArrayPull(ctx context.Context, et model.EntityType, id, field string, m store.Match) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return t.state.mutateCount(et, id, func(doc store.Document) (int, error) {
		return store.PullElems(doc, field, m)
	})
}

func (t *txStore) Increment(ctx context.Context, et model.EntityType, id, field string, delta int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.state.mutate(et, id, func(doc store.Document) (int, error) {
		return 1, store.AddNumber(doc, field, delta)
	})
}

func (st state) find(et model.EntityType, id string) (store.Document, error) {
	doc, ok := st[et][id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", et, id, store.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (st state) query(et model.EntityType, matches []store.Match) ([]store.Document, error) {
	ids := make([]string, 0, len(st[et]))
	for id := range st[et] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []store.Document{}
	for _, id := range ids {
		doc := st[et][id]
		ok, err := store.MatchDocument(doc, matches)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

func (st state) insert(et model.EntityType, doc store.Document) (string, error) {
	prepared, err := store.PrepareInsert(doc)
	if err != nil {
		return "", err
	}
	id := prepared.ID()
	if _, exists := st[et][id]; exists {
		return "", fmt.Errorf("%s %s: %w", et, id, store.ErrAlreadyExists)
	}
	if st[et] == nil {
		st[et] = map[string]store.Document{}
	}
	st[et][id] = prepared
	return id, nil
}

func (st state) remove(et model.EntityType, id string) error {
	if _, ok := st[et][id]; !ok {
		return fmt.Errorf("%s %s: %w", et, id, store.ErrNotFound)
	}
	delete(st[et], id)
	if len(st[et]) == 0 {
		delete(st, et)
	}
	return nil
}

func (st state) mutate(et model.EntityType, id string, fn func(store.Document) (int, error)) error {
	_, err := st.mutateCount(et, id, fn)
	return err
}

// mutateCount applies fn to a copy and stores it only on success, so a
// failing primitive never leaves a half-written document behind.
func (st state) mutateCount(et model.EntityType, id string, fn func(store.Document) (int, error)) (int, error) {
	doc, ok := st[et][id]
	if !ok {
		return 0, fmt.Errorf("%s %s: %w", et, id, store.ErrNotFound)
	}
	work := doc.Clone()
	n, err := fn(work)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", et, id, err)
	}
	st[et][id] = work
	return n, nil
}

func (st state) clone() state {
	out := make(state, len(st))
	for et, docs := range st {
		cp := make(map[string]store.Document, len(docs))
		for id, doc := range docs {
			cp[id] = doc.Clone()
		}
		out[et] = cp
	}
	return out
}
