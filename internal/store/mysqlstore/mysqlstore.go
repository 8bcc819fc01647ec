// Package mysqlstore keeps every entity as a JSON document in a single
// MySQL table.  Each primitive locks its row with SELECT ... FOR UPDATE,
// so concurrent increments and array edits on one document serialize at
// the database.
package mysqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/cocktail-hub/internal/database"
	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS documents (
    entity_type VARCHAR(32)     NOT NULL,
    id          VARCHAR(64)     NOT NULL,
    body        JSON            NOT NULL,
    version     BIGINT UNSIGNED NOT NULL DEFAULT 1,
    created_at  TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP       NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (entity_type, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the MySQL-backed document store.
type Store struct{ DB *sql.DB }

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

// New wraps an open connection pool.
func New(db *sql.DB) *Store { return &Store{DB: db} }

// Migrate creates the documents table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, et model.EntityType, id string) (store.Document, error) {
	return find(ctx, s.DB, et, id, false)
}

func (s *Store) Query(ctx context.Context, et model.EntityType, matches ...store.Match) ([]store.Document, error) {
	return query(ctx, s.DB, et, matches)
}

func (s *Store) Insert(ctx context.Context, et model.EntityType, doc store.Document) (string, error) {
	return insert(ctx, s.DB, et, doc)
}

func (s *Store) Remove(ctx context.Context, et model.EntityType, id string) error {
	return remove(ctx, s.DB, et, id)
}

func (s *Store) UpdateField(ctx context.Context, et model.EntityType, id, field string, value any) error {
	_, err := s.mutate(ctx, et, id, func(doc store.Document) (int, error) {
		return 1, store.SetField(doc, field, value)
	})
	return err
}

func (s *Store) ArrayPush(ctx context.Context, et model.EntityType, id, field string, elem any) (int, error) {
	return s.mutate(ctx, et, id, func(doc store.Document) (int, error) {
		return store.PushElem(doc, field, elem)
	})
}

func (s *Store) ArrayPull(ctx context.Context, et model.EntityType, id, field string, m store.Match) (int, error) {
	return s.mutate(ctx, et, id, func(doc store.Document) (int, error) {
		return store.PullElems(doc, field, m)
	})
}

func (s *Store) Increment(ctx context.Context, et model.EntityType, id, field string, delta int64) error {
	_, err := s.mutate(ctx, et, id, func(doc store.Document) (int, error) {
		return 1, store.AddNumber(doc, field, delta)
	})
	return err
}

// RunInTransaction runs fn against one *sql.Tx and commits only if fn
// returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// mutate wraps a single-document read-modify-write in its own transaction.
func (s *Store) mutate(ctx context.Context, et model.EntityType, id string, fn func(store.Document) (int, error)) (int, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	n, err := mutateIn(ctx, tx, et, id, fn)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return n, nil
}

// txStore runs every primitive on a transaction owned by RunInTransaction.
type txStore struct{ tx *sql.Tx }

func (t *txStore) Find(ctx context.Context, et model.EntityType, id string) (store.Document, error) {
	return find(ctx, t.tx, et, id, false)
}

func (t *txStore) Query(ctx context.Context, et model.EntityType, matches ...store.Match) ([]store.Document, error) {
	return query(ctx, t.tx, et, matches)
}

func (t *txStore) Insert(ctx context.Context, et model.EntityType, doc store.Document) (string, error) {
	return insert(ctx, t.tx, et, doc)
}

func (t *txStore) Remove(ctx context.Context, et model.EntityType, id string) error {
	return remove(ctx, t.tx, et, id)
}

func (t *txStore) UpdateField(ctx context.Context, et model.EntityType, id, field string, value any) error {
	_, err := mutateIn(ctx, t.tx, et, id, func(doc store.Document) (int, error) {
		return 1, store.SetField(doc, field, value)
	})
	return err
}

func (t *txStore) ArrayPush(ctx context.Context, et model.EntityType, id, field string, elem any) (int, error) {
	return mutateIn(ctx, t.tx, et, id, func(doc store.Document) (int, error) {
		return store.PushElem(doc, field, elem)
	})
}

func (t *txStore) ArrayPull(ctx context.Context, et model.EntityType, id, field string, m store.Match) (int, error) {
	return mutateIn(ctx, t.tx, et, id, func(doc store.Document) (int, error) {
		return store.PullElems(doc, field, m)
	})
}

func (t *txStore) Increment(ctx context.Context, et model.EntityType, id, field string, delta int64) error {
	_, err := mutateIn(ctx, t.tx, et, id, func(doc store.Document) (int, error) {
		return 1, store.AddNumber(doc, field, delta)
	})
	return err
}

func find(ctx context.Context, q querier, et model.EntityType, id string, forUpdate bool) (store.Document, error) {
	stmt := `SELECT body FROM documents WHERE entity_type = ? AND id = ?`
	if forUpdate {
		stmt += ` FOR UPDATE`
	}
	var raw []byte
	err := q.QueryRowContext(ctx, stmt, string(et), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", et, id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", et, id, err)
	}
	return decodeBody(raw)
}

// query filters in Go after loading the collection.  Matches are equality
// on arbitrary JSON values, which JSON_EXTRACT cannot compare uniformly.
func query(ctx context.Context, q querier, et model.EntityType, matches []store.Match) ([]store.Document, error) {
	rows, err := q.QueryContext(ctx, `SELECT body FROM documents WHERE entity_type = ? ORDER BY id`, string(et))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", et, err)
	}
	defer rows.Close()

	out := []store.Document{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", et, err)
		}
		doc, err := decodeBody(raw)
		if err != nil {
			return nil, err
		}
		ok, err := store.MatchDocument(doc, matches)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, rows.Err()
}

func insert(ctx context.Context, q querier, et model.EntityType, doc store.Document) (string, error) {
	prepared, err := store.PrepareInsert(doc)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(prepared)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", et, err)
	}
	id := prepared.ID()
	_, err = q.ExecContext(ctx, `INSERT INTO documents (entity_type, id, body) VALUES (?, ?, ?)`, string(et), id, raw)
	if database.IsDuplicate(err) {
		return "", fmt.Errorf("%s %s: %w", et, id, store.ErrAlreadyExists)
	}
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", et, err)
	}
	return id, nil
}

func remove(ctx context.Context, q querier, et model.EntityType, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM documents WHERE entity_type = ? AND id = ?`, string(et), id)
	if err != nil {
		return fmt.Errorf("remove %s %s: %w", et, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove %s %s: %w", et, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", et, id, store.ErrNotFound)
	}
	return nil
}

// mutateIn must run inside a transaction: the row lock taken by the
// SELECT ... FOR UPDATE is held until the caller commits.
func mutateIn(ctx context.Context, tx *sql.Tx, et model.EntityType, id string, fn func(store.Document) (int, error)) (int, error) {
	doc, err := find(ctx, tx, et, id, true)
	if err != nil {
		return 0, err
	}
	n, err := fn(doc)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", et, id, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", et, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, version = version + 1 WHERE entity_type = ? AND id = ?`,
		raw, string(et), id,
	); err != nil {
		return 0, fmt.Errorf("update %s %s: %w", et, id, err)
	}
	return n, nil
}

func decodeBody(raw []byte) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return doc, nil
}
