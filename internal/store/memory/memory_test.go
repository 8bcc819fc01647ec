package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

func TestInsertFindRemove(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, model.EntityCocktail, store.Document{"name": "Negroni"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Find(ctx, model.EntityCocktail, id)
	require.NoError(t, err)
	assert.Equal(t, "Negroni", doc["name"])
	assert.Equal(t, id, doc.ID())

	_, err = s.Insert(ctx, model.EntityCocktail, store.Document{"id": id})
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	require.NoError(t, s.Remove(ctx, model.EntityCocktail, id))
	_, err = s.Find(ctx, model.EntityCocktail, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Remove(ctx, model.EntityCocktail, id), store.ErrNotFound)
}

func TestFindReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Insert(ctx, model.EntityCustomer, store.Document{"favCocktails": []string{"a"}})
	require.NoError(t, err)

	doc, err := s.Find(ctx, model.EntityCustomer, id)
	require.NoError(t, err)
	doc["favCocktails"] = []any{"mutated"}

	again, err := s.Find(ctx, model.EntityCustomer, id)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, again["favCocktails"])
}

func TestArrayPushPull(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Insert(ctx, model.EntityCocktail, store.Document{"name": "Daiquiri"})
	require.NoError(t, err)

	n, err := s.ArrayPush(ctx, model.EntityCocktail, id, "likes", map[string]any{"id": "l1", "customerId": "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.ArrayPush(ctx, model.EntityCocktail, id, "likes", map[string]any{"id": "l2", "customerId": "c2"})
	require.NoError(t, err)

	n, err = s.ArrayPull(ctx, model.EntityCocktail, id, "likes", store.Where("customerId", "c1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.ArrayPull(ctx, model.EntityCocktail, id, "likes", store.Where("customerId", "nobody"))
	require.NoError(t, err)
	assert.Zero(t, n)

	doc, err := s.Find(ctx, model.EntityCocktail, id)
	require.NoError(t, err)
	likes, err := doc.Array("likes")
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "c2", likes[0].(map[string]any)["customerId"])

	_, err = s.ArrayPush(ctx, model.EntityCocktail, "missing", "likes", "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.ArrayPush(ctx, model.EntityCocktail, id, "name", "x")
	assert.ErrorIs(t, err, store.ErrNotArray)
}

func TestArrayPullScalar(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Insert(ctx, model.EntityCustomer, store.Document{"favCocktails": []string{"a", "b", "a"}})
	require.NoError(t, err)

	n, err := s.ArrayPull(ctx, model.EntityCustomer, id, "favCocktails", store.Equal("a"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIncrementIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Insert(ctx, model.EntityBartender, store.Document{"raiting": 0})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Increment(ctx, model.EntityBartender, id, "raiting", 1))
		}()
	}
	wg.Wait()

	doc, err := s.Find(ctx, model.EntityBartender, id)
	require.NoError(t, err)
	n, err := doc.Number("raiting")
	require.NoError(t, err)
	assert.Equal(t, float64(50), n)

	assert.ErrorIs(t, s.Increment(ctx, model.EntityBartender, "missing", "raiting", 1), store.ErrNotFound)
}

func TestQuery(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Insert(ctx, model.EntityLike, store.Document{"customerId": "c1", "cocktailId": "k1"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, model.EntityLike, store.Document{"customerId": "c1", "cocktailId": "k2"})
	require.NoError(t, err)

	docs, err := s.Query(ctx, model.EntityLike, store.Where("customerId", "c1"), store.Where("cocktailId", "k2"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "k2", docs[0]["cocktailId"])

	docs, err = s.Query(ctx, model.EntityLike)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestRunInTransactionCommitsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := New()
	id, err := s.Insert(ctx, model.EntityBartender, store.Document{"raiting": 0})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.RunInTransaction(ctx, func(tx store.Store) error {
		require.NoError(t, tx.Increment(ctx, model.EntityBartender, id, "raiting", 5))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err := s.Find(ctx, model.EntityBartender, id)
	require.NoError(t, err)
	assert.Equal(t, float64(0), doc["raiting"])

	err = s.RunInTransaction(ctx, func(tx store.Store) error {
		return tx.Increment(ctx, model.EntityBartender, id, "raiting", 5)
	})
	require.NoError(t, err)
	doc, err = s.Find(ctx, model.EntityBartender, id)
	require.NoError(t, err)
	assert.Equal(t, float64(5), doc["raiting"])
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Insert(ctx, model.EntityRestaurant, store.Document{"name": "Blue"})
	require.NoError(t, err)
	snap := s.Snapshot()

	_, err = s.Insert(ctx, model.EntityRestaurant, store.Document{"name": "Red"})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count(model.EntityRestaurant))

	s.Restore(snap)
	assert.Equal(t, 1, s.Count(model.EntityRestaurant))
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Insert(ctx, model.EntityLike, store.Document{})
	assert.ErrorIs(t, err, context.Canceled)
}
