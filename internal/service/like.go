package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/schema"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// LikeService maintains Like records and their three mirrors:
// Cocktail.likes, Customer.favCocktails and the owner's raiting.
type LikeService struct {
	*base
}

// Create likes cocktailID on behalf of the calling customer.  Likes on one
// cocktail are serialized so a duplicate is always detected.
func (s *LikeService) Create(ctx context.Context, p model.Principal, cocktailID string) (model.Like, error) {
	cp, err := asCustomer(p)
	if err != nil {
		return model.Like{}, err
	}
	unlock, err := s.lock(ctx, cocktailKey(cocktailID))
	if err != nil {
		return model.Like{}, err
	}
	defer unlock()
	// the customer lock orders this like against profile edits
	unlockC, err := s.lock(ctx, customerKey(cp.ID))
	if err != nil {
		return model.Like{}, err
	}
	defer unlockC()

	var c model.Cocktail
	if err := s.load(ctx, model.EntityCocktail, cocktailID, &c); err != nil {
		return model.Like{}, err
	}
	var cust model.Customer
	if err := s.load(ctx, model.EntityCustomer, cp.ID, &cust); err != nil {
		return model.Like{}, err
	}
	existing, err := s.find(ctx, cp.ID, cocktailID)
	if err != nil {
		return model.Like{}, err
	}
	if existing != nil || c.LikedBy(cp.ID) {
		return model.Like{}, alreadyExists("like by %s on cocktail %s", cp.ID, cocktailID)
	}

	like := model.Like{CustomerID: cp.ID, CocktailID: c.ID, CreatedAt: s.now()}
	res, err := s.run(ctx, p, schema.LikeCreate, schema.Params{
		schema.PCustomerID:  cp.ID,
		schema.PCocktailID:  c.ID,
		schema.PBartenderID: c.Owner.ID,
		schema.PUsername:    cust.Username,
		schema.PAvatar:      cust.Avatar,
		schema.PCreatedAt:   like.CreatedAt,
	})
	if err != nil {
		return model.Like{}, err
	}
	like.ID, _ = res.InsertedID(1)
	return like, nil
}

// Remove withdraws the calling customer's like on cocktailID.
func (s *LikeService) Remove(ctx context.Context, p model.Principal, cocktailID string) error {
	cp, err := asCustomer(p)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, cocktailKey(cocktailID))
	if err != nil {
		return err
	}
	defer unlock()
	unlockC, err := s.lock(ctx, customerKey(cp.ID))
	if err != nil {
		return err
	}
	defer unlockC()

	var c model.Cocktail
	if err := s.load(ctx, model.EntityCocktail, cocktailID, &c); err != nil {
		return err
	}
	like, err := s.find(ctx, cp.ID, cocktailID)
	if err != nil {
		return err
	}
	if like == nil {
		return fmt.Errorf("like by %s on cocktail %s: %w", cp.ID, cocktailID, ErrNotFound)
	}
	_, err = s.run(ctx, p, schema.LikeRemove, schema.Params{
		schema.PLikeID:      like.ID,
		schema.PCustomerID:  cp.ID,
		schema.PCocktailID:  c.ID,
		schema.PBartenderID: c.Owner.ID,
	})
	return err
}

// List returns Like records, optionally only those on cocktailID, oldest
// first.
func (s *LikeService) List(ctx context.Context, cocktailID string) ([]model.Like, error) {
	var matches []store.Match
	if cocktailID != "" {
		matches = append(matches, store.Where(model.FieldCocktailID, cocktailID))
	}
	docs, err := s.store.Query(ctx, model.EntityLike, matches...)
	if err != nil {
		return nil, err
	}
	out := make([]model.Like, 0, len(docs))
	for _, doc := range docs {
		var l model.Like
		if err := store.Decode(doc, &l); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// find returns the active like of customerID on cocktailID, or nil.
func (s *LikeService) find(ctx context.Context, customerID, cocktailID string) (*model.Like, error) {
	docs, err := s.store.Query(ctx, model.EntityLike,
		store.Where(model.FieldCustomerID, customerID),
		store.Where(model.FieldCocktailID, cocktailID))
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	var l model.Like
	if err := store.Decode(docs[0], &l); err != nil {
		return nil, err
	}
	return &l, nil
}
