package service

import (
	"context"
	"sort"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/rating"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// AccountService serves read-only account views.  Password hashes never
// leave it.
type AccountService struct {
	*base
}

// Me returns the caller's own account.
func (s *AccountService) Me(ctx context.Context, p model.Principal) (any, error) {
	switch v := p.(type) {
	case model.BartenderPrincipal:
		return s.Bartender(ctx, v.ID)
	case model.CustomerPrincipal:
		var c model.Customer
		if err := s.load(ctx, model.EntityCustomer, v.ID, &c); err != nil {
			return nil, err
		}
		return c.Public(), nil
	case model.RestaurantPrincipal:
		return s.Restaurant(ctx, v.ID)
	default:
		return nil, ErrUnauthorized
	}
}

func (s *AccountService) Bartender(ctx context.Context, id string) (model.Bartender, error) {
	var b model.Bartender
	if err := s.load(ctx, model.EntityBartender, id, &b); err != nil {
		return model.Bartender{}, err
	}
	return b.Public(), nil
}

func (s *AccountService) Restaurant(ctx context.Context, id string) (model.Restaurant, error) {
	var r model.Restaurant
	if err := s.load(ctx, model.EntityRestaurant, id, &r); err != nil {
		return model.Restaurant{}, err
	}
	return s.present(r), nil
}

// Bartenders lists bartenders by raiting, highest first.
func (s *AccountService) Bartenders(ctx context.Context) ([]model.Bartender, error) {
	docs, err := s.store.Query(ctx, model.EntityBartender)
	if err != nil {
		return nil, err
	}
	out := make([]model.Bartender, 0, len(docs))
	for _, doc := range docs {
		var b model.Bartender
		if err := store.Decode(doc, &b); err != nil {
			return nil, err
		}
		out = append(out, b.Public())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Raiting > out[j].Raiting })
	return out, nil
}

// Restaurants lists restaurants by stars, highest first.
func (s *AccountService) Restaurants(ctx context.Context) ([]model.Restaurant, error) {
	docs, err := s.store.Query(ctx, model.EntityRestaurant)
	if err != nil {
		return nil, err
	}
	out := make([]model.Restaurant, 0, len(docs))
	for _, doc := range docs {
		var r model.Restaurant
		if err := store.Decode(doc, &r); err != nil {
			return nil, err
		}
		out = append(out, s.present(r))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating.Stars > out[j].Rating.Stars })
	return out, nil
}

// present hides the password and rounds the rating for display.
func (s *AccountService) present(r model.Restaurant) model.Restaurant {
	r = r.Public()
	r.Rating = s.core.PresentRating(rating.State(r.Rating))
	return r
}
