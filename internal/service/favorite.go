package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/schema"
)

// FavoriteService manages a customer's favourite restaurants and
// bartenders.  Each change is a one-step plan so it is reported like any
// other write.
type FavoriteService struct {
	*base
}

// Favorites is a customer's favourite lists.
type Favorites struct {
	Restaurants []model.RestaurantSnapshot `json:"restaurants"`
	Bartenders  []model.BartenderSnapshot  `json:"bartenders"`
}

func (s *FavoriteService) List(ctx context.Context, p model.Principal) (Favorites, error) {
	cp, err := asCustomer(p)
	if err != nil {
		return Favorites{}, err
	}
	var cust model.Customer
	if err := s.load(ctx, model.EntityCustomer, cp.ID, &cust); err != nil {
		return Favorites{}, err
	}
	out := Favorites{Restaurants: cust.FavRestaurants, Bartenders: cust.FavBartenders}
	if out.Restaurants == nil {
		out.Restaurants = []model.RestaurantSnapshot{}
	}
	if out.Bartenders == nil {
		out.Bartenders = []model.BartenderSnapshot{}
	}
	return out, nil
}

// AddRestaurant appends restaurantID to the caller's favourites.
func (s *FavoriteService) AddRestaurant(ctx context.Context, p model.Principal, restaurantID string) (model.RestaurantSnapshot, error) {
	cust, unlock, err := s.customer(ctx, p)
	if err != nil {
		return model.RestaurantSnapshot{}, err
	}
	defer unlock()

	var r model.Restaurant
	if err := s.load(ctx, model.EntityRestaurant, restaurantID, &r); err != nil {
		return model.RestaurantSnapshot{}, err
	}
	for _, f := range cust.FavRestaurants {
		if f.ID == r.ID {
			return model.RestaurantSnapshot{}, alreadyExists("favourite restaurant %s", r.ID)
		}
	}
	snap := model.RestaurantSnapshot{ID: r.ID, Name: r.Name, City: r.Address.City}
	_, err = s.run(ctx, p, schema.FavoriteRestaurantAdd, schema.Params{
		schema.PCustomerID: cust.ID,
		schema.PRestaurant: snap,
	})
	return snap, err
}

// RemoveRestaurant drops restaurantID from the caller's favourites.
func (s *FavoriteService) RemoveRestaurant(ctx context.Context, p model.Principal, restaurantID string) error {
	cust, unlock, err := s.customer(ctx, p)
	if err != nil {
		return err
	}
	defer unlock()

	found := false
	for _, f := range cust.FavRestaurants {
		found = found || f.ID == restaurantID
	}
	if !found {
		return fmt.Errorf("favourite restaurant %s: %w", restaurantID, ErrNotFound)
	}
	_, err = s.run(ctx, p, schema.FavoriteRestaurantRemove, schema.Params{
		schema.PCustomerID:   cust.ID,
		schema.PRestaurantID: restaurantID,
	})
	return err
}

// AddBartender appends bartenderID to the caller's favourites.
func (s *FavoriteService) AddBartender(ctx context.Context, p model.Principal, bartenderID string) (model.BartenderSnapshot, error) {
	cust, unlock, err := s.customer(ctx, p)
	if err != nil {
		return model.BartenderSnapshot{}, err
	}
	defer unlock()
	// a concurrent profile edit must see this entry or write it
	unlockB, err := s.lock(ctx, bartenderKey(bartenderID))
	if err != nil {
		return model.BartenderSnapshot{}, err
	}
	defer unlockB()

	var b model.Bartender
	if err := s.load(ctx, model.EntityBartender, bartenderID, &b); err != nil {
		return model.BartenderSnapshot{}, err
	}
	for _, f := range cust.FavBartenders {
		if f.ID == b.ID {
			return model.BartenderSnapshot{}, alreadyExists("favourite bartender %s", b.ID)
		}
	}
	snap := model.BartenderSnapshot{ID: b.ID, Username: b.Username, Raiting: b.Raiting}
	_, err = s.run(ctx, p, schema.FavoriteBartenderAdd, schema.Params{
		schema.PCustomerID: cust.ID,
		schema.PBartender:  snap,
	})
	return snap, err
}

// RemoveBartender drops bartenderID from the caller's favourites.
func (s *FavoriteService) RemoveBartender(ctx context.Context, p model.Principal, bartenderID string) error {
	cust, unlock, err := s.customer(ctx, p)
	if err != nil {
		return err
	}
	defer unlock()

	found := false
	for _, f := range cust.FavBartenders {
		found = found || f.ID == bartenderID
	}
	if !found {
		return fmt.Errorf("favourite bartender %s: %w", bartenderID, ErrNotFound)
	}
	unlockB, err := s.lock(ctx, bartenderKey(bartenderID))
	if err != nil {
		return err
	}
	defer unlockB()
	_, err = s.run(ctx, p, schema.FavoriteBartenderRemove, schema.Params{
		schema.PCustomerID:  cust.ID,
		schema.PBartenderID: bartenderID,
	})
	return err
}

// customer locks and loads the calling customer's document.
func (s *FavoriteService) customer(ctx context.Context, p model.Principal) (model.Customer, func(), error) {
	cp, err := asCustomer(p)
	if err != nil {
		return model.Customer{}, nil, err
	}
	unlock, err := s.lock(ctx, customerKey(cp.ID))
	if err != nil {
		return model.Customer{}, nil, err
	}
	var cust model.Customer
	if err := s.load(ctx, model.EntityCustomer, cp.ID, &cust); err != nil {
		unlock()
		return model.Customer{}, nil, err
	}
	return cust, unlock, nil
}
