package service

import (
	"context"
	"fmt"
	"math"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/rating"
	"github.com/iliyamo/cocktail-hub/internal/schema"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// RatingService maintains Restaurant.rating and Customer.ratedRestaurants.
// Every read-modify-write of a restaurant's aggregate holds that
// restaurant's lock.
type RatingService struct {
	*base
}

// Rate records value as the caller's rating of restaurantID, replacing any
// earlier rating by the same customer.
func (s *RatingService) Rate(ctx context.Context, p model.Principal, restaurantID string, value int) (model.Rating, error) {
	cp, err := asCustomer(p)
	if err != nil {
		return model.Rating{}, err
	}
	if err := rating.Validate(value); err != nil {
		return model.Rating{}, err
	}
	unlock, err := s.lock(ctx, restaurantKey(restaurantID))
	if err != nil {
		return model.Rating{}, err
	}
	defer unlock()

	var r model.Restaurant
	if err := s.load(ctx, model.EntityRestaurant, restaurantID, &r); err != nil {
		return model.Rating{}, err
	}
	var cust model.Customer
	if err := s.load(ctx, model.EntityCustomer, cp.ID, &cust); err != nil {
		return model.Rating{}, err
	}

	prev, replace := cust.RatingFor(r.ID)
	kind := "add"
	var next rating.State
	if replace {
		kind = "replace"
		next, err = s.core.ComputeRatingAfterReplace(rating.State(r.Rating), prev.Rate, value)
	} else {
		next, err = s.core.ComputeRatingAfterAdd(rating.State(r.Rating), value)
	}
	if err != nil {
		return model.Rating{}, err
	}

	if _, err := s.run(ctx, p, schema.RestaurantRate, schema.Params{
		schema.PCustomerID:     cust.ID,
		schema.PRestaurantID:   r.ID,
		schema.PRestaurantName: r.Name,
		schema.PRate:           value,
		schema.PRating:         model.Rating(next),
		schema.PReplace:        replace,
	}); err != nil {
		return model.Rating{}, err
	}
	s.metrics.IncRatingUpdate(kind)
	return s.core.PresentRating(next), nil
}

// Unrate withdraws the caller's rating of restaurantID.
func (s *RatingService) Unrate(ctx context.Context, p model.Principal, restaurantID string) (model.Rating, error) {
	cp, err := asCustomer(p)
	if err != nil {
		return model.Rating{}, err
	}
	unlock, err := s.lock(ctx, restaurantKey(restaurantID))
	if err != nil {
		return model.Rating{}, err
	}
	defer unlock()

	var r model.Restaurant
	if err := s.load(ctx, model.EntityRestaurant, restaurantID, &r); err != nil {
		return model.Rating{}, err
	}
	var cust model.Customer
	if err := s.load(ctx, model.EntityCustomer, cp.ID, &cust); err != nil {
		return model.Rating{}, err
	}
	prev, ok := cust.RatingFor(r.ID)
	if !ok {
		return model.Rating{}, fmt.Errorf("rating by %s on restaurant %s: %w", cust.ID, r.ID, ErrNotFound)
	}
	next, err := s.core.ComputeRatingAfterRemove(rating.State(r.Rating), prev.Rate)
	if err != nil {
		return model.Rating{}, err
	}
	if _, err := s.run(ctx, p, schema.RestaurantUnrate, schema.Params{
		schema.PCustomerID:   cust.ID,
		schema.PRestaurantID: r.ID,
		schema.PRating:       model.Rating(next),
	}); err != nil {
		return model.Rating{}, err
	}
	s.metrics.IncRatingUpdate("remove")
	return s.core.PresentRating(next), nil
}

// RecomputeReport compares a restaurant's stored aggregate with the one
// rebuilt from every customer's ratedRestaurants entry.
type RecomputeReport struct {
	RestaurantID string       `json:"restaurantId"`
	Stored       model.Rating `json:"stored"`
	Computed     model.Rating `json:"computed"`
	Fixed        bool         `json:"fixed"`
}

// starsTolerance absorbs float noise of the running mean.
const starsTolerance = 1e-6

// Drifted reports whether the stored aggregate disagrees with the rebuilt one.
func (r RecomputeReport) Drifted() bool {
	return r.Stored.Votes != r.Computed.Votes || math.Abs(r.Stored.Stars-r.Computed.Stars) > starsTolerance
}

// Recompute rebuilds restaurantID's aggregate from scratch.  With fix set,
// a drifted aggregate is overwritten under the restaurant lock.
func (s *RatingService) Recompute(ctx context.Context, restaurantID string, fix bool) (RecomputeReport, error) {
	unlock, err := s.lock(ctx, restaurantKey(restaurantID))
	if err != nil {
		return RecomputeReport{}, err
	}
	defer unlock()

	var r model.Restaurant
	if err := s.load(ctx, model.EntityRestaurant, restaurantID, &r); err != nil {
		return RecomputeReport{}, err
	}
	values, err := s.contributions(ctx, r.ID)
	if err != nil {
		return RecomputeReport{}, err
	}
	computed, err := rating.Recompute(values)
	if err != nil {
		return RecomputeReport{}, err
	}
	rep := RecomputeReport{RestaurantID: r.ID, Stored: r.Rating, Computed: model.Rating(computed)}
	if fix && rep.Drifted() {
		if err := s.store.UpdateField(ctx, model.EntityRestaurant, r.ID, model.FieldRating, rep.Computed); err != nil {
			return rep, err
		}
		rep.Fixed = true
		s.metrics.IncRatingUpdate("recompute")
		s.log.Warn("restaurant rating drift fixed", "restaurant_id", r.ID,
			"stored_votes", rep.Stored.Votes, "stored_stars", rep.Stored.Stars,
			"votes", rep.Computed.Votes, "stars", rep.Computed.Stars)
	}
	return rep, nil
}

// RecomputeAll runs Recompute over every restaurant.
func (s *RatingService) RecomputeAll(ctx context.Context, fix bool) ([]RecomputeReport, error) {
	docs, err := s.store.Query(ctx, model.EntityRestaurant)
	if err != nil {
		return nil, err
	}
	out := make([]RecomputeReport, 0, len(docs))
	for _, doc := range docs {
		rep, err := s.Recompute(ctx, doc.ID(), fix)
		if err != nil {
			return out, err
		}
		out = append(out, rep)
	}
	return out, nil
}

// contributions collects every active rate on restaurantID.
func (s *RatingService) contributions(ctx context.Context, restaurantID string) ([]int, error) {
	docs, err := s.store.Query(ctx, model.EntityCustomer)
	if err != nil {
		return nil, err
	}
	var values []int
	for _, doc := range docs {
		var c model.Customer
		if err := store.Decode(doc, &c); err != nil {
			return nil, err
		}
		if rr, ok := c.RatingFor(restaurantID); ok {
			values = append(values, rr.Rate)
		}
	}
	return values, nil
}

func restaurantKey(id string) string { return "restaurant:" + id }
