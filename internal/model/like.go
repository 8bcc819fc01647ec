package model

import "time"

// Like is the canonical record of a customer liking a cocktail.  Its
// existence is mirrored in Cocktail.likes and Customer.favCocktails.
type Like struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	CocktailID string    `json:"cocktailId"`
	CreatedAt  time.Time `json:"createdAt"`
}
