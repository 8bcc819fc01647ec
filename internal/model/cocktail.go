package model

import "time"

// Cocktail is the canonical cocktail record.  Owner is a snapshot of the
// bartender that created it and Likes mirrors every active Like record.
type Cocktail struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Category    string        `json:"category"`
	Glass       string        `json:"glass,omitempty"`
	Ingredients []Ingredient  `json:"ingredients"`
	Preparation string        `json:"preparation,omitempty"`
	Image       *Image        `json:"image,omitempty"`
	Owner       OwnerSnapshot `json:"owner"`
	Likes       []LikeEntry   `json:"likes"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Ingredient is one line of a cocktail recipe.
type Ingredient struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Quantity float64 `json:"quantity"`
}

// OwnerSnapshot is the bartender data mirrored into Cocktail.owner.
type OwnerSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   *Image `json:"avatar,omitempty"`
}

// LikeEntry is the Like mirror stored in Cocktail.likes.
type LikeEntry struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Username   string `json:"username"`
	Avatar     *Image `json:"avatar,omitempty"`
}

// CocktailSnapshot is the compact cocktail copy kept in
// Bartender.personalCocktails.
type CocktailSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Image    *Image `json:"image,omitempty"`
}

// LikedBy reports whether customerID has an entry in c.Likes.
func (c Cocktail) LikedBy(customerID string) bool {
	for _, l := range c.Likes {
		if l.CustomerID == customerID {
			return true
		}
	}
	return false
}
