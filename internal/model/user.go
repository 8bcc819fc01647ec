package model

import "time"

// Bartender is a bartender account.  PersonalCocktails mirrors a compact
// snapshot of every cocktail the bartender owns and Raiting counts the
// active likes across those cocktails.
//
// Fields:
//
//	Password          – bcrypt hash, never returned to clients.
//	PersonalCocktails – written only by the cocktail create/delete plans.
//	Raiting           – changed only by atomic increments from like plans.
//	Experience        – owned by the bartender, mirrored nowhere.
type Bartender struct {
	ID                string             `json:"id"`
	Username          string             `json:"username"`
	Email             string             `json:"email"`
	Password          string             `json:"password,omitempty"`
	Avatar            *Image             `json:"avatar,omitempty"`
	Description       string             `json:"description,omitempty"`
	PersonalCocktails []CocktailSnapshot `json:"personalCocktails"`
	Raiting           int64              `json:"raiting"`
	Experience        []Experience       `json:"experience"`
	CreatedAt         time.Time          `json:"createdAt"`
}

// Experience is one past position on a bartender's profile.
type Experience struct {
	ID       string    `json:"id"`
	Place    string    `json:"place"`
	Position string    `json:"position"`
	From     time.Time `json:"from"`
	Until    time.Time `json:"until"`
}

// FindExperience reports whether b has an experience entry with id.
func (b Bartender) FindExperience(id string) bool {
	for _, e := range b.Experience {
		if e.ID == id {
			return true
		}
	}
	return false
}

// Public returns a copy of b without the password hash.
func (b Bartender) Public() Bartender {
	b.Password = ""
	return b
}

// Snapshot returns the owner data mirrored into a cocktail.
func (b Bartender) Snapshot() OwnerSnapshot {
	return OwnerSnapshot{ID: b.ID, Username: b.Username, Avatar: b.Avatar}
}

// Customer is a customer account together with everything the customer
// has liked, rated, favourited or written.
type Customer struct {
	ID               string               `json:"id"`
	Username         string               `json:"username"`
	Email            string               `json:"email"`
	Password         string               `json:"password,omitempty"`
	Avatar           *Image               `json:"avatar,omitempty"`
	FavCocktails     []string             `json:"favCocktails"`
	FavRestaurants   []RestaurantSnapshot `json:"favRestaurants"`
	FavBartenders    []BartenderSnapshot  `json:"favBartenders"`
	RatedRestaurants []RatedRestaurant    `json:"ratedRestaurants"`
	Comments         []string             `json:"comments"`
	CreatedAt        time.Time            `json:"createdAt"`
}

// Public returns a copy of c without the password hash.
func (c Customer) Public() Customer {
	c.Password = ""
	return c
}

// RatingFor returns the customer's current rate for restaurantID.
func (c Customer) RatingFor(restaurantID string) (RatedRestaurant, bool) {
	for _, r := range c.RatedRestaurants {
		if r.RestaurantID == restaurantID {
			return r, true
		}
	}
	return RatedRestaurant{}, false
}

// RestaurantSnapshot is the restaurant data kept in Customer.favRestaurants.
type RestaurantSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// FavoritesBartender reports whether c keeps bartenderID in favBartenders.
func (c Customer) FavoritesBartender(bartenderID string) (BartenderSnapshot, bool) {
	for _, f := range c.FavBartenders {
		if f.ID == bartenderID {
			return f, true
		}
	}
	return BartenderSnapshot{}, false
}

// BartenderSnapshot is the bartender data kept in Customer.favBartenders.
type BartenderSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Raiting  int64  `json:"raiting"`
}

// RatedRestaurant is one customer's contribution to a restaurant rating.
type RatedRestaurant struct {
	RestaurantID   string `json:"restaurantId"`
	RestaurantName string `json:"restaurantName"`
	Rate           int    `json:"rate"`
}

// Restaurant is a restaurant account.  Rating is the incrementally
// maintained aggregate of every customer's RatedRestaurant entry.
type Restaurant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	Address   Address   `json:"address"`
	Rating    Rating    `json:"rating"`
	Comments  []string  `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns a copy of r without the password hash.
func (r Restaurant) Public() Restaurant {
	r.Password = ""
	return r
}

// Address is a restaurant postal address.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city"`
}

// Rating is the stored (votes, stars) aggregate of a restaurant.
type Rating struct {
	Votes int     `json:"votes"`
	Stars float64 `json:"stars"`
}
