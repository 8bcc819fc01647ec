package router

import (
	"github.com/labstack/echo/v4" // routing

	"github.com/iliyamo/cocktail-hub/internal/middleware" // cache middleware
)

// RegisterPublic registers the read-only browse endpoints.  These are the
// only cached routes; any successful write elsewhere bumps the cache
// generation so a mirror change is never served stale.
func RegisterPublic(e *echo.Echo, o Options) {
	h := o.Handler
	g := e.Group("/v1", o.limiter(), middleware.NewRedisCache(o.Cache, o.Redis))

	// ---- Cocktails and likes ----
	g.GET("/cocktails", h.ListCocktails) // ?category=&owner=
	g.GET("/cocktails/:id", h.GetCocktail)
	g.GET("/likes", h.ListLikes) // ?cocktail=

	// ---- Comments ----
	g.GET("/comments", h.ListComments) // ?restaurant=
	g.GET("/comments/:id", h.GetComment)

	// ---- Accounts ----
	g.GET("/restaurants", h.ListRestaurants)
	g.GET("/restaurants/:id", h.GetRestaurant)
	g.GET("/restaurants/:id/comments", h.ListRestaurantComments)
	g.GET("/bartenders", h.ListBartenders)
	g.GET("/bartenders/:id", h.GetBartender)
}
