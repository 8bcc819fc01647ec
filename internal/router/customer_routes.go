package router

import (
	"github.com/labstack/echo/v4" // routing

	"github.com/iliyamo/cocktail-hub/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/cocktail-hub/internal/model"      // roles
)

// RegisterCustomer registers likes, comments, ratings and favourites.  All
// of them require the customer role.
func RegisterCustomer(e *echo.Echo, o Options) {
	h := o.Handler
	g := e.Group("/v1",
		middleware.JWTAuth(o.JWTSecret),
		middleware.RequireRole(model.RoleCustomer),
		o.limiter(),
	)

	// ---- Likes ----
	g.POST("/cocktails/:id/likes", h.LikeCocktail)
	g.DELETE("/cocktails/:id/likes", h.UnlikeCocktail)

	// ---- Comments ----
	g.POST("/comments", h.CreateComment)
	g.PUT("/comments/:id", h.UpdateComment)    // author only
	g.DELETE("/comments/:id", h.DeleteComment) // author only

	// ---- Ratings ----
	g.PUT("/restaurants/:id/rating", h.RateRestaurant) // add or replace
	g.DELETE("/restaurants/:id/rating", h.UnrateRestaurant)

	// ---- Favourites ----
	g.GET("/me/favorites", h.ListFavorites)
	g.POST("/me/favorites/restaurants", h.AddFavoriteRestaurant)
	g.DELETE("/me/favorites/restaurants/:id", h.RemoveFavoriteRestaurant)
	g.POST("/me/favorites/bartenders", h.AddFavoriteBartender)
	g.DELETE("/me/favorites/bartenders/:id", h.RemoveFavoriteBartender)
}
