package router

import (
	"github.com/labstack/echo/v4" // routing

	"github.com/iliyamo/cocktail-hub/internal/middleware" // JWT + role middlewares
	"github.com/iliyamo/cocktail-hub/internal/model"      // roles
)

// RegisterBartender registers cocktail authoring and the bartender's
// experience list.  All routes require a valid JWT and the bartender role;
// ownership of a cocktail is checked in the service.
func RegisterBartender(e *echo.Echo, o Options) {
	h := o.Handler
	g := e.Group("/v1",
		middleware.JWTAuth(o.JWTSecret),
		middleware.RequireRole(model.RoleBartender),
		o.limiter(),
	)

	// ---- Cocktails ----
	g.POST("/cocktails", h.CreateCocktail)
	g.PUT("/cocktails/:id", h.UpdateCocktail)
	g.PUT("/cocktails/:id/image", h.SetCocktailImage)
	g.DELETE("/cocktails/:id", h.DeleteCocktail) // also retires its likes

	// ---- Experience ----
	g.POST("/me/experience", h.AddExperience)
	g.DELETE("/me/experience/:id", h.RemoveExperience)
}
