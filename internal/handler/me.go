package handler // endpoints acting on the caller's own account

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // context and JSON helpers

	"github.com/iliyamo/cocktail-hub/internal/model"   // image payload
	"github.com/iliyamo/cocktail-hub/internal/service" // profile input types
)

// ----- DTOs -----

type favoriteReq struct {
	ID string `json:"id"` // restaurant or bartender id
}

// Me returns the caller's own account without its password hash.
func (h *Handler) Me(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	acc, err := h.svc.Accounts.Me(ctx, principal(c)) // shape depends on the role
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

// UpdateProfile serves PUT /me.  Username changes reach every copy of the
// caller's snapshot.
func (h *Handler) UpdateProfile(c echo.Context) error {
	var req service.ProfileInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	acc, err := h.svc.Profiles.Update(ctx, principal(c), req)
	if err != nil {
		return h.fail(c, err) // 409 when the email is taken
	}
	return c.JSON(http.StatusOK, acc)
}

// SetAvatar serves PUT /me/avatar.
func (h *Handler) SetAvatar(c echo.Context) error {
	var req model.Image
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	acc, err := h.svc.Profiles.SetAvatar(ctx, principal(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, acc)
}

// AddExperience serves POST /me/experience for bartenders.
func (h *Handler) AddExperience(c echo.Context) error {
	var req service.ExperienceInput
	if err := c.Bind(&req); err != nil { // dates are RFC 3339
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	exp, err := h.svc.Profiles.AddExperience(ctx, principal(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, exp) // carries the generated id
}

// RemoveExperience serves DELETE /me/experience/:id.
func (h *Handler) RemoveExperience(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Profiles.RemoveExperience(ctx, principal(c), c.Param("id")); err != nil {
		return h.fail(c, err) // 404 for an unknown entry
	}
	return c.NoContent(http.StatusNoContent)
}

// ListFavorites serves GET /me/favorites.
func (h *Handler) ListFavorites(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	favs, err := h.svc.Favorites.List(ctx, principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, favs) // empty lists, never null
}

// AddFavoriteRestaurant serves POST /me/favorites/restaurants.
func (h *Handler) AddFavoriteRestaurant(c echo.Context) error {
	var req favoriteReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	snap, err := h.svc.Favorites.AddRestaurant(ctx, principal(c), req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, snap) // the stored snapshot
}

// RemoveFavoriteRestaurant serves DELETE /me/favorites/restaurants/:id.
func (h *Handler) RemoveFavoriteRestaurant(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Favorites.RemoveRestaurant(ctx, principal(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddFavoriteBartender serves POST /me/favorites/bartenders.
func (h *Handler) AddFavoriteBartender(c echo.Context) error {
	var req favoriteReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	snap, err := h.svc.Favorites.AddBartender(ctx, principal(c), req.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, snap)
}

// RemoveFavoriteBartender serves DELETE /me/favorites/bartenders/:id.
func (h *Handler) RemoveFavoriteBartender(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Favorites.RemoveBartender(ctx, principal(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
