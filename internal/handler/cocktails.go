package handler // cocktail browse, authoring and like endpoints

import (
	"net/http" // status codes
	"strings"  // query trimming

	"github.com/labstack/echo/v4" // context and JSON helpers

	"github.com/iliyamo/cocktail-hub/internal/model"   // image payload
	"github.com/iliyamo/cocktail-hub/internal/service" // cocktail and like services
)

// ListCocktails serves GET /cocktails?category=&owner=.
func (h *Handler) ListCocktails(c echo.Context) error {
	ctx, cancel := requestContext(c) // bound the store calls
	defer cancel()
	list, err := h.svc.Cocktails.List(ctx, service.CocktailFilter{
		Category: strings.TrimSpace(c.QueryParam("category")), // empty matches all
		OwnerID:  strings.TrimSpace(c.QueryParam("owner")),    // bartender id
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list) // newest first
}

// GetCocktail serves GET /cocktails/:id with its likes mirror.
func (h *Handler) GetCocktail(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	k, err := h.svc.Cocktails.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err) // 404 when missing
	}
	return c.JSON(http.StatusOK, k)
}

// CreateCocktail serves POST /cocktails for the calling bartender.
func (h *Handler) CreateCocktail(c echo.Context) error {
	var req service.CreateCocktailInput
	if err := c.Bind(&req); err != nil { // malformed JSON
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	k, err := h.svc.Cocktails.Create(ctx, principal(c), req) // validates, then runs the plan
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, k)
}

// UpdateCocktail serves PUT /cocktails/:id.  Only the owner may edit.
func (h *Handler) UpdateCocktail(c echo.Context) error {
	var req service.UpdateCocktailInput
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	k, err := h.svc.Cocktails.Update(ctx, principal(c), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err) // 403 for someone else's cocktail, 409 on a taken name
	}
	return c.JSON(http.StatusOK, k)
}

// SetCocktailImage serves PUT /cocktails/:id/image.
func (h *Handler) SetCocktailImage(c echo.Context) error {
	var req model.Image
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	k, err := h.svc.Cocktails.SetImage(ctx, principal(c), c.Param("id"), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, k)
}

// DeleteCocktail serves DELETE /cocktails/:id and retires its likes.
func (h *Handler) DeleteCocktail(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Cocktails.Delete(ctx, principal(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LikeCocktail serves POST /cocktails/:id/likes.
func (h *Handler) LikeCocktail(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	like, err := h.svc.Likes.Create(ctx, principal(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err) // 409 when already liked
	}
	return c.JSON(http.StatusCreated, like)
}

// UnlikeCocktail serves DELETE /cocktails/:id/likes.
func (h *Handler) UnlikeCocktail(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Likes.Remove(ctx, principal(c), c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListLikes serves GET /likes?cocktail=, oldest first.
func (h *Handler) ListLikes(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.svc.Likes.List(ctx, strings.TrimSpace(c.QueryParam("cocktail")))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
