package handler // restaurant, rating and bartender browse endpoints

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // context and JSON helpers
)

// ----- DTOs -----

type rateReq struct {
	Rate int `json:"rate"` // 0 to 5
}

// ListRestaurants serves GET /restaurants, best rated first.
func (h *Handler) ListRestaurants(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.svc.Accounts.Restaurants(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetRestaurant serves GET /restaurants/:id with its rounded rating.
func (h *Handler) GetRestaurant(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.svc.Accounts.Restaurant(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// RateRestaurant serves PUT /restaurants/:id/rating.  A second PUT by the
// same customer replaces the earlier rate.
func (h *Handler) RateRestaurant(c echo.Context) error {
	var req rateReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.svc.Ratings.Rate(ctx, principal(c), c.Param("id"), req.Rate)
	if err != nil {
		return h.fail(c, err) // 400 for a rate out of range
	}
	return c.JSON(http.StatusOK, echo.Map{"rating": r})
}

// UnrateRestaurant serves DELETE /restaurants/:id/rating.
func (h *Handler) UnrateRestaurant(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	r, err := h.svc.Ratings.Unrate(ctx, principal(c), c.Param("id"))
	if err != nil {
		return h.fail(c, err) // 404 when the caller never rated
	}
	return c.JSON(http.StatusOK, echo.Map{"rating": r})
}

// ListBartenders serves GET /bartenders, highest raiting first.
func (h *Handler) ListBartenders(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.svc.Accounts.Bartenders(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// GetBartender serves GET /bartenders/:id.
func (h *Handler) GetBartender(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := h.svc.Accounts.Bartender(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, b)
}
