package handler // restaurant review endpoints

import (
	"net/http" // status codes
	"strings"  // query trimming

	"github.com/labstack/echo/v4" // context and JSON helpers
)

// ----- DTOs -----

type commentReq struct {
	RestaurantID string `json:"restaurantId"` // only read on create
	Text         string `json:"text"`
}

// CreateComment serves POST /comments for the calling customer.
func (h *Handler) CreateComment(c echo.Context) error {
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	cm, err := h.svc.Comments.Create(ctx, principal(c), req.RestaurantID, req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, cm)
}

// UpdateComment serves PUT /comments/:id.  Only the author may edit.
func (h *Handler) UpdateComment(c echo.Context) error {
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	cm, err := h.svc.Comments.Update(ctx, principal(c), c.Param("id"), req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cm)
}

// DeleteComment serves DELETE /comments/:id.
func (h *Handler) DeleteComment(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Comments.Delete(ctx, principal(c), c.Param("id")); err != nil {
		return h.fail(c, err) // 404 when a concurrent delete won
	}
	return c.NoContent(http.StatusNoContent)
}

// GetComment serves GET /comments/:id.
func (h *Handler) GetComment(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	cm, err := h.svc.Comments.Get(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cm)
}

// ListComments serves GET /comments?restaurant=, oldest first.
func (h *Handler) ListComments(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	list, err := h.svc.Comments.List(ctx, strings.TrimSpace(c.QueryParam("restaurant"))) // empty lists all
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ListRestaurantComments serves GET /restaurants/:id/comments, oldest first.
func (h *Handler) ListRestaurantComments(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	// an unknown restaurant is a 404, not an empty list
	if _, err := h.svc.Accounts.Restaurant(ctx, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	list, err := h.svc.Comments.List(ctx, c.Param("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
