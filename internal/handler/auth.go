package handler // registration, login and password endpoints

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // context and JSON helpers

	"github.com/iliyamo/cocktail-hub/internal/model"   // roles
	"github.com/iliyamo/cocktail-hub/internal/service" // auth service
)

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordReq struct {
	Password string `json:"password"`
}

// Register returns the handler creating accounts of role.
func (h *Handler) Register(role model.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req service.RegisterInput
		if err := c.Bind(&req); err != nil { // malformed JSON
			return badBody(c)
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		res, err := h.svc.Auth.Register(ctx, role, req)
		if err != nil {
			return h.fail(c, err) // 409 when the email is taken
		}
		return c.JSON(http.StatusCreated, res) // account plus a fresh token
	}
}

// Login returns the handler authenticating accounts of role.
func (h *Handler) Login(role model.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginReq
		if err := c.Bind(&req); err != nil {
			return badBody(c)
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		res, err := h.svc.Auth.Login(ctx, role, req.Email, req.Password)
		if err != nil {
			return h.fail(c, err) // unknown email and wrong password both give 401
		}
		return c.JSON(http.StatusOK, res)
	}
}

// ChangePassword serves PUT /me/password for every role.
func (h *Handler) ChangePassword(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.svc.Auth.ChangePassword(ctx, principal(c), req.Password); err != nil {
		return h.fail(c, err) // 400 when reusing the current password
	}
	return c.NoContent(http.StatusNoContent)
}
