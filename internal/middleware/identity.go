package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

// Context keys set by JWTAuth.
const (
	principalKey = "principal"
	userIDKey    = "user_id"
	roleKey      = "role"
)

// Principal returns the authenticated principal, if any.
func Principal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p != nil
}

// SetPrincipal stores p the way JWTAuth does.  Handler tests use it to
// skip token issuance.
func SetPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.PrincipalID())
	c.Set(roleKey, string(p.Role()))
}

// userID identifies the caller for rate limiting; "anon" when
// unauthenticated.
func userID(c echo.Context) string {
	if p, ok := Principal(c); ok {
		return p.PrincipalID()
	}
	return "anon"
}
