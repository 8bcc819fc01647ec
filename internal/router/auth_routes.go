package router

import (
	"github.com/labstack/echo/v4" // routing

	"github.com/iliyamo/cocktail-hub/internal/middleware" // JWT auth
	"github.com/iliyamo/cocktail-hub/internal/model"      // roles
)

// RegisterAuth registers per-role register and login under /v1/auth, and
// the /v1/me endpoints shared by every role.  Profile edits are refused
// for restaurants inside the service.
func RegisterAuth(e *echo.Echo, o Options) {
	h := o.Handler
	g := e.Group("/v1/auth", o.limiter())
	// one register/login pair per role; the role is fixed by the path
	for _, r := range []struct {
		path string
		role model.Role
	}{
		{"/bartenders", model.RoleBartender},
		{"/customers", model.RoleCustomer},
		{"/restaurants", model.RoleRestaurant},
	} {
		g.POST(r.path+"/register", h.Register(r.role))
		g.POST(r.path+"/login", h.Login(r.role))
	}

	// ---- Own account ----
	me := e.Group("/v1/me", middleware.JWTAuth(o.JWTSecret), o.limiter())
	me.GET("", h.Me)
	me.PUT("", h.UpdateProfile)    // username, email, description
	me.PUT("/avatar", h.SetAvatar) // refreshes every copied snapshot
	me.PUT("/password", h.ChangePassword)
}
