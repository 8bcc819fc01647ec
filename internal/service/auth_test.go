package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
	"github.com/iliyamo/cocktail-hub/internal/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Auth.Register(f.ctx, model.RoleCustomer, RegisterInput{
		Username: "ann", Email: " Ann@Example.com ", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "customer", res.Role)
	assert.NotEmpty(t, res.Token)
	account, ok := res.Account.(store.Document)
	require.True(t, ok)
	assert.NotContains(t, account, model.FieldPassword)
	assert.Equal(t, "ann@example.com", account[model.FieldEmail])

	claims, err := utils.ParseAccessToken("test-secret", res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.ID, claims.Subject)
	assert.Equal(t, "customer", claims.Role)

	_, err = f.svc.Auth.Register(f.ctx, model.RoleCustomer, RegisterInput{
		Username: "ann2", Email: "ann@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	// Emails are unique per role only.
	_, err = f.svc.Auth.Register(f.ctx, model.RoleBartender, RegisterInput{
		Username: "ann", Email: "ann@example.com", Password: "secret123",
	})
	require.NoError(t, err)

	in, err := f.svc.Auth.Login(f.ctx, model.RoleCustomer, "ANN@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, res.ID, in.ID)

	_, err = f.svc.Auth.Login(f.ctx, model.RoleCustomer, "ann@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Auth.Login(f.ctx, model.RoleRestaurant, "ann@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		role model.Role
		in   RegisterInput
	}{
		{"bad email", model.RoleCustomer, RegisterInput{Username: "ann", Email: "nope", Password: "secret123"}},
		{"short password", model.RoleCustomer, RegisterInput{Username: "ann", Email: "ann@example.com", Password: "123"}},
		{"short username", model.RoleBartender, RegisterInput{Username: "a", Email: "bo@example.com", Password: "secret123"}},
		{"restaurant without city", model.RoleRestaurant, RegisterInput{Name: "Dive", Email: "dive@example.com", Password: "secret123"}},
		{"unknown role", "admin", RegisterInput{Username: "ann", Email: "ann@example.com", Password: "secret123"}},
		{"password past bcrypt limit", model.RoleCustomer, RegisterInput{Username: "ann", Email: "ann@example.com", Password: strings.Repeat("p", 80)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.Auth.Register(f.ctx, tt.role, tt.in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	p := f.register(t, model.RoleBartender)
	email := "bartender1@example.com"

	err := f.svc.Auth.ChangePassword(f.ctx, p, "secret123")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.ErrorIs(t, f.svc.Auth.ChangePassword(f.ctx, p, "abc"), ErrInvalidInput)

	require.NoError(t, f.svc.Auth.ChangePassword(f.ctx, p, "n3w-secret"))
	_, err = f.svc.Auth.Login(f.ctx, model.RoleBartender, email, "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Auth.Login(f.ctx, model.RoleBartender, email, "n3w-secret")
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.Auth.ChangePassword(f.ctx, nil, "whatever1"), ErrUnauthorized)
}

func TestAccounts(t *testing.T) {
	f := newFixture(t)
	b1 := f.register(t, model.RoleBartender)
	b2 := f.register(t, model.RoleBartender)
	c := f.register(t, model.RoleCustomer)
	r := f.register(t, model.RoleRestaurant)
	k := f.cocktail(t, b2, "Manhattan")
	_, err := f.svc.Likes.Create(f.ctx, c, k.ID)
	require.NoError(t, err)

	me, err := f.svc.Accounts.Me(f.ctx, c)
	require.NoError(t, err)
	cust, ok := me.(model.Customer)
	require.True(t, ok)
	assert.Empty(t, cust.Password)
	assert.Equal(t, []string{k.ID}, cust.FavCocktails)

	me, err = f.svc.Accounts.Me(f.ctx, r)
	require.NoError(t, err)
	assert.Empty(t, me.(model.Restaurant).Password)

	bs, err := f.svc.Accounts.Bartenders(f.ctx)
	require.NoError(t, err)
	require.Len(t, bs, 2)
	assert.Equal(t, b2.PrincipalID(), bs[0].ID)
	assert.Equal(t, b1.PrincipalID(), bs[1].ID)
	for _, b := range bs {
		assert.Empty(t, b.Password)
	}

	_, err = f.svc.Accounts.Restaurant(f.ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Accounts.Me(f.ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
