package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cocktail-hub/internal/config"
	"github.com/iliyamo/cocktail-hub/internal/handler"
	"github.com/iliyamo/cocktail-hub/internal/observability"
	"github.com/iliyamo/cocktail-hub/internal/service"
	"github.com/iliyamo/cocktail-hub/internal/store/memory"
)

const secret = "router-secret"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T, rdb redis.UniversalClient) *api {
	svc := service.New(service.Deps{
		Store: memory.New(),
		Auth:  service.AuthConfig{JWTSecret: secret, AccessTTLMin: 5, BcryptCost: bcrypt.MinCost},
	})
	e := New(Options{
		Handler:   handler.New(svc, nil),
		JWTSecret: secret,
		Redis:     rdb,
		Cache:     config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "cache"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Metrics:   observability.NewMetrics(),
	})
	return &api{t: t, e: e}
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var rdr *strings.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = strings.NewReader(string(bs))
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (a *api) register(role, name string) (id, token string) {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/v1/auth/"+role+"s/register", "", map[string]any{
		"username": name, "name": name, "email": name + "@example.com", "password": "secret123",
		"address": map[string]any{"city": "Porto"},
	})
	require.Equal(a.t, http.StatusCreated, status, body)
	return body["id"].(string), body["token"].(string)
}

func TestLikeFlow(t *testing.T) {
	a := newAPI(t, nil)
	_, bt := a.register("bartender", "bo")
	_, ct := a.register("customer", "ann")

	status, k := a.do(http.MethodPost, "/v1/cocktails", bt, map[string]any{"name": "Negroni", "category": "stirred"})
	require.Equal(t, http.StatusCreated, status, k)
	id := k["id"].(string)

	status, _ = a.do(http.MethodPost, "/v1/cocktails/"+id+"/likes", ct, nil)
	assert.Equal(t, http.StatusCreated, status)
	status, body := a.do(http.MethodPost, "/v1/cocktails/"+id+"/likes", ct, nil)
	assert.Equal(t, http.StatusConflict, status, body)

	status, k = a.do(http.MethodGet, "/v1/cocktails/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, k["likes"], 1)

	status, me := a.do(http.MethodGet, "/v1/me", ct, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{id}, me["favCocktails"])
	assert.NotContains(t, me, "password")

	status, _ = a.do(http.MethodDelete, "/v1/cocktails/"+id+"/likes", ct, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = a.do(http.MethodDelete, "/v1/cocktails/"+id+"/likes", ct, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRoleGates(t *testing.T) {
	a := newAPI(t, nil)
	_, bt := a.register("bartender", "bo")
	_, ct := a.register("customer", "ann")
	rid, _ := a.register("restaurant", "dive")

	status, _ := a.do(http.MethodPost, "/v1/cocktails", ct, map[string]any{"name": "Negroni", "category": "stirred"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = a.do(http.MethodPost, "/v1/cocktails", "", map[string]any{"name": "Negroni", "category": "stirred"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = a.do(http.MethodPut, "/v1/restaurants/"+rid+"/rating", bt, map[string]any{"rate": 4})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRatingEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	rid, _ := a.register("restaurant", "dive")
	_, c1 := a.register("customer", "ann")
	_, c2 := a.register("customer", "bob")

	status, body := a.do(http.MethodPut, "/v1/restaurants/"+rid+"/rating", c1, map[string]any{"rate": 5})
	require.Equal(t, http.StatusOK, status, body)
	status, body = a.do(http.MethodPut, "/v1/restaurants/"+rid+"/rating", c2, map[string]any{"rate": 3})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, map[string]any{"votes": 2.0, "stars": 4.0}, body["rating"])

	status, _ = a.do(http.MethodPut, "/v1/restaurants/"+rid+"/rating", c1, map[string]any{"rate": 9})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(http.MethodDelete, "/v1/restaurants/"+rid+"/rating", c1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"votes": 1.0, "stars": 3.0}, body["rating"])
}

func TestCommentsAndFavorites(t *testing.T) {
	a := newAPI(t, nil)
	rid, _ := a.register("restaurant", "dive")
	bid, _ := a.register("bartender", "bo")
	_, ct := a.register("customer", "ann")

	status, cm := a.do(http.MethodPost, "/v1/comments", ct, map[string]any{"restaurantId": rid, "text": "great"})
	require.Equal(t, http.StatusCreated, status, cm)
	cid := cm["id"].(string)
	status, cm = a.do(http.MethodPut, "/v1/comments/"+cid, ct, map[string]any{"text": "greater"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "greater", cm["text"])

	status, _ = a.do(http.MethodPost, "/v1/me/favorites/restaurants", ct, map[string]any{"id": rid})
	assert.Equal(t, http.StatusCreated, status)
	status, _ = a.do(http.MethodPost, "/v1/me/favorites/bartenders", ct, map[string]any{"id": bid})
	assert.Equal(t, http.StatusCreated, status)
	status, favs := a.do(http.MethodGet, "/v1/me/favorites", ct, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, favs["restaurants"], 1)
	assert.Len(t, favs["bartenders"], 1)

	status, _ = a.do(http.MethodDelete, "/v1/me/favorites/bartenders/"+bid, ct, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = a.do(http.MethodDelete, "/v1/comments/"+cid, ct, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = a.do(http.MethodGet, "/v1/comments/"+cid, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	_, tok := a.register("customer", "ann")

	status, _ := a.do(http.MethodPost, "/v1/auth/customers/login", "", map[string]any{"email": "ann@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = a.do(http.MethodPut, "/v1/me/password", tok, map[string]any{"password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = a.do(http.MethodPut, "/v1/me/password", tok, map[string]any{"password": "brand-new"})
	assert.Equal(t, http.StatusNoContent, status)
	status, body := a.do(http.MethodPost, "/v1/auth/customers/login", "", map[string]any{"email": "ann@example.com", "password": "brand-new"})
	assert.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, _ = a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPublicReadsAreCachedUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	a := newAPI(t, rdb)
	_, bt := a.register("bartender", "bo")

	get := func() (string, int) {
		req := httptest.NewRequest(http.MethodGet, "/v1/cocktails", nil)
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		var list []any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		return rec.Header().Get("X-Cache"), len(list)
	}
	hit, n := get()
	assert.Equal(t, "MISS", hit)
	assert.Zero(t, n)
	hit, _ = get()
	assert.Equal(t, "HIT", hit)

	status, _ := a.do(http.MethodPost, "/v1/cocktails", bt, map[string]any{"name": "Negroni", "category": "stirred"})
	require.Equal(t, http.StatusCreated, status)
	hit, n = get()
	assert.Equal(t, "MISS", hit)
	assert.Equal(t, 1, n)
}

func TestProfileAndCocktailEditEndpoints(t *testing.T) {
	a := newAPI(t, nil)
	_, bt := a.register("bartender", "bo")
	cid, ct := a.register("customer", "ann")
	_, rt := a.register("restaurant", "dive")

	status, k := a.do(http.MethodPost, "/v1/cocktails", bt, map[string]any{"name": "Negroni", "category": "stirred"})
	require.Equal(t, http.StatusCreated, status, k)
	id := k["id"].(string)
	status, _ = a.do(http.MethodPost, "/v1/cocktails/"+id+"/likes", ct, nil)
	require.Equal(t, http.StatusCreated, status)

	status, k = a.do(http.MethodPut, "/v1/cocktails/"+id, bt, map[string]any{"name": "Boulevardier"})
	require.Equal(t, http.StatusOK, status, k)
	assert.Equal(t, "Boulevardier", k["name"])
	status, _ = a.do(http.MethodPut, "/v1/cocktails/"+id, ct, map[string]any{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, status)
	status, k = a.do(http.MethodPut, "/v1/cocktails/"+id+"/image", bt, map[string]any{"imgName": "b.png", "imgPath": "/img/b.png"})
	require.Equal(t, http.StatusOK, status, k)

	status, me := a.do(http.MethodPut, "/v1/me", bt, map[string]any{"username": "bo2"})
	require.Equal(t, http.StatusOK, status, me)
	status, _ = a.do(http.MethodPut, "/v1/me/avatar", ct, map[string]any{"imgName": "a.png", "imgPath": "/img/a.png"})
	require.Equal(t, http.StatusOK, status)
	status, _ = a.do(http.MethodPut, "/v1/me", rt, map[string]any{"username": "dive2"})
	assert.Equal(t, http.StatusForbidden, status)

	// the cocktail carries both refreshed snapshots
	status, k = a.do(http.MethodGet, "/v1/cocktails/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "bo2", k["owner"].(map[string]any)["username"])
	likes := k["likes"].([]any)
	require.Len(t, likes, 1)
	assert.Equal(t, "/img/a.png", likes[0].(map[string]any)["avatar"].(map[string]any)["imgPath"])
	status, me = a.do(http.MethodGet, "/v1/me", bt, nil)
	require.Equal(t, http.StatusOK, status)
	snaps := me["personalCocktails"].([]any)
	require.Len(t, snaps, 1)
	assert.Equal(t, "Boulevardier", snaps[0].(map[string]any)["name"])

	status, exp := a.do(http.MethodPost, "/v1/me/experience", bt, map[string]any{
		"place": "Basso", "position": "barback", "from": "2019-01-01T00:00:00Z", "until": "2020-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, exp)
	status, _ = a.do(http.MethodPost, "/v1/me/experience", ct, map[string]any{"place": "Basso"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = a.do(http.MethodDelete, "/v1/me/experience/"+exp["id"].(string), bt, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = a.do(http.MethodDelete, "/v1/me/experience/"+exp["id"].(string), bt, nil)
	assert.Equal(t, http.StatusNotFound, status)

	list := func(path string) []any {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}
	got := list("/v1/likes?cocktail=" + id)
	require.Len(t, got, 1)
	assert.Equal(t, cid, got[0].(map[string]any)["customerId"])
	assert.Empty(t, list("/v1/likes?cocktail=nope"))
	assert.Empty(t, list("/v1/comments"))
}
