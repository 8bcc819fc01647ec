package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

func TestCocktailUpdateRefreshesSnapshot(t *testing.T) {
	f := newFixture(t)
	b := f.register(t, model.RoleBartender)
	other := f.register(t, model.RoleBartender)
	k := f.cocktail(t, b, "Negroni")
	f.cocktail(t, b, "Gimlet")

	got, err := f.svc.Cocktails.Update(f.ctx, b, k.ID, UpdateCocktailInput{
		Name:        "Negroni Sbagliato",
		Glass:       "coupe",
		Ingredients: []model.Ingredient{{Name: "prosecco", Unit: "ml", Quantity: 30}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Negroni Sbagliato", got.Name)
	assert.Equal(t, "sour", got.Category)

	stored, err := f.svc.Cocktails.Get(f.ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Name, stored.Name)
	assert.Equal(t, "coupe", stored.Glass)
	assert.Len(t, stored.Ingredients, 1)

	snaps := f.bartender(t, b.PrincipalID()).PersonalCocktails
	require.Len(t, snaps, 2)
	assert.Contains(t, snaps, model.CocktailSnapshot{ID: k.ID, Name: "Negroni Sbagliato", Category: "sour"})

	img := model.Image{ImgName: "n.png", ImgPath: "/img/n.png"}
	_, err = f.svc.Cocktails.SetImage(f.ctx, b, k.ID, img)
	require.NoError(t, err)
	assert.Contains(t, f.bartender(t, b.PrincipalID()).PersonalCocktails,
		model.CocktailSnapshot{ID: k.ID, Name: "Negroni Sbagliato", Category: "sour", Image: &img})

	_, err = f.svc.Cocktails.Update(f.ctx, b, k.ID, UpdateCocktailInput{Name: "Gimlet"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = f.svc.Cocktails.Update(f.ctx, other, k.ID, UpdateCocktailInput{Name: "Mine"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Cocktails.SetImage(f.ctx, b, k.ID, model.Image{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Cocktails.Update(f.ctx, b, "missing", UpdateCocktailInput{Name: "Gone"})
	assert.ErrorIs(t, err, ErrNotFound)
	assertConsistent(t, f)
}

func TestBartenderProfileRefreshesMirrors(t *testing.T) {
	f := newFixture(t)
	b := f.register(t, model.RoleBartender)
	fan := f.register(t, model.RoleCustomer)
	bystander := f.register(t, model.RoleCustomer)
	k1 := f.cocktail(t, b, "Paloma")
	k2 := f.cocktail(t, b, "Margarita")
	_, err := f.svc.Likes.Create(f.ctx, fan, k1.ID)
	require.NoError(t, err)
	_, err = f.svc.Favorites.AddBartender(f.ctx, fan, b.PrincipalID())
	require.NoError(t, err)

	avatar := model.Image{ImgName: "bo.png", ImgPath: "/img/bo.png"}
	_, err = f.svc.Profiles.SetAvatar(f.ctx, b, avatar)
	require.NoError(t, err)
	acc, err := f.svc.Profiles.Update(f.ctx, b, ProfileInput{Username: "bo-the-great", Description: "stirred, not shaken"})
	require.NoError(t, err)
	assert.Equal(t, "bo-the-great", acc.(model.Bartender).Username)
	assert.Empty(t, acc.(model.Bartender).Password)

	stored := f.bartender(t, b.PrincipalID())
	assert.Equal(t, "bo-the-great", stored.Username)
	assert.Equal(t, "stirred, not shaken", stored.Description)
	want := model.OwnerSnapshot{ID: b.PrincipalID(), Username: "bo-the-great", Avatar: &avatar}
	for _, id := range []string{k1.ID, k2.ID} {
		k, err := f.svc.Cocktails.Get(f.ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, k.Owner, id)
	}

	favs := f.customer(t, fan.PrincipalID()).FavBartenders
	require.Len(t, favs, 1)
	assert.Equal(t, model.BartenderSnapshot{ID: b.PrincipalID(), Username: "bo-the-great", Raiting: 1}, favs[0])
	assert.Empty(t, f.customer(t, bystander.PrincipalID()).FavBartenders)
	assertConsistent(t, f)
}

func TestCustomerProfileRefreshesMirrors(t *testing.T) {
	f := newFixture(t)
	b := f.register(t, model.RoleBartender)
	c := f.register(t, model.RoleCustomer)
	other := f.register(t, model.RoleCustomer)
	r := f.register(t, model.RoleRestaurant)
	k1 := f.cocktail(t, b, "Daiquiri")
	k2 := f.cocktail(t, b, "Mai Tai")
	for _, k := range []model.Cocktail{k1, k2} {
		_, err := f.svc.Likes.Create(f.ctx, c, k.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.Likes.Create(f.ctx, other, k1.ID)
	require.NoError(t, err)
	cm, err := f.svc.Comments.Create(f.ctx, c, r.PrincipalID(), "lovely terrace")
	require.NoError(t, err)

	avatar := model.Image{ImgName: "ann.png", ImgPath: "/img/ann.png"}
	_, err = f.svc.Profiles.SetAvatar(f.ctx, c, avatar)
	require.NoError(t, err)
	_, err = f.svc.Profiles.Update(f.ctx, c, ProfileInput{Username: "ann-b"})
	require.NoError(t, err)

	for _, id := range []string{k1.ID, k2.ID} {
		k, err := f.svc.Cocktails.Get(f.ctx, id)
		require.NoError(t, err)
		for _, e := range k.Likes {
			if e.CustomerID != c.PrincipalID() {
				assert.NotEqual(t, "ann-b", e.Username)
				continue
			}
			assert.Equal(t, "ann-b", e.Username, id)
			assert.Equal(t, &avatar, e.Avatar, id)
		}
	}
	got, err := f.svc.Comments.Get(f.ctx, cm.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann-b", got.Author.Username)
	assert.Equal(t, 3, f.store.Count(model.EntityLike))
	assertConsistent(t, f)

	// the like mirror stays removable after the refresh
	require.NoError(t, f.svc.Likes.Remove(f.ctx, c, k1.ID))
	assertConsistent(t, f)
}

func TestProfileUpdateValidation(t *testing.T) {
	f := newFixture(t)
	b := f.register(t, model.RoleBartender)
	b2 := f.register(t, model.RoleBartender)
	c := f.register(t, model.RoleCustomer)
	r := f.register(t, model.RoleRestaurant)
	taken := f.bartender(t, b2.PrincipalID()).Email

	_, err := f.svc.Profiles.Update(f.ctx, b, ProfileInput{Email: taken})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = f.svc.Profiles.Update(f.ctx, b, ProfileInput{Password: "new-secret"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Profiles.Update(f.ctx, b, ProfileInput{Email: "not-an-email"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Profiles.Update(f.ctx, c, ProfileInput{Description: "hi there"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Profiles.Update(f.ctx, r, ProfileInput{Username: "dive"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Profiles.SetAvatar(f.ctx, c, model.Image{ImgName: "x.png"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Profiles.Update(f.ctx, b, ProfileInput{Email: " New@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", f.bartender(t, b.PrincipalID()).Email)
	_, err = f.svc.Auth.Login(f.ctx, model.RoleBartender, "new@example.com", "secret123")
	assert.NoError(t, err)
}

func TestExperienceAddRemove(t *testing.T) {
	f := newFixture(t)
	b := f.register(t, model.RoleBartender)
	c := f.register(t, model.RoleCustomer)
	from := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)

	exp, err := f.svc.Profiles.AddExperience(f.ctx, b, ExperienceInput{
		Place: " Bar Basso ", Position: "head bartender", From: from, Until: from.AddDate(3, 0, 0),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, exp.ID)
	assert.Equal(t, "Bar Basso", exp.Place)
	stored := f.bartender(t, b.PrincipalID()).Experience
	require.Len(t, stored, 1)
	assert.Equal(t, exp, stored[0])

	_, err = f.svc.Profiles.AddExperience(f.ctx, b, ExperienceInput{
		Place: "Bar Basso", Position: "barback", From: from, Until: from.AddDate(-1, 0, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.Profiles.AddExperience(f.ctx, c, ExperienceInput{
		Place: "Bar Basso", Position: "barback", From: from, Until: from.AddDate(1, 0, 0),
	})
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.ErrorIs(t, f.svc.Profiles.RemoveExperience(f.ctx, b, "nope"), ErrNotFound)
	require.NoError(t, f.svc.Profiles.RemoveExperience(f.ctx, b, exp.ID))
	assert.Empty(t, f.bartender(t, b.PrincipalID()).Experience)
	assert.ErrorIs(t, f.svc.Profiles.RemoveExperience(f.ctx, b, exp.ID), ErrNotFound)
}

func TestLikeList(t *testing.T) {
	f := newFixture(t)
	b := f.register(t, model.RoleBartender)
	c1 := f.register(t, model.RoleCustomer)
	c2 := f.register(t, model.RoleCustomer)
	k1 := f.cocktail(t, b, "Sidecar")
	k2 := f.cocktail(t, b, "Aviation")
	for _, c := range []model.Principal{c1, c2} {
		_, err := f.svc.Likes.Create(f.ctx, c, k1.ID)
		require.NoError(t, err)
	}
	_, err := f.svc.Likes.Create(f.ctx, c1, k2.ID)
	require.NoError(t, err)

	all, err := f.svc.Likes.List(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.Before(all[2].CreatedAt))
	onK1, err := f.svc.Likes.List(f.ctx, k1.ID)
	require.NoError(t, err)
	require.Len(t, onK1, 2)
	assert.Equal(t, c1.PrincipalID(), onK1[0].CustomerID)
}
