package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/schema"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// ProfileService edits bartender and customer profiles.  Username and
// avatar are copied into other documents, so every edit is a plan that
// refreshes those copies too.
type ProfileService struct {
	*base
}

// ProfileInput is a partial profile edit.  Empty fields keep their value.
type ProfileInput struct {
	Username    string `json:"username" validate:"omitempty,min=2,max=255"`
	Email       string `json:"email" validate:"omitempty,email,min=6,max=255"`
	Description string `json:"description" validate:"max=2048"`
	// Password is refused here; it has its own endpoint.
	Password string `json:"password"`
}

// ExperienceInput is one new experience entry.
type ExperienceInput struct {
	Place    string    `json:"place" validate:"required,min=2,max=255"`
	Position string    `json:"position" validate:"required,min=2,max=255"`
	From     time.Time `json:"from" validate:"required"`
	Until    time.Time `json:"until" validate:"required,gtfield=From"`
}

// profileEdit is a normalized edit shared by both roles.
type profileEdit struct {
	username    string
	email       string
	description *string
	avatar      *model.Image
}

// Update applies in to the caller's profile.
func (s *ProfileService) Update(ctx context.Context, p model.Principal, in ProfileInput) (any, error) {
	if in.Password != "" {
		return nil, invalidInput("password cannot be changed here")
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Description = strings.TrimSpace(in.Description)
	if err := s.check(in); err != nil {
		return nil, err
	}
	edit := profileEdit{username: in.Username, email: in.Email}
	if in.Description != "" {
		edit.description = &in.Description
	}
	return s.apply(ctx, p, edit)
}

// SetAvatar replaces the caller's avatar.
func (s *ProfileService) SetAvatar(ctx context.Context, p model.Principal, img model.Image) (any, error) {
	img.ImgName = strings.TrimSpace(img.ImgName)
	img.ImgPath = strings.TrimSpace(img.ImgPath)
	if img.ImgName == "" || img.ImgPath == "" {
		return nil, invalidInput("imgName and imgPath are required")
	}
	return s.apply(ctx, p, profileEdit{avatar: &img})
}

func (s *ProfileService) apply(ctx context.Context, p model.Principal, edit profileEdit) (any, error) {
	switch v := p.(type) {
	case model.BartenderPrincipal:
		return s.updateBartender(ctx, p, v.ID, edit)
	case model.CustomerPrincipal:
		return s.updateCustomer(ctx, p, v.ID, edit)
	case model.RestaurantPrincipal:
		return nil, fmt.Errorf("%w: restaurant profiles cannot be edited", ErrUnauthorized)
	default:
		return nil, fmt.Errorf("%w: no principal", ErrUnauthorized)
	}
}

// updateBartender refreshes the owner snapshot of every owned cocktail and
// the favBartenders entry of every customer that keeps this bartender.
func (s *ProfileService) updateBartender(ctx context.Context, p model.Principal, id string, edit profileEdit) (model.Bartender, error) {
	unlock, err := s.lock(ctx, bartenderKey(id))
	if err != nil {
		return model.Bartender{}, err
	}
	defer unlock()

	var b model.Bartender
	if err := s.load(ctx, model.EntityBartender, id, &b); err != nil {
		return model.Bartender{}, err
	}
	unlockEmail, err := s.claimEmail(ctx, model.RoleBartender, b.Email, edit.email)
	if err != nil {
		return model.Bartender{}, err
	}
	defer unlockEmail()

	// apply the edit to the loaded copy
	if edit.username != "" {
		b.Username = edit.username
	}
	if edit.email != "" {
		b.Email = edit.email
	}
	if edit.description != nil {
		b.Description = *edit.description
	}
	if edit.avatar != nil {
		b.Avatar = edit.avatar
	}

	// every cocktail the bartender owns carries an owner snapshot
	cocktails := make([]map[string]any, 0, len(b.PersonalCocktails))
	for _, k := range b.PersonalCocktails {
		cocktails = append(cocktails, map[string]any{"id": k.ID})
	}
	// customers keeping the bartender as a favourite get a fresh entry
	customers, err := s.store.Query(ctx, model.EntityCustomer)
	if err != nil {
		return model.Bartender{}, err
	}
	var fans []map[string]any
	for _, doc := range customers {
		var c model.Customer
		if err := store.Decode(doc, &c); err != nil {
			return model.Bartender{}, err
		}
		if _, ok := c.FavoritesBartender(b.ID); !ok {
			continue
		}
		fans = append(fans, map[string]any{
			"id":    c.ID,
			"entry": model.BartenderSnapshot{ID: b.ID, Username: b.Username, Raiting: b.Raiting},
		})
	}

	if _, err := s.run(ctx, p, schema.BartenderProfileUpdate, schema.Params{
		schema.PBartenderID: b.ID,
		schema.PUsername:    b.Username,
		schema.PEmail:       b.Email,
		schema.PDescription: b.Description,
		schema.PAvatar:      b.Avatar,
		schema.POwner:       b.Snapshot(),
		schema.PCocktails:   cocktails,
		schema.PFans:        fans,
	}); err != nil {
		return model.Bartender{}, err
	}
	return b.Public(), nil
}

// updateCustomer refreshes the customer's entry in Cocktail.likes and the
// author snapshot of every comment they wrote.
func (s *ProfileService) updateCustomer(ctx context.Context, p model.Principal, id string, edit profileEdit) (model.Customer, error) {
	if edit.description != nil {
		return model.Customer{}, invalidInput("customers have no description")
	}
	unlock, err := s.lock(ctx, customerKey(id))
	if err != nil {
		return model.Customer{}, err
	}
	defer unlock()

	var c model.Customer
	if err := s.load(ctx, model.EntityCustomer, id, &c); err != nil {
		return model.Customer{}, err
	}
	unlockEmail, err := s.claimEmail(ctx, model.RoleCustomer, c.Email, edit.email)
	if err != nil {
		return model.Customer{}, err
	}
	defer unlockEmail()

	if edit.username != "" {
		c.Username = edit.username
	}
	if edit.email != "" {
		c.Email = edit.email
	}
	if edit.avatar != nil {
		c.Avatar = edit.avatar
	}

	// one like entry per active Like record of the customer
	docs, err := s.store.Query(ctx, model.EntityLike, store.Where(model.FieldCustomerID, c.ID))
	if err != nil {
		return model.Customer{}, err
	}
	entries := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		var l model.Like
		if err := store.Decode(doc, &l); err != nil {
			return model.Customer{}, err
		}
		entries = append(entries, map[string]any{
			"id":         l.ID,
			"cocktailId": l.CocktailID,
			"entry":      model.LikeEntry{ID: l.ID, CustomerID: c.ID, Username: c.Username, Avatar: c.Avatar},
		})
	}
	comments := make([]map[string]any, 0, len(c.Comments))
	for _, cid := range c.Comments {
		comments = append(comments, map[string]any{"id": cid})
	}

	if _, err := s.run(ctx, p, schema.CustomerProfileUpdate, schema.Params{
		schema.PCustomerID:  c.ID,
		schema.PUsername:    c.Username,
		schema.PEmail:       c.Email,
		schema.PAvatar:      c.Avatar,
		schema.PLikeEntries: entries,
		schema.PComments:    comments,
		schema.PAuthor:      model.AuthorSnapshot{ID: c.ID, Username: c.Username, Role: model.RoleCustomer},
	}); err != nil {
		return model.Customer{}, err
	}
	return c.Public(), nil
}

// claimEmail locks next and checks nobody else of role uses it.  It is a
// no-op when the email does not change.
func (s *ProfileService) claimEmail(ctx context.Context, role model.Role, current, next string) (func(), error) {
	if next == "" || next == current {
		return func() {}, nil
	}
	et, err := entityForRole(role)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, emailKey(role, next))
	if err != nil {
		return nil, err
	}
	dups, err := s.store.Query(ctx, et, store.Where(model.FieldEmail, next))
	if err != nil {
		unlock()
		return nil, err
	}
	if len(dups) > 0 {
		unlock()
		return nil, alreadyExists("%s with email %s", role, next)
	}
	return unlock, nil
}

// AddExperience appends an entry to the calling bartender's experience.
func (s *ProfileService) AddExperience(ctx context.Context, p model.Principal, in ExperienceInput) (model.Experience, error) {
	bp, err := asBartender(p)
	if err != nil {
		return model.Experience{}, err
	}
	in.Place = strings.TrimSpace(in.Place)
	in.Position = strings.TrimSpace(in.Position)
	if err := s.check(in); err != nil {
		return model.Experience{}, err
	}
	unlock, err := s.lock(ctx, bartenderKey(bp.ID))
	if err != nil {
		return model.Experience{}, err
	}
	defer unlock()

	var b model.Bartender
	if err := s.load(ctx, model.EntityBartender, bp.ID, &b); err != nil {
		return model.Experience{}, err
	}
	exp := model.Experience{
		ID:       store.NewID(),
		Place:    in.Place,
		Position: in.Position,
		From:     in.From.UTC(),
		Until:    in.Until.UTC(),
	}
	_, err = s.run(ctx, p, schema.ExperienceAdd, schema.Params{
		schema.PBartenderID: b.ID,
		schema.PExperience:  exp,
	})
	return exp, err
}

// RemoveExperience drops the calling bartender's experience entry id.
func (s *ProfileService) RemoveExperience(ctx context.Context, p model.Principal, id string) error {
	bp, err := asBartender(p)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, bartenderKey(bp.ID))
	if err != nil {
		return err
	}
	defer unlock()

	var b model.Bartender
	if err := s.load(ctx, model.EntityBartender, bp.ID, &b); err != nil {
		return err
	}
	if !b.FindExperience(id) {
		return fmt.Errorf("experience %s: %w", id, ErrNotFound)
	}
	_, err = s.run(ctx, p, schema.ExperienceRemove, schema.Params{
		schema.PBartenderID:  b.ID,
		schema.PExperienceID: id,
	})
	return err
}

func bartenderKey(id string) string { return "bartender:" + id }

func customerKey(id string) string { return "customer:" + id }

func emailKey(role model.Role, email string) string { return "email:" + string(role) + ":" + email }
