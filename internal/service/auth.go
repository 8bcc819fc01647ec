package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/store"
	"github.com/iliyamo/cocktail-hub/internal/utils"
)

// AuthService registers accounts, checks credentials and issues access
// tokens.  Accounts are single documents, so it writes to the store
// directly instead of going through a plan.
type AuthService struct {
	*base
	cfg AuthConfig
}

// RegisterInput is a new account.  Username applies to bartenders and
// customers, Name and Address to restaurants.
type RegisterInput struct {
	Username    string        `json:"username"`
	Name        string        `json:"name"`
	Email       string        `json:"email" validate:"required,email,min=6,max=255"`
	Password    string        `json:"password" validate:"required,min=6,max=255"`
	Description string        `json:"description" validate:"max=2048"`
	Address     model.Address `json:"address"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Account any       `json:"account"`
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type passwordInput struct {
	Password string `validate:"required,min=6,max=255"`
}

// Register creates an account of the given role.  Emails are unique per
// role.
func (s *AuthService) Register(ctx context.Context, role model.Role, in RegisterInput) (AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return AuthResult{}, err
	}
	et, err := entityForRole(role)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.checkRoleFields(role, in); err != nil {
		return AuthResult{}, err
	}

	unlock, err := s.lock(ctx, emailKey(role, in.Email))
	if err != nil {
		return AuthResult{}, err
	}
	defer unlock()

	dups, err := s.store.Query(ctx, et, store.Where(model.FieldEmail, in.Email))
	if err != nil {
		return AuthResult{}, err
	}
	if len(dups) > 0 {
		return AuthResult{}, alreadyExists("%s with email %s", role, in.Email)
	}
	hash, err := hashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.now()
	var account any
	switch role {
	case model.RoleBartender:
		account = model.Bartender{Username: in.Username, Email: in.Email, Password: hash, Description: in.Description,
			PersonalCocktails: []model.CocktailSnapshot{}, Experience: []model.Experience{}, CreatedAt: now}
	case model.RoleCustomer:
		account = model.Customer{Username: in.Username, Email: in.Email, Password: hash,
			FavCocktails: []string{}, FavRestaurants: []model.RestaurantSnapshot{}, FavBartenders: []model.BartenderSnapshot{},
			RatedRestaurants: []model.RatedRestaurant{}, Comments: []string{}, CreatedAt: now}
	case model.RoleRestaurant:
		account = model.Restaurant{Name: in.Name, Email: in.Email, Password: hash, Address: in.Address,
			Comments: []string{}, CreatedAt: now}
	}
	doc, err := store.Encode(account)
	if err != nil {
		return AuthResult{}, err
	}
	delete(doc, model.FieldID)
	id, err := s.store.Insert(ctx, et, doc)
	if err != nil {
		return AuthResult{}, err
	}
	doc[model.FieldID] = id
	return s.issue(doc, id, role)
}

func (s *AuthService) checkRoleFields(role model.Role, in RegisterInput) error {
	var err error
	switch role {
	case model.RoleBartender, model.RoleCustomer:
		err = s.validate.Var(in.Username, "required,min=2,max=255")
		if err != nil {
			return invalidInput("username must be 2 to 255 characters")
		}
	case model.RoleRestaurant:
		if err = s.validate.Var(in.Name, "required,min=2,max=255"); err != nil {
			return invalidInput("name must be 2 to 255 characters")
		}
		if err = s.validate.Var(in.Address.City, "required,min=2,max=255"); err != nil {
			return invalidInput("address.city must be 2 to 255 characters")
		}
	}
	return nil
}

// Login checks email and password for an account of role.  Unknown emails
// and wrong passwords give the same error.
func (s *AuthService) Login(ctx context.Context, role model.Role, email, password string) (AuthResult, error) {
	et, err := entityForRole(role)
	if err != nil {
		return AuthResult{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return AuthResult{}, invalidInput("email and password are required")
	}
	docs, err := s.store.Query(ctx, et, store.Where(model.FieldEmail, email))
	if err != nil {
		return AuthResult{}, err
	}
	if len(docs) == 0 {
		return AuthResult{}, ErrInvalidCredentials
	}
	doc := docs[0]
	hash, _ := doc[model.FieldPassword].(string)
	if !utils.VerifyPassword(hash, password) {
		return AuthResult{}, ErrInvalidCredentials
	}
	return s.issue(doc, doc.ID(), role)
}

// ChangePassword sets a new password for the caller.  Reusing the current
// password is rejected.
func (s *AuthService) ChangePassword(ctx context.Context, p model.Principal, password string) error {
	if p == nil {
		return fmt.Errorf("%w: no principal", ErrUnauthorized)
	}
	if err := s.check(passwordInput{Password: password}); err != nil {
		return err
	}
	et := model.EntityOf(p)
	doc, err := s.store.Find(ctx, et, p.PrincipalID())
	if err != nil {
		return err
	}
	current, _ := doc[model.FieldPassword].(string)
	if utils.VerifyPassword(current, password) {
		return invalidInput("cannot set the same password")
	}
	hash, err := hashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	return s.store.UpdateField(ctx, et, p.PrincipalID(), model.FieldPassword, hash)
}

func (s *AuthService) issue(doc store.Document, id string, role model.Role) (AuthResult, error) {
	tok, err := utils.NewAccessToken(s.cfg.JWTSecret, id, string(role), s.cfg.AccessTTLMin)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	public := doc.Clone()
	delete(public, model.FieldPassword)
	return AuthResult{Account: public, ID: id, Role: string(role), Token: tok.Token, Expires: tok.Exp}, nil
}

func entityForRole(role model.Role) (model.EntityType, error) {
	switch role {
	case model.RoleBartender:
		return model.EntityBartender, nil
	case model.RoleCustomer:
		return model.EntityCustomer, nil
	case model.RoleRestaurant:
		return model.EntityRestaurant, nil
	}
	return "", invalidInput("unknown role %q", role)
}

func hashPassword(plain string, cost int) (string, error) {
	hash, err := utils.HashPassword(plain, cost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		return "", invalidInput("password: %v", err)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
