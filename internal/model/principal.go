package model

import (
	"errors"
	"fmt"
)

// Role is the role claim carried in access tokens.  It only exists at the
// token boundary; everything past the middleware works with Principal.
type Role string

const (
	RoleBartender  Role = "bartender"
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
)

// ErrUnknownRole is returned by NewPrincipal for unrecognized role claims.
var ErrUnknownRole = errors.New("unknown role")

// Principal is the authenticated actor of a request.  The set of
// implementations is closed: BartenderPrincipal, CustomerPrincipal and
// RestaurantPrincipal.  Authorization switches on the concrete type.
type Principal interface {
	PrincipalID() string
	Role() Role
	isPrincipal()
}

// BartenderPrincipal is an authenticated bartender.
type BartenderPrincipal struct{ ID string }

// CustomerPrincipal is an authenticated customer.
type CustomerPrincipal struct{ ID string }

// RestaurantPrincipal is an authenticated restaurant account.
type RestaurantPrincipal struct{ ID string }

func (p BartenderPrincipal) PrincipalID() string  { return p.ID }
func (p CustomerPrincipal) PrincipalID() string   { return p.ID }
func (p RestaurantPrincipal) PrincipalID() string { return p.ID }

func (BartenderPrincipal) Role() Role  { return RoleBartender }
func (CustomerPrincipal) Role() Role   { return RoleCustomer }
func (RestaurantPrincipal) Role() Role { return RoleRestaurant }

func (BartenderPrincipal) isPrincipal()  {}
func (CustomerPrincipal) isPrincipal()   {}
func (RestaurantPrincipal) isPrincipal() {}

// NewPrincipal builds the variant matching a token's role claim.
func NewPrincipal(role Role, id string) (Principal, error) {
	if id == "" {
		return nil, errors.New("empty principal id")
	}
	switch role {
	case RoleBartender:
		return BartenderPrincipal{ID: id}, nil
	case RoleCustomer:
		return CustomerPrincipal{ID: id}, nil
	case RoleRestaurant:
		return RestaurantPrincipal{ID: id}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}

// EntityOf returns the entity type that stores the principal's account.
func EntityOf(p Principal) EntityType {
	switch p.(type) {
	case BartenderPrincipal:
		return EntityBartender
	case CustomerPrincipal:
		return EntityCustomer
	case RestaurantPrincipal:
		return EntityRestaurant
	default:
		return ""
	}
}
