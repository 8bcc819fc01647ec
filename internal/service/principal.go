package service

import (
	"fmt"

	"github.com/iliyamo/cocktail-hub/internal/model"
)

func asCustomer(p model.Principal) (model.CustomerPrincipal, error) {
	switch v := p.(type) {
	case model.CustomerPrincipal:
		return v, nil
	case model.BartenderPrincipal, model.RestaurantPrincipal:
		return model.CustomerPrincipal{}, fmt.Errorf("%w: %s cannot act as customer", ErrUnauthorized, p.Role())
	default:
		return model.CustomerPrincipal{}, fmt.Errorf("%w: no principal", ErrUnauthorized)
	}
}

func asBartender(p model.Principal) (model.BartenderPrincipal, error) {
	switch v := p.(type) {
	case model.BartenderPrincipal:
		return v, nil
	case model.CustomerPrincipal, model.RestaurantPrincipal:
		return model.BartenderPrincipal{}, fmt.Errorf("%w: %s cannot act as bartender", ErrUnauthorized, p.Role())
	default:
		return model.BartenderPrincipal{}, fmt.Errorf("%w: no principal", ErrUnauthorized)
	}
}

// authorizeOwner checks that p is the account that owns a record.
func authorizeOwner(p model.Principal, ownerID string) error {
	if p == nil {
		return fmt.Errorf("%w: no principal", ErrUnauthorized)
	}
	if p.PrincipalID() != ownerID {
		return fmt.Errorf("%w: %s %s does not own this record", ErrUnauthorized, p.Role(), p.PrincipalID())
	}
	return nil
}
