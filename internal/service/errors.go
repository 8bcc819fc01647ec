package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/cocktail-hub/internal/fanout"
	"github.com/iliyamo/cocktail-hub/internal/model"
	"github.com/iliyamo/cocktail-hub/internal/rating"
	"github.com/iliyamo/cocktail-hub/internal/store"
)

// Error taxonomy returned to handlers.  NotFound and AlreadyExists are the
// store sentinels so errors coming straight from the store match too.
var (
	ErrNotFound           = store.ErrNotFound
	ErrAlreadyExists      = store.ErrAlreadyExists
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRating      = rating.ErrInvalidRating
	ErrPartialFailure     = fanout.ErrPartialFailure
)

func notFound(et model.EntityType, id string) error {
	return fmt.Errorf("%s %s: %w", et, id, ErrNotFound)
}

func alreadyExists(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrAlreadyExists)
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// validationError flattens validator errors into one ErrInvalidInput.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return invalidInput("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return invalidInput("%s failed %s", fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}
