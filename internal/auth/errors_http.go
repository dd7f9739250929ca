package auth

import (
	"errors"
	"net/http"

	apperrors "github.com/spec-kit/area-service/pkg/util/errorutil"
)

var (
	errNotLoggedIn     = apperrors.NewDomainError("user-not-logged-in", "User not logged in", http.StatusUnauthorized, nil)
	errTokenExpired    = apperrors.NewDomainError("user-token-expired", "User token expired", http.StatusUnauthorized, nil)
	errTokenNotFresh   = apperrors.NewDomainError("user-token-not-fresh", "User token is not fresh", http.StatusUnauthorized, nil)
	errTokenInvalid    = apperrors.NewDomainError("user-token-invalid", "User token is invalid", http.StatusUnprocessableEntity, nil)
	errTokenRevoked    = apperrors.NewDomainError("user-token-revoked", "User token was revoked", http.StatusUnauthorized, nil)
	errLoggedInInvalid = apperrors.NewDomainError("user-logged-in-invalid", "User logged in is invalid", http.StatusUnauthorized, nil)
)

// ToHTTPError maps token and identity failures onto API errors.
// Errors that are not auth failures are returned unchanged.
func ToHTTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTokenMissing):
		return errNotLoggedIn.Wrap(err)
	case errors.Is(err, ErrTokenExpired):
		return errTokenExpired.Wrap(err)
	case errors.Is(err, ErrTokenNotFresh):
		return errTokenNotFresh.Wrap(err)
	case errors.Is(err, ErrTokenMalformed), errors.Is(err, ErrTokenTypeMismatch):
		return errTokenInvalid.Wrap(err)
	case errors.Is(err, ErrTokenRevoked):
		return errTokenRevoked.Wrap(err)
	case errors.Is(err, ErrUserUnresolvable):
		return errLoggedInInvalid.Wrap(err)
	default:
		return err
	}
}
