package service

import (
	"fmt"
	"net/http"
	"strings"

	apperrors "github.com/spec-kit/area-service/pkg/util/errorutil"
)

var (
	ErrUserAlreadyExists = apperrors.NewConflict("user-already-exists", "User already exists", nil)
	ErrUserLoginFailed   = apperrors.NewDomainError("user-login-failed", "User login failed", http.StatusUnauthorized, nil)
	ErrAreaNotFound      = apperrors.NewNotFound("area-not-exist", "Area")
	ErrPageInvalid       = apperrors.NewDomainError("pagination-page-invalid", "Pagination page is invalid", http.StatusBadRequest, nil)
	ErrLimitInvalid      = apperrors.NewDomainError("pagination-limit-invalid", "Pagination limit is invalid", http.StatusBadRequest, nil)
)

// fieldErrors collects per-field validation failures so a request reports all
// of them at once.
type fieldErrors map[string]any

func (f fieldErrors) add(field, code, message string) {
	f[field] = map[string]string{"code": code, "message": message}
}

// err returns nil when nothing was collected.
func (f fieldErrors) err(code, message string) error {
	if len(f) == 0 {
		return nil
	}
	return apperrors.NewValidationError(code, message, map[string]any(f))
}

// requireString trims value and reports a message when it is absent or blank.
func requireString(label string, value *string) (string, string) {
	if value == nil {
		return "", fmt.Sprintf("%s cannot be empty", label)
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return "", fmt.Sprintf("%s must be at least 1 characters long", label)
	}
	return trimmed, ""
}
