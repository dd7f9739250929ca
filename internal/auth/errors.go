package auth

import "errors"

// Token and identity failures. Callers match them with errors.Is.
var (
	ErrTokenMissing      = errors.New("token missing")
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenTypeMismatch = errors.New("token type mismatch")
	ErrTokenNotFresh     = errors.New("token not fresh")
	ErrTokenRevoked      = errors.New("token revoked")
	ErrUserUnresolvable  = errors.New("user unresolvable")
)
