package auth

import "errors"

var (
	// ErrUnauthorized covers every identity failure: missing, malformed,
	// expired, or semantically invalid token, and hydration misses. The
	// caller must never learn whether a referenced id exists.
	ErrUnauthorized = errors.New("auth: unauthorized")

	// ErrForbidden means the identity is known but the capability check
	// failed at both tiers, or an ownership comparison failed.
	ErrForbidden = errors.New("auth: forbidden")

	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrExpiredToken indicates a well-formed token past its expiry.
	ErrExpiredToken = errors.New("auth: token expired")

	// ErrUnknownRole reports a role id absent from the registry. Role ids
	// are constrained at the data layer, so this is always a bug and must
	// surface as an internal error, never as an access denial.
	ErrUnknownRole = errors.New("auth: unknown role")
)
