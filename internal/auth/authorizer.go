package auth

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer answers the two questions the orchestration layer needs from a
// bearer token: does it belong to the given user, and does it belong to the
// configured admin identity. Signature verification internals stay here.
type Authorizer interface {

	// Validate reports whether the token is valid and its subject resolves
	// to the given user id.
	Validate(token string, userId int64) bool

	// IsAdmin reports whether the token is valid and its subject resolves
	// to the configured admin identity.
	IsAdmin(token string) bool
}

// NewJwtAuthorizer creates an Authorizer verifying HS256 tokens with the
// given secret. The admin user id is injected at construction and is not
// runtime mutable.
func NewJwtAuthorizer(secret []byte, adminUserId int64) Authorizer {
	return &jwtAuthorizer{
		secret:      secret,
		adminUserId: adminUserId,
	}
}

var _ Authorizer = (*jwtAuthorizer)(nil)

// jwtAuthorizer is the concrete implementation of the Authorizer interface.
type jwtAuthorizer struct {
	secret      []byte
	adminUserId int64
}

// Validate is the concrete implementation of the interface method which
// reports whether the token is valid and belongs to the given user.
func (a *jwtAuthorizer) Validate(token string, userId int64) bool {

	sub, err := a.subject(token)
	if err != nil {
		return false
	}

	return sub == userId
}

// IsAdmin is the concrete implementation of the interface method which
// reports whether the token belongs to the configured admin identity.
func (a *jwtAuthorizer) IsAdmin(token string) bool {

	sub, err := a.subject(token)
	if err != nil {
		return false
	}

	return a.adminUserId > 0 && sub == a.adminUserId
}

// subject parses and verifies the token and returns its subject claim as a
// numeric user id.
func (a *jwtAuthorizer) subject(token string) (int64, error) {

	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, err
	}

	if !t.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}

	// subject may be a string or a json number depending on the issuer
	switch sub := claims["sub"].(type) {
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return 0, errors.New("subject is not a numeric user id")
		}
		return id, nil
	case float64:
		return int64(sub), nil
	default:
		return 0, errors.New("subject claim missing")
	}
}
