package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("unit-test-secret")

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	return token
}

func TestValidateMatchesSubject(t *testing.T) {

	authorizer := NewJwtAuthorizer(testSecret, 99)

	token := signToken(t, testSecret, jwt.MapClaims{"sub": "42"})

	assert.True(t, authorizer.Validate(token, 42))
	assert.False(t, authorizer.Validate(token, 43))
}

func TestValidateAcceptsNumericSubject(t *testing.T) {

	authorizer := NewJwtAuthorizer(testSecret, 99)

	// some issuers encode the subject as a json number
	token := signToken(t, testSecret, jwt.MapClaims{"sub": 42})

	assert.True(t, authorizer.Validate(token, 42))
}

func TestValidateRejectsBadTokens(t *testing.T) {

	authorizer := NewJwtAuthorizer(testSecret, 99)

	assert.False(t, authorizer.Validate("not-a-token", 42))

	wrongKey := signToken(t, []byte("some-other-secret"), jwt.MapClaims{"sub": "42"})
	assert.False(t, authorizer.Validate(wrongKey, 42))

	expired := signToken(t, testSecret, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	assert.False(t, authorizer.Validate(expired, 42))

	noSubject := signToken(t, testSecret, jwt.MapClaims{"aud": "lumapix"})
	assert.False(t, authorizer.Validate(noSubject, 42))
}

func TestIsAdmin(t *testing.T) {

	authorizer := NewJwtAuthorizer(testSecret, 99)

	assert.True(t, authorizer.IsAdmin(signToken(t, testSecret, jwt.MapClaims{"sub": "99"})))
	assert.False(t, authorizer.IsAdmin(signToken(t, testSecret, jwt.MapClaims{"sub": "42"})))

	// an unset admin id means nobody is admin
	unset := NewJwtAuthorizer(testSecret, 0)
	assert.False(t, unset.IsAdmin(signToken(t, testSecret, jwt.MapClaims{"sub": "0"})))
}
