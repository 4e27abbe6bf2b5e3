package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/model"
)

func testVerifier() *Verifier {
	return NewVerifier(Config{JWTSecret: "secret", Issuer: "journal", TokenTTL: time.Hour})
}

func TestVerifierRoundTrip(t *testing.T) {
	v := testVerifier()
	id := uuid.NewString()

	token, err := v.Issue(model.User{ID: id, Email: "a@b.c"})
	require.NoError(t, err)

	user, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "a@b.c", user.Email)
}

func TestVerifierRejects(t *testing.T) {
	v := testVerifier()

	t.Run("non uuid subject", func(t *testing.T) {
		token, err := v.Issue(model.User{ID: "42"})
		require.NoError(t, err)
		_, err = v.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewVerifier(Config{JWTSecret: "other", Issuer: "journal", TokenTTL: time.Hour})
		token, err := other.Issue(model.User{ID: uuid.NewString()})
		require.NoError(t, err)
		_, err = v.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewVerifier(Config{JWTSecret: "secret", Issuer: "journal", TokenTTL: -time.Minute})
		token, err := expired.Issue(model.User{ID: uuid.NewString()})
		require.NoError(t, err)
		_, err = v.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong algorithm", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			Issuer:    "journal",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = v.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	v := testVerifier()
	id := uuid.NewString()

	var seen *model.User
	handler := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	token, err := v.Issue(model.User{ID: id})
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/trades", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, id, seen.ID)
}

func TestGetUserFromContext(t *testing.T) {
	_, ok := GetUserFromContext(context.Background())
	assert.False(t, ok)

	_, ok = GetUserFromContext(WithUser(context.Background(), &model.User{}))
	assert.False(t, ok)

	user, ok := GetUserFromContext(WithUser(context.Background(), &model.User{ID: "u1"}))
	assert.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}
