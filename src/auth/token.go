package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tradejournal/src/model"
)

// ErrInvalidToken is returned for tokens that fail signature, expiry or
// subject checks.
var ErrInvalidToken = errors.New("invalid token")

// Claims issued by the hosted auth platform. Subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks bearer tokens and resolves them to users.
type Verifier struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewVerifier builds a Verifier from config.
func NewVerifier(config Config) *Verifier {
	return &Verifier{
		secret: []byte(config.JWTSecret),
		issuer: config.Issuer,
		ttl:    config.TokenTTL,
	}
}

// Parse validates tokenString and returns the user it was issued for.
func (v *Verifier) Parse(tokenString string) (*model.User, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &model.User{ID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a token for user. The hosted platform issues tokens in
// production; this is used by the CLI and tests.
func (v *Verifier) Issue(user model.User) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
