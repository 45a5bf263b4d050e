package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"quizdesk/internal/domain"
)

// ErrInvalidToken covers every token that fails parsing or verification.
var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
	Name   string      `json:"name,omitempty"`
	Email  string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for id.
func (i *Issuer) Issue(id domain.Identity) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID: id.ID,
		Role:   id.Role,
		Name:   id.Name,
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse verifies raw and returns the identity it carries.
func (i *Issuer) Parse(raw string) (domain.Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return domain.Identity{}, ErrInvalidToken
	}
	if claims.UserID == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{
		ID:    claims.UserID,
		Role:  claims.Role,
		Name:  claims.Name,
		Email: claims.Email,
	}, nil
}
