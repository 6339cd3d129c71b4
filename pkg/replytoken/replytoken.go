// Package replytoken signs the reply-to address carried by outbound prompts
// so an inbound reply can be routed back to its user and prompt.
package replytoken

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid reply token")

type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	PromptID string `json:"prompt_id"`
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the signer that reads time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Signer) Sign(userID, promptID string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   userID,
		PromptID: promptID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify returns the user and prompt a token was issued for. Any failure,
// expiry included, yields ErrInvalidToken.
func (s *Signer) Verify(tokenString string) (userID, promptID string, err error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" || claims.PromptID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.UserID, claims.PromptID, nil
}

// Address builds reply+<token>@domain.
func Address(token, domain string) string {
	return "reply+" + token + "@" + domain
}

var addressPattern = regexp.MustCompile(`(?i)^reply\+([^@]+)@`)

// TokenFromAddress extracts the token from a reply+<token>@ address.
func TokenFromAddress(address string) (string, bool) {
	m := addressPattern.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return m[1], true
}
