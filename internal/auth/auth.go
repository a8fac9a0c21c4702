// Package auth verifies the short-lived session tokens minted by the
// lobby service. This process never issues player tokens itself; Sign
// exists for local tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"railquiz/internal/game"
)

var (
	// ErrTokenInvalid covers malformed, unsigned, or wrong-key tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is reported separately so the gateway can close
	// with a distinct code and the client knows to re-join.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the token body binding a connection to a session and role.
type Claims struct {
	SessionID string    `json:"sessionId"`
	Role      game.Role `json:"role"`
	PlayerID  string    `json:"playerId,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified result handed to the gateway.
type Identity struct {
	SessionID string
	Role      game.Role
	PlayerID  string
}

// Verifier checks HS256 session tokens against a shared secret.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates a token string.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid || claims.SessionID == "" {
		return nil, ErrTokenInvalid
	}
	if _, err := game.ParseRole(string(claims.Role)); err != nil {
		return nil, ErrTokenInvalid
	}
	return &Identity{
		SessionID: claims.SessionID,
		Role:      claims.Role,
		PlayerID:  claims.PlayerID,
	}, nil
}

// Sign mints a token for the given identity.
func Sign(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		SessionID: id.SessionID,
		Role:      id.Role,
		PlayerID:  id.PlayerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
