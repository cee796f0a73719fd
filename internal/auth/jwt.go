// Package auth holds the session primitives of the task manager: signed
// session tokens, password hashing, the GitHub sign-in provider and the HTTP
// middleware that turns a session cookie into a principal.
//
// SESSION FLOW:
//  1. POST /login (or the GitHub callback) verifies the user's credential
//  2. The server signs a session token for the user id and stores it in the
//     HttpOnly "session" cookie
//  3. On every request LoadSession reads the cookie, validates the token,
//     loads the user and puts it in the request context
//  4. RequireAuth sends anonymous requests for protected pages to /login
//  5. GET /logout expires the cookie
//
// WHY A SIGNED TOKEN?
// The session is stateless: the token carries the user id and its expiry,
// and the HMAC signature stops anyone from forging or editing it. No session
// table is needed, and the server can verify a token with only the secret.
//
// TOKEN LAYOUT (three base64url parts):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header:  {"alg":"HS256","typ":"JWT"}
//	- Payload: {"iss":"task-manager","sub":"42","jti":"cv37rs3pp9olc6atsptg","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secret)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const issuer = "task-manager"

// DefaultSessionTTL is used when NewTokenService is given a zero TTL.
const DefaultSessionTTL = 24 * time.Hour

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 16

// TokenService signs and verifies session tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService. ttl is how long a session lasts
// after login; zero means DefaultSessionTTL.
// Generate a secret with: SESSION_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	if ttl < 0 {
		return nil, errors.New("auth: session ttl must not be negative")
	}
	if ttl == 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the lifetime of tokens issued by Generate. The session cookie uses
// the same value for MaxAge.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate signs a session token for userID that expires after TTL().
//
// Each token gets a fresh xid as its "jti", so two logins by the same user
// within the same second still produce different tokens.
func (s *TokenService) Generate(userID int64) (string, error) {
	return s.generate(userID, s.ttl)
}

func (s *TokenService) generate(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies a session token and returns the user id it was issued for.
//
// The jwt library checks the signature, the expiry and the issuer. Only
// HS256 is accepted, which rules out "alg: none" and key-confusion tricks.
func (s *TokenService) Validate(tokenStr string) (int64, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errors.New("auth: token expired")
		}
		return 0, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return 0, errors.New("auth: invalid token claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("auth: token has invalid subject %q", c.Subject)
	}
	return userID, nil
}
