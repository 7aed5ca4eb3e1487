package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xraph/talentwire/id"
	"github.com/xraph/talentwire/stream"
	"github.com/xraph/talentwire/user"
)

// ErrUnauthorized is returned when a token is missing, malformed, or
// rejected by every configured authenticator.
var ErrUnauthorized = errors.New("gateway: unauthorized")

// Authenticator validates a client token and resolves the identity
// behind it. Channel membership is derived from the identity, never
// from the token's own claims about channels.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (stream.Identity, error)
}

// CanSubscribe reports whether the identity may join the given channel
// beyond its registration set. Everyone may opt in to the broadcast
// channel and rejoin their own identity channel; nobody may join
// another subject's channel.
func CanSubscribe(identity stream.Identity, channel string) bool {
	if channel == stream.ChannelBroadcast {
		return true
	}
	return channel == stream.ChannelFor(identity.Subject, identity.Role)
}

// ── JWT ─────────────────────────────────────────────

// Claims is the JWT payload. Subject carries the user ID.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuthenticator validates HMAC-signed tokens.
type JWTAuthenticator struct {
	secret []byte
	expiry time.Duration
}

// NewJWTAuthenticator creates a JWT authenticator with the given
// signing secret. expiry bounds tokens issued by Generate.
func NewJWTAuthenticator(secret []byte, expiry time.Duration) *JWTAuthenticator {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &JWTAuthenticator{secret: secret, expiry: expiry}
}

// Generate issues a signed token for the given user.
func (a *JWTAuthenticator) Generate(userID id.UserID, role user.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("gateway: sign token: %w", err)
	}
	return signed, nil
}

// Authenticate validates the token signature and expiry and resolves
// the identity it names.
func (a *JWTAuthenticator) Authenticate(_ context.Context, token string) (stream.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return stream.Identity{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return stream.Identity{}, ErrUnauthorized
	}
	subject, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return stream.Identity{}, ErrUnauthorized
	}
	role := user.Role(claims.Role)
	if !role.Valid() {
		return stream.Identity{}, ErrUnauthorized
	}
	return stream.Identity{Subject: subject, Role: role}, nil
}

// ── Static tokens ───────────────────────────────────

// StaticTokenAuthenticator resolves fixed tokens to identities. Used
// for service accounts and tests.
type StaticTokenAuthenticator struct {
	tokens map[string]stream.Identity
}

// NewStaticTokenAuthenticator creates an authenticator over a fixed
// token table.
func NewStaticTokenAuthenticator(tokens map[string]stream.Identity) *StaticTokenAuthenticator {
	return &StaticTokenAuthenticator{tokens: tokens}
}

func (a *StaticTokenAuthenticator) Authenticate(_ context.Context, token string) (stream.Identity, error) {
	identity, ok := a.tokens[token]
	if !ok {
		return stream.Identity{}, ErrUnauthorized
	}
	return identity, nil
}

// ── Composite ───────────────────────────────────────

// CompositeAuthenticator tries each authenticator in order and accepts
// the first that succeeds.
type CompositeAuthenticator struct {
	authenticators []Authenticator
}

func NewCompositeAuthenticator(authenticators ...Authenticator) *CompositeAuthenticator {
	return &CompositeAuthenticator{authenticators: authenticators}
}

func (a *CompositeAuthenticator) Authenticate(ctx context.Context, token string) (stream.Identity, error) {
	for _, auth := range a.authenticators {
		identity, err := auth.Authenticate(ctx, token)
		if err == nil {
			return identity, nil
		}
	}
	return stream.Identity{}, ErrUnauthorized
}
