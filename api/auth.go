/*
auth.go - Bearer token authentication

PURPOSE:
  The engine does not authenticate anyone itself. It trusts an identity
  provider that issues HS256 tokens carrying the user id, the role and,
  for employees, their employee id. This file turns such a token into the
  hr.Actor every engine operation takes.

TOKEN CLAIMS:
  sub   user id
  role  admin | hr | employee
  eid   employee id (optional)

FAILURES:
  Missing or malformed header, bad signature, expired token  -> 401
  Role not allowed by RequireRole                            -> 403

SEE ALSO:
  - server.go: where the middleware is mounted
  - hr/types.go: Actor and its permission checks
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/workforce-engine/hr"
)

// Claims is the JWT payload issued by the identity provider.
type Claims struct {
	Role       hr.Role `json:"role"`
	EmployeeID string  `json:"eid,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for actor. The server never calls it; the CLI
// and tests use it to mint tokens.
func IssueToken(secret []byte, actor hr.Actor, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("jwt secret is empty")
	}
	claims := Claims{
		Role:       actor.Role,
		EmployeeID: actor.EmployeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies the signature and expiry and returns the actor.
func ParseToken(secret []byte, raw string) (hr.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return hr.Actor{}, err
	}
	if !token.Valid {
		return hr.Actor{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return hr.Actor{}, errors.New("token has no subject")
	}
	if !claims.Role.Valid() {
		return hr.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return hr.Actor{UserID: claims.Subject, Role: claims.Role, EmployeeID: claims.EmployeeID}, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor hr.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(ctx context.Context) (hr.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(hr.Actor)
	return actor, ok
}

// Authenticate rejects requests without a valid bearer token.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, raw, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, "Missing bearer token", nil)
				return
			}
			actor, err := ParseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Invalid token", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole lets only the listed roles through.
func RequireRole(roles ...hr.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Not authenticated", nil)
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeDomainError(w, &hr.PermissionDeniedError{Role: actor.Role, Action: r.Method + " " + r.URL.Path})
		})
	}
}
