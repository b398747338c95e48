// Package identity resolves the caller of a request from its bearer token.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Eursukkul/booking-microservice/ticketing-service/pkg/apperror"
)

type Role string

const (
	RoleAttendee  Role = "attendee"
	RoleStaff     Role = "staff"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAttendee, RoleStaff, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

var ErrUnauthenticated = apperror.Unauthenticated("authentication required")

type Provider interface {
	Authenticate(ctx context.Context, bearer string) (Principal, error)
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type jwtProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) Provider {
	return &jwtProvider{secret: []byte(secret)}
}

func (p *jwtProvider) Authenticate(_ context.Context, bearer string) (Principal, error) {
	token := strings.TrimSpace(bearer)
	if token == "" {
		return Principal{}, ErrUnauthenticated
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrUnauthenticated
	}

	sub, err := c.GetSubject()
	if err != nil || sub == "" {
		return Principal{}, ErrUnauthenticated
	}
	role := Role(c.Role)
	if !role.Valid() {
		return Principal{}, ErrUnauthenticated
	}

	return Principal{UserID: sub, Role: role}, nil
}

// IssueToken signs an HS256 token for p. Used by tooling and tests.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	c := claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
