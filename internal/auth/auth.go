// Package auth issues and checks the HS256 bearer tokens of back-office
// staff.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super-admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not configured")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for subject with role.
func (m *Manager) Issue(subject, role string) (string, time.Time, error) {
	const op = "auth.Manager.Issue"

	if len(m.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("%s:%w", op, ErrNoSecret)
	}

	now := m.now().UTC()
	exp := now.Add(m.ttl)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s:%w", op, err)
	}

	return signed, exp, nil
}

// Parse validates raw and returns its claims. Only HS256 is accepted.
func (m *Manager) Parse(raw string) (*Claims, error) {
	const op = "auth.Manager.Parse"

	if len(m.secret) == 0 {
		return nil, fmt.Errorf("%s:%w", op, ErrNoSecret)
	}

	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	return &claims, nil
}

// HasRole reports whether role is one of allowed. A super-admin passes
// every admin check.
func HasRole(role string, allowed ...string) bool {
	for _, a := range allowed {
		if role == a || (role == RoleSuperAdmin && a == RoleAdmin) {
			return true
		}
	}
	return false
}
