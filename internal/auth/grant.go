package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Permission is one action an edit grant can allow.
type Permission string

const (
	PermSnapshotRead Permission = "snapshot:read"
	PermConfigWrite  Permission = "config:write"
)

var (
	ErrMissingGrant = errors.New("auth: missing grant")
	ErrInvalidGrant = errors.New("auth: invalid grant")
)

// Grant is a short-lived HS256 token issued by venue tooling for one location.
// Scope is a space separated permission list; config:write implies snapshot:read.
type Grant struct {
	Location string `json:"loc"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// Allows reports whether the grant carries perm.
func (g Grant) Allows(perm Permission) bool {
	for _, field := range strings.Fields(g.Scope) {
		granted := Permission(field)
		if granted == perm {
			return true
		}
		if granted == PermConfigWrite && perm == PermSnapshotRead {
			return true
		}
	}
	return false
}

// ParseGrant verifies the signature and expiry of a grant token as of now.
// Grants without an expiry are rejected.
func ParseGrant(token string, secret []byte, now time.Time) (Grant, error) {
	if token == "" {
		return Grant{}, ErrMissingGrant
	}
	if len(secret) == 0 {
		return Grant{}, errors.New("auth: empty secret")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	var grant Grant
	if _, err := parser.ParseWithClaims(token, &grant, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return Grant{}, errors.Join(ErrInvalidGrant, err)
	}
	if strings.TrimSpace(grant.Scope) == "" {
		return Grant{}, errors.Join(ErrInvalidGrant, errors.New("empty scope"))
	}
	return grant, nil
}
