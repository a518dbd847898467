package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"studentdesk/internal/model"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims represents the JWT payload. Subject is the user id; ActorID is the
// student or trainer id behind it, empty for admins.
type Claims struct {
	Role    model.Role `json:"role"`
	ActorID string     `json:"actor_id,omitempty"`
	Kind    string     `json:"kind"`
	jwt.RegisteredClaims
}

// Keys configures signing and token lifetimes.
type Keys struct {
	SigningKey string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issue signs an access and a refresh token for the actor.
func Issue(a Actor, k Keys, now time.Time) (TokenPair, error) {
	accessExp := now.Add(k.AccessTTL)
	refreshExp := now.Add(k.RefreshTTL)

	access, err := sign(a, kindAccess, accessExp, k, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := sign(a, kindRefresh, refreshExp, k, now)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, AccessExp: accessExp, RefreshExp: refreshExp}, nil
}

func sign(a Actor, kind string, exp time.Time, k Keys, now time.Time) (string, error) {
	claims := Claims{
		Role:    a.Role,
		ActorID: a.ActorID,
		Kind:    kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    k.Issuer,
			Subject:   a.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(k.SigningKey))
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if !claims.Role.Valid() || claims.Subject == "" {
		return Claims{}, errors.New("invalid token subject")
	}
	return *claims, nil
}

func (c Claims) actor() Actor {
	return Actor{UserID: c.Subject, Role: c.Role, ActorID: c.ActorID}
}
