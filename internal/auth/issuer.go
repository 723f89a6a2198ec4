package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs and verifies session and custom tokens with one HMAC secret.
// Audience is the project id of the service config, issuer its auth domain.
type Issuer struct {
	secret   []byte
	ttl      time.Duration
	audience string
	issuer   string
	now      func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, audience, issuer string) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		ttl:      ttl,
		audience: audience,
		issuer:   issuer,
		now:      time.Now,
	}
}

var errNoSecret = errors.New("signing secret is not configured")

// Issue signs a session token for uid.
func (i *Issuer) Issue(uid string, anonymous bool) (string, error) {
	if len(i.secret) == 0 {
		return "", errNoSecret
	}

	now := i.now()
	claims := jwt.MapClaims{
		"uid":       uid,
		"sub":       uid,
		"anonymous": anonymous,
		"iat":       now.Unix(),
		"exp":       now.Add(i.ttl).Unix(),
	}
	if i.audience != "" {
		claims["aud"] = i.audience
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies a session or custom token and returns its principal. Custom
// tokens minted by other services only need a "uid" claim; audience is
// checked when present.
func (i *Issuer) Parse(tokenStr string) (*Principal, error) {
	if len(i.secret) == 0 {
		return nil, errNoSecret
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	uid, _ := claims["uid"].(string)
	if uid == "" {
		return nil, errors.New("token missing uid")
	}

	if i.audience != "" {
		if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 && !containsString(aud, i.audience) {
			return nil, fmt.Errorf("token audience %v does not match project %q", aud, i.audience)
		}
	}

	anonymous, _ := claims["anonymous"].(bool)
	return &Principal{ID: uid, Anonymous: anonymous, Token: tokenStr}, nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
