package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
)

// Auth validates Supabase-issued JWTs. Projects on the legacy shared-secret
// setup sign with HS256; newer projects expose a JWKS endpoint and sign with
// RS256/ES256. Both paths are supported, keyed off which config is present.
type Auth struct {
	JWKS     *keyfunc.JWKS
	Audience string
	Issuer   string

	// HSSecret is the legacy Supabase JWT secret. When set, HS256 tokens are
	// accepted; integration tests use this path with a throwaway secret.
	HSSecret []byte
}

// New builds an Auth from the environment. SUPABASE_URL is required; one of
// SUPABASE_JWT_SECRET or a reachable JWKS endpoint must be available.
func New() (*Auth, error) {
	base := strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if base == "" {
		return nil, errors.New("SUPABASE_URL not set")
	}
	a := &Auth{
		Audience: "authenticated",
		Issuer:   base + "/auth/v1",
	}
	if secret := os.Getenv("SUPABASE_JWT_SECRET"); secret != "" {
		a.HSSecret = []byte(secret)
		return a, nil
	}

	jwksURL := os.Getenv("SUPABASE_JWKS_URL")
	if jwksURL == "" {
		jwksURL = base + "/auth/v1/.well-known/jwks.json"
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: %w", err)
	}
	a.JWKS = jwks
	return a, nil
}

// UserIDFromAuthHeader extracts the authenticated user id (token subject) from
// an Authorization header value.
func (a *Auth) UserIDFromAuthHeader(h string) (string, error) {
	if h == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("bad auth header")
	}

	tokenStr := parts[1]
	if strings.Count(tokenStr, ".") != 2 {
		return "", errors.New("bad auth header")
	}

	if a.HSSecret != nil {
		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return a.HSSecret, nil
		})
		if err != nil {
			return "", err
		}
		return a.verifyClaims(token)
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256", "ES256"}))
	token, err := parser.Parse(tokenStr, a.JWKS.Keyfunc)
	if err != nil {
		return "", err
	}
	return a.verifyClaims(token)
}

func (a *Auth) verifyClaims(token *jwt.Token) (string, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	now := time.Now().Unix()
	if !claims.VerifyExpiresAt(now, true) {
		return "", errors.New("token expired")
	}
	if !claims.VerifyNotBefore(now, false) {
		return "", errors.New("token not valid yet")
	}
	if !claims.VerifyAudience(a.Audience, true) {
		return "", errors.New("invalid audience")
	}
	if !claims.VerifyIssuer(a.Issuer, true) {
		return "", errors.New("invalid issuer")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}
