package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"example/formula-api/app/config"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const leeway = 30 * time.Second

// Verifier checks RS-signed access tokens against the provider's JWKS.
// The parser enforces the registered claims.
type Verifier struct {
	issuer   string
	audience string
	keyfunc  keyfunc.Keyfunc
	parser   *jwt.Parser
}

// NewVerifierFromConfig returns (nil, nil) when auth is disabled for local
// development.
func NewVerifierFromConfig(cfg *config.Config) (*Verifier, error) {
	if Disabled(cfg) {
		return nil, nil
	}
	return NewVerifier(cfg.Auth)
}

func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	issuer := issuerURL(cfg.Issuer)
	if issuer == "" || cfg.Audience == "" {
		return nil, errors.New("AUTH_ISSUER and AUTH_AUDIENCE must be set")
	}

	keys, err := keyfunc.NewDefault([]string{jwksURL(issuer, cfg.JWKSURL)})
	if err != nil {
		return nil, fmt.Errorf("init JWKS keyfunc: %w", err)
	}

	return &Verifier{
		issuer:   issuer,
		audience: cfg.Audience,
		keyfunc:  keys,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(leeway),
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		),
	}, nil
}

// Verify returns the caller's claims; a token without sub is rejected.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.Parse(tokenString, v.keyfunc.Keyfunc)
	if err != nil {
		return nil, err
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, errors.New("token missing sub")
	}
	email, _ := mc["email"].(string)
	scope, _ := mc["scope"].(string)
	return &Claims{Subject: sub, Email: strings.TrimSpace(email), Scope: scope}, nil
}

// issuerURL trims the issuer and gives it the trailing slash the provider
// puts in iss.
func issuerURL(issuer string) string {
	issuer = strings.TrimSpace(issuer)
	if issuer == "" || strings.HasSuffix(issuer, "/") {
		return issuer
	}
	return issuer + "/"
}

func jwksURL(issuer, override string) string {
	if override != "" {
		return override
	}
	return issuer + ".well-known/jwks.json"
}

// Disabled reports whether auth should be skipped. AUTH_DISABLED is only
// honored in the local environment.
func Disabled(cfg *config.Config) bool {
	if cfg == nil || !cfg.Auth.Disabled {
		return false
	}
	if !strings.EqualFold(cfg.Env, "local") {
		log.Warn().Str("env", cfg.Env).Msg("AUTH_DISABLED ignored outside local environment")
		return false
	}
	log.Warn().Msg("auth disabled via AUTH_DISABLED for local development")
	return true
}
