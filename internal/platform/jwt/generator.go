// Package jwtmw provides HS256 bearer-token issuance and the gin middleware that verifies it.
package jwtmw

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// EnvKeyJWTSecret is the configuration key holding the HMAC secret.
const EnvKeyJWTSecret = "JWT_SECRET"

// issuer is written to and required from every token.
const issuer = "crypto_backend"

// Config holds JWT settings.
type Config struct {
	Secret string        // HMAC secret; empty disables the guard
	TTL    time.Duration // lifetime of issued tokens
}

// LoadConfig loads JWT configuration from v.
func LoadConfig(v *viper.Viper) Config {
	cfg := Config{
		Secret: v.GetString(EnvKeyJWTSecret),
		TTL:    v.GetDuration("JWT_TTL"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return cfg
}

// Enabled reports whether mutating routes should be guarded.
func (c Config) Enabled() bool {
	return c.Secret != ""
}

// Generator issues signed tokens for API operators.
type Generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a new JWT generator with the provided secret and expiration duration.
func NewGenerator(secret string, expiration time.Duration) *Generator {
	return &Generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// GenerateToken creates a signed HS256 token for subject.
func (g *Generator) GenerateToken(subject string) (string, error) {
	if len(g.secret) == 0 {
		return "", fmt.Errorf("failed to sign token: %s is empty", EnvKeyJWTSecret)
	}
	now := g.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.expiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
