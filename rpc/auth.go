package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// JWTConfig enables bearer authentication of write methods. Tokens must be
// HMAC signed with the secret read from HSSecretEnv.
type JWTConfig struct {
	Enable      bool
	HSSecretEnv string
	Issuer      string
	ClockSkew   time.Duration
}

type authenticator struct {
	enabled bool
	secret  []byte
	issuer  string
	skew    time.Duration
}

func newAuthenticator(cfg JWTConfig) (*authenticator, error) {
	if !cfg.Enable {
		return &authenticator{}, nil
	}
	env := strings.TrimSpace(cfg.HSSecretEnv)
	if env == "" {
		return nil, errors.New("rpc: jwt enabled without a secret env variable")
	}
	secret := strings.TrimSpace(os.Getenv(env))
	if secret == "" {
		return nil, fmt.Errorf("rpc: jwt secret env %s is empty", env)
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 2 * time.Minute
	}
	return &authenticator{enabled: true, secret: []byte(secret), issuer: cfg.Issuer, skew: skew}, nil
}

func (a *authenticator) authorize(r *http.Request) *RPCError {
	if a == nil || !a.enabled {
		return nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing Authorization header", nil)
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return newError(http.StatusUnauthorized, codeUnauthorized, "Authorization header must use Bearer scheme", nil)
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return newError(http.StatusUnauthorized, codeUnauthorized, "missing bearer token", nil)
	}
	opts := []jwt.ParserOption{jwt.WithLeeway(a.skew), jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return newError(http.StatusUnauthorized, codeUnauthorized, "invalid RPC credentials", nil)
	}
	return nil
}
