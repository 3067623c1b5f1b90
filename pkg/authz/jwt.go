package authz

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTExtractorConfig configures the JWT-based identity extractor.
type JWTExtractorConfig struct {
	// UserClaim is the claim holding the actor's username. Default: "sub".
	UserClaim string

	// RolesClaim is the claim holding the actor's roles, either a JSON list
	// of strings or a comma-separated string. Default: "roles".
	RolesClaim string

	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified (suitable
	// only behind a trusted proxy).
	PublicKeyPath string

	// Logger for diagnostics. If nil, uses slog.Default().
	Logger *slog.Logger
}

// NewJWTExtractor creates an Extractor that reads identity from a Bearer
// token in the Authorization header.
//
// Security model:
//   - If PublicKeyPath is set, tokens are cryptographically verified (RS256)
//   - If PublicKeyPath is empty, tokens are parsed without verification
//   - Missing or invalid tokens resolve to an anonymous identity with no
//     roles, so every role-gated operation denies by default.
func NewJWTExtractor(cfg JWTExtractorConfig) (Extractor, error) {
	if cfg.UserClaim == "" {
		cfg.UserClaim = "sub"
	}
	if cfg.RolesClaim == "" {
		cfg.RolesClaim = "roles"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read JWT public key from %s: %w", cfg.PublicKeyPath, err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("decode PEM block from %s", cfg.PublicKeyPath)
		}
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
		}
		publicKey = rsaKey
		cfg.Logger.Info("JWT extractor: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Warn("JWT extractor: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	anonymous := Identity{User: "anonymous"}

	return func(r *http.Request) Identity {
		token := bearerToken(r)
		if token == "" {
			return anonymous
		}

		claims, err := parseClaims(token, publicKey)
		if err != nil {
			cfg.Logger.Debug("JWT extractor: token rejected", "err", err)
			return anonymous
		}

		user, _ := claims[cfg.UserClaim].(string)
		if user == "" {
			user = "anonymous"
		}

		return Identity{User: user, Roles: rolesFromClaim(claims[cfg.RolesClaim])}
	}, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseClaims(token string, publicKey *rsa.PublicKey) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}

	if publicKey == nil {
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		return claims, nil
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("token invalid")
	}
	return claims, nil
}

// rolesFromClaim accepts either a list of strings or a comma-separated string.
func rolesFromClaim(value any) RoleSet {
	var roles RoleSet
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				if role := ParseRole(strings.ToUpper(strings.TrimSpace(s))); role != "" {
					roles = append(roles, role)
				}
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if role := ParseRole(strings.ToUpper(strings.TrimSpace(s))); role != "" {
				roles = append(roles, role)
			}
		}
	}
	return roles
}
