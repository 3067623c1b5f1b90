package authz

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func newTrustedExtractor(t *testing.T) Extractor {
	t.Helper()
	extract, err := NewJWTExtractor(JWTExtractorConfig{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("build extractor: %v", err)
	}
	return extract
}

// signToken builds an HS256 token; in trusted-proxy mode the signature is
// never checked, only the claims are read.
func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestJWTExtractorTrustedMode(t *testing.T) {
	extract := newTrustedExtractor(t)

	tests := []struct {
		name      string
		claims    jwt.MapClaims
		wantUser  string
		wantRoles RoleSet
	}{
		{
			name:      "roles as list",
			claims:    jwt.MapClaims{"sub": "alice", "roles": []string{"AI_OWNER", "AUDITOR"}},
			wantUser:  "alice",
			wantRoles: RoleSet{RoleAIOwner, RoleAuditor},
		},
		{
			name:      "roles as comma separated string",
			claims:    jwt.MapClaims{"sub": "carol", "roles": "compliance, admin"},
			wantUser:  "carol",
			wantRoles: RoleSet{RoleCompliance, RoleAdmin},
		},
		{
			name:      "unknown roles dropped",
			claims:    jwt.MapClaims{"sub": "bob", "roles": []string{"wizard", "AI_OWNER"}},
			wantUser:  "bob",
			wantRoles: RoleSet{RoleAIOwner},
		},
		{
			name:     "missing subject is anonymous",
			claims:   jwt.MapClaims{"roles": []string{"ADMIN"}},
			wantUser: "anonymous",
			// Roles still honored; the proxy vouched for the token.
			wantRoles: RoleSet{RoleAdmin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+signToken(t, tt.claims))

			id := extract(r)
			if id.User != tt.wantUser {
				t.Errorf("user = %q, want %q", id.User, tt.wantUser)
			}
			if !reflect.DeepEqual(id.Roles, tt.wantRoles) {
				t.Errorf("roles = %v, want %v", id.Roles, tt.wantRoles)
			}
		})
	}
}

func TestJWTExtractorRejectsGarbage(t *testing.T) {
	extract := newTrustedExtractor(t)

	for _, header := range []string{"", "Bearer", "Basic dXNlcg==", "Bearer not.a.token"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		id := extract(r)
		if id.User != "anonymous" || len(id.Roles) != 0 {
			t.Errorf("header %q resolved to %+v, want anonymous", header, id)
		}
	}
}

func TestJWTExtractorCustomClaims(t *testing.T) {
	extract, err := NewJWTExtractor(JWTExtractorConfig{
		UserClaim:  "preferred_username",
		RolesClaim: "groups",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("build extractor: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, jwt.MapClaims{
		"preferred_username": "dora",
		"groups":             []string{"COMPLIANCE"},
	}))

	id := extract(r)
	if id.User != "dora" {
		t.Errorf("user = %q", id.User)
	}
	if !id.Roles.Has(RoleCompliance) {
		t.Errorf("roles = %v", id.Roles)
	}
}

func TestJWTExtractorMissingKeyFile(t *testing.T) {
	_, err := NewJWTExtractor(JWTExtractorConfig{
		PublicKeyPath: "/nonexistent/key.pem",
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err == nil {
		t.Fatal("expected error for missing key file")
	}
}
