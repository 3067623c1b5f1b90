package authz

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestHeaderExtractor(t *testing.T) {
	tests := []struct {
		name      string
		user      string
		roleValue string
		wantUser  string
		wantRoles RoleSet
	}{
		{
			name:      "user with single role",
			user:      "alice",
			roleValue: "AI_OWNER",
			wantUser:  "alice",
			wantRoles: RoleSet{RoleAIOwner},
		},
		{
			name:      "comma separated roles, mixed case and spacing",
			user:      "carol",
			roleValue: " compliance , AUDITOR ",
			wantUser:  "carol",
			wantRoles: RoleSet{RoleCompliance, RoleAuditor},
		},
		{
			name:      "unknown roles dropped",
			user:      "bob",
			roleValue: "AI_OWNER,superuser,root",
			wantUser:  "bob",
			wantRoles: RoleSet{RoleAIOwner},
		},
		{
			name:     "missing user is anonymous without roles",
			wantUser: "anonymous",
		},
		{
			name:      "roles without user stay with anonymous",
			roleValue: "ADMIN",
			wantUser:  "anonymous",
			wantRoles: RoleSet{RoleAdmin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != "" {
				r.Header.Set("X-Remote-User", tt.user)
			}
			if tt.roleValue != "" {
				r.Header.Set("X-Remote-Group", tt.roleValue)
			}

			id := HeaderExtractor(r)
			if id.User != tt.wantUser {
				t.Errorf("user = %q, want %q", id.User, tt.wantUser)
			}
			if !reflect.DeepEqual(id.Roles, tt.wantRoles) {
				t.Errorf("roles = %v, want %v", id.Roles, tt.wantRoles)
			}
		})
	}
}

func TestMiddlewareStoresIdentity(t *testing.T) {
	var got Identity
	var ok bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = IdentityFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Remote-User", "alice")
	r.Header.Set("X-Remote-Group", "ADMIN")
	Middleware(nil)(handler).ServeHTTP(httptest.NewRecorder(), r)

	if !ok {
		t.Fatal("identity missing from context")
	}
	if got.User != "alice" || !got.Roles.Has(RoleAdmin) {
		t.Errorf("identity = %+v", got)
	}
}

func TestIdentityFromContextMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := IdentityFromContext(r.Context()); ok {
		t.Error("expected no identity on a bare context")
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"ADMIN", "AI_OWNER", "COMPLIANCE", "AUDITOR"} {
		if got := ParseRole(valid); got != Role(valid) {
			t.Errorf("ParseRole(%q) = %q", valid, got)
		}
	}
	for _, invalid := range []string{"", "admin", "OWNER", "ROOT"} {
		if got := ParseRole(invalid); got != "" {
			t.Errorf("ParseRole(%q) = %q, want empty", invalid, got)
		}
	}
}

func TestRoleSet(t *testing.T) {
	rs := RoleSet{RoleAIOwner, RoleAuditor}

	if !rs.Has(RoleAIOwner) || rs.Has(RoleAdmin) {
		t.Error("Has misbehaves")
	}
	if !rs.HasAny(RoleAdmin, RoleAuditor) {
		t.Error("HasAny should match AUDITOR")
	}
	if rs.HasAny(RoleAdmin, RoleCompliance) {
		t.Error("HasAny matched roles not in the set")
	}
	if got := rs.Strings(); !reflect.DeepEqual(got, []string{"AI_OWNER", "AUDITOR"}) {
		t.Errorf("Strings() = %v", got)
	}
}
