package authz

import (
	"errors"
	"testing"

	"github.com/finity-auth/apiserver/types"
)

func TestRequireRoleMatrix(t *testing.T) {
	for _, have := range types.Roles {
		for _, want := range types.Roles {
			user := types.User{ID: 1, Email: "a@x.com", Role: have}

			got, err := RequireRole(user, want)

			if have == want {
				if err != nil {
					t.Errorf("RequireRole(%s, %s): unexpected error %v", have, want, err)
					continue
				}
				if got != user {
					t.Errorf("RequireRole(%s, %s): user was not passed through unchanged", have, want)
				}
				continue
			}

			var denied *AccessDeniedError
			if !errors.As(err, &denied) {
				t.Errorf("RequireRole(%s, %s): want AccessDeniedError, got %v", have, want, err)
				continue
			}
			if denied.Required != want {
				t.Errorf("RequireRole(%s, %s): error carries role %s, want %s", have, want, denied.Required, want)
			}
		}
	}
}

func TestRequireAdminMatchesRequireRole(t *testing.T) {
	for _, role := range types.Roles {
		user := types.User{ID: 2, Role: role}

		adminUser, adminErr := RequireAdmin(user)
		roleUser, roleErr := RequireRole(user, types.RoleAdmin)

		if (adminErr == nil) != (roleErr == nil) {
			t.Fatalf("role %s: RequireAdmin err=%v, RequireRole(admin) err=%v", role, adminErr, roleErr)
		}
		if adminErr != nil {
			var a, b *AccessDeniedError
			if !errors.As(adminErr, &a) || !errors.As(roleErr, &b) || a.Required != b.Required {
				t.Fatalf("role %s: denial details diverge: %v vs %v", role, adminErr, roleErr)
			}
			continue
		}
		if adminUser != roleUser {
			t.Fatalf("role %s: pass-through users diverge", role)
		}
	}
}

func TestAccessDeniedErrorMessageNamesRole(t *testing.T) {
	_, err := RequireRole(types.User{Role: types.RoleUser}, types.RoleAdmin)
	if err == nil {
		t.Fatal("expected denial")
	}
	if got, want := err.Error(), "access denied: admin role required"; got != want {
		t.Fatalf("error message %q, want %q", got, want)
	}
}
