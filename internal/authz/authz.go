// Package authz holds the role checks applied to an already-resolved user.
// Checks are pure: they never touch storage and never mutate the user.
package authz

import (
	"fmt"

	"github.com/finity-auth/apiserver/types"
)

// AccessDeniedError reports that the user's role did not meet the
// requirement. It carries the required role so callers can log or surface it.
type AccessDeniedError struct {
	Required types.Role
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s role required", e.Required)
}

// RequireRole returns the user unchanged when their role matches required,
// and an *AccessDeniedError otherwise. The role is a parameter so every
// gated role shares this one check.
func RequireRole(user types.User, required types.Role) (types.User, error) {
	if user.Role != required {
		return types.User{}, &AccessDeniedError{Required: required}
	}
	return user, nil
}

// RequireAdmin gates on the admin role. It is a composition over RequireRole
// so the two can never drift apart.
func RequireAdmin(user types.User) (types.User, error) {
	return RequireRole(user, types.RoleAdmin)
}
