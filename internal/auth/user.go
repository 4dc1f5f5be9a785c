package auth

import "slices"

// RoleAdmin may manage rules and parts.
const RoleAdmin = "admin"

// User is the authenticated caller, set on the request by Guard.Authenticate.
type User struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

func userFromClaims(claims *Claims) *User {
	return &User{ID: claims.Subject, Roles: claims.Roles}
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}
