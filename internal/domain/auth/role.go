package auth

import "strings"

type Role string

const (
	RoleStudent    Role = "student"
	RoleUniversity Role = "university"
	RoleAdmin      Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleStudent, RoleUniversity, RoleAdmin:
		return r, true
	}
	return "", false
}

// Institutional roles may read campus statistics and reports.
func (r Role) Institutional() bool { return r == RoleUniversity || r == RoleAdmin }

func (r Role) String() string { return string(r) }
