package domain

import (
	"fmt"
	"strings"
)

// Role is a user's privilege level within the application.
type Role string

const (
	RoleRoot   Role = "root"
	RoleAdmin  Role = "admin"
	RoleLeader Role = "leader"
	RoleMember Role = "member"
)

// roleRank orders roles by privilege: a lower rank is a higher privilege.
var roleRank = map[Role]int{
	RoleRoot:   0,
	RoleAdmin:  1,
	RoleLeader: 2,
	RoleMember: 3,
}

// Roles returns every known role ordered from most to least privileged.
func Roles() []Role {
	return []Role{RoleRoot, RoleAdmin, RoleLeader, RoleMember}
}

// ParseRole converts a string into a known Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank returns the position of r in the privilege order, or -1 if r is unknown.
func (r Role) Rank() int {
	rank, ok := roleRank[r]
	if !ok {
		return -1
	}
	return rank
}

// AtLeast reports whether r is as privileged as min or more.
// Unknown roles on either side never satisfy the comparison.
func (r Role) AtLeast(min Role) bool {
	have, want := r.Rank(), min.Rank()
	if have < 0 || want < 0 {
		return false
	}
	return have <= want
}

// Above reports whether r is strictly more privileged than other.
func (r Role) Above(other Role) bool {
	have, want := r.Rank(), other.Rank()
	if have < 0 || want < 0 {
		return false
	}
	return have < want
}

func (r Role) String() string { return string(r) }
