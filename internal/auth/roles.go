package auth

import "fmt"

// Role is a staff member's role. Roles are ordered; see AtLeast.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
	RoleWaiter  Role = "Waiter"
	RoleChef    Role = "Chef"
)

var roleRank = map[Role]int{
	RoleChef:    1,
	RoleWaiter:  2,
	RoleManager: 3,
	RoleAdmin:   4,
}

// ParseRole converts a stored role name into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown staff role %q", s)
	}
	return r, nil
}

// AtLeast reports whether r grants at least the privileges of min. Unknown
// roles never satisfy any minimum.
func (r Role) AtLeast(min Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	want, ok := roleRank[min]
	if !ok {
		return false
	}
	return have >= want
}

// Identity is the authenticated staff member attached to a request or a
// connection. It is immutable once attached.
type Identity struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}
