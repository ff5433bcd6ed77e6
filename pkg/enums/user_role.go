package enums

import (
	"fmt"
	"strings"
)

// UserRole separates storefront customers from distributor staff.
type UserRole string

const (
	UserRoleClient      UserRole = "client"
	UserRoleDistributor UserRole = "distributor"
)

var validUserRoles = []UserRole{
	UserRoleClient,
	UserRoleDistributor,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole. Empty input defaults to client.
func ParseUserRole(value string) (UserRole, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return UserRoleClient, nil
	}
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
