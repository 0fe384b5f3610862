package domain

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var ErrRoleNotFound = errors.New("role not found")

type RoleName string

const (
	RoleAdministrator RoleName = "ADMINISTRATOR"
	RoleApplication   RoleName = "APPLICATION"
	RoleUser          RoleName = "USER"
)

// BootstrapRoles are created on startup; every runtime lookup may assume them.
var BootstrapRoles = []RoleName{RoleAdministrator, RoleApplication, RoleUser}

// AllProjectsID replaces the project id in access tokens issued to superusers.
const AllProjectsID int64 = -1

func ParseRoleName(s string) (RoleName, error) {
	name := RoleName(strings.ToUpper(strings.TrimSpace(s)))
	if !slices.Contains(BootstrapRoles, name) {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return name, nil
}

func (r *RoleName) UnmarshalText(text []byte) error {
	name, err := ParseRoleName(string(text))
	if err != nil {
		return err
	}
	*r = name
	return nil
}

func (r RoleName) String() string {
	return string(r)
}

type Role struct {
	ID          int64
	Name        RoleName
	Description string
}

// RoleSet is a user's resolved roles. SuperUser is computed once at
// resolution time and travels with the names.
type RoleSet struct {
	Names     []RoleName
	SuperUser bool
}

func (s RoleSet) Strings() []string {
	out := make([]string, len(s.Names))
	for i, n := range s.Names {
		out[i] = string(n)
	}
	return out
}
