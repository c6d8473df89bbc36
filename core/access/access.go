// Package access maps shared access keys to portal roles.
//
// This is a convenience lock, not a security boundary: two shared literal keys, no per-user
// identity, no expiry and no revocation.
package access

import (
	"errors"

	"github.com/trezcool/classboard/core"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

var (
	ErrInvalidKey = errors.New("Invalid access key.")

	Roles = []Role{RoleStudent, RoleTeacher}

	dashboards = map[Role]string{
		RoleStudent: "/student",
		RoleTeacher: "/teacher",
	}
)

func (r Role) Valid() bool {
	_, ok := dashboards[r]
	return ok
}

// Dashboard returns the route a role lands on after passing the gate.
func (r Role) Dashboard() string {
	return dashboards[r]
}

// Grant is the result of a successful key check.
type Grant struct {
	Role     Role   `json:"role"`
	Redirect string `json:"redirect"`
}

type Gate struct {
	keys map[string]Role
}

func NewGate(conf core.AccessConfig) *Gate {
	g := &Gate{keys: make(map[string]Role, 2)}
	if conf.StudentKey != "" {
		g.keys[conf.StudentKey] = RoleStudent
	}
	if conf.TeacherKey != "" {
		g.keys[conf.TeacherKey] = RoleTeacher
	}
	return g
}

// Resolve maps key to its role. The key is trimmed before matching.
// When required is given, the key must map to exactly that role.
func (g *Gate) Resolve(key string, required ...Role) (Grant, error) {
	role, ok := g.keys[core.CleanString(key)]
	if !ok {
		return Grant{}, ErrInvalidKey
	}
	if len(required) > 0 && required[0] != "" && required[0] != role {
		return Grant{}, ErrInvalidKey
	}
	return Grant{Role: role, Redirect: role.Dashboard()}, nil
}
