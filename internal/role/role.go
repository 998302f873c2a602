package role

import (
	"fmt"
	"strings"
)

// Role is the single, total role a principal holds.
type Role string

const (
	Reader     Role = "reader"
	Journalist Role = "journalist"
	Editor     Role = "editor"
)

// All lists the roles in display order.
var All = []Role{Reader, Journalist, Editor}

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case Reader, Journalist, Editor:
		return true
	default:
		return false
	}
}

// Parse accepts a role name in any case.
func Parse(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (want reader, journalist or editor)", s)
	}
	return r, nil
}

// Can reports whether the role carries the capability for action.
func (r Role) Can(a Action) bool {
	return Capabilities(r).Has(a)
}
