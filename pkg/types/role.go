package types

import (
	"fmt"
	"strings"
)

// Role is the purpose of a file within an experiment. The integer values are
// persisted in file_map.role and file_roles.id and must never be reassigned.
type Role int

// Roles. RoleNone means "no role" and is never persisted.
const (
	RoleNone          Role = 0
	RoleInput         Role = 1
	RoleOutput        Role = 2
	RoleNote          Role = 3
	RoleProgram       Role = 4
	RoleAuxiliaryPath Role = 5
)

// roleInfo is one row of the role table.
type roleInfo struct {
	name     string
	alias    string
	mappable bool // may appear in file_map
}

// roleTable is the exhaustive mapping between roles, their names and the
// persisted integer. Row 5 is seeded in file_roles but rejected by the
// file_map check constraint, so it is not mappable and not parseable.
var roleTable = map[Role]roleInfo{
	RoleNone:          {name: "none"},
	RoleInput:         {name: "input", alias: "i", mappable: true},
	RoleOutput:        {name: "output", alias: "o", mappable: true},
	RoleNote:          {name: "note", alias: "n", mappable: true},
	RoleProgram:       {name: "program", alias: "p", mappable: true},
	RoleAuxiliaryPath: {name: "nixpath"},
}

// MappableRoles lists the roles a file mapping can carry, in persisted order.
var MappableRoles = []Role{RoleInput, RoleOutput, RoleNote, RoleProgram}

func (r Role) String() string {
	if info, ok := roleTable[r]; ok {
		return info.name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Mappable reports whether r may be stored on a file mapping.
func (r Role) Mappable() bool {
	return roleTable[r].mappable
}

// Persisted returns the integer stored for r in file_map.role.
func (r Role) Persisted() (int64, error) {
	if !r.Mappable() {
		return 0, InvalidArgument("role", fmt.Sprintf("role %s cannot be stored on a mapping", r))
	}
	return int64(r), nil
}

// RoleFromPersisted converts a stored role id back to a Role.
func RoleFromPersisted(id int64) (Role, error) {
	r := Role(id)
	if _, ok := roleTable[r]; !ok || r == RoleNone {
		return RoleNone, fmt.Errorf("%w: unknown persisted role %d", ErrStorage, id)
	}
	return r, nil
}

// ParseRole converts a user-supplied role name or one-letter alias. "none"
// parses to RoleNone; anything else not in the table is ErrInvalidArgument.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == roleTable[RoleNone].name {
		return RoleNone, nil
	}
	for _, r := range MappableRoles {
		info := roleTable[r]
		if s == info.name || s == info.alias {
			return r, nil
		}
	}
	return RoleNone, InvalidArgument("role", fmt.Sprintf("unknown role %q", s))
}

// MarshalText encodes the role as its name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a role name.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
