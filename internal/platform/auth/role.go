// Package auth implements the portal's session and role model: a signed,
// time-limited session cookie and the role gate used by every HTTP entry
// point. Record-level org scoping lives with the case workflow; this package
// only answers "who is this" and "is this role allowed here".
package auth

import (
	"fmt"
	"strings"
)

// OrgKind is the organization side a role belongs to. It decides which org
// reference on a case a session is checked against.
type OrgKind string

const (
	OrgClinic   OrgKind = "CLINIC"
	OrgPharmacy OrgKind = "PHARMACY"
)

// Valid reports whether the kind is one of the two defined org kinds.
func (k OrgKind) Valid() bool {
	return k == OrgClinic || k == OrgPharmacy
}

// RoleLevel is the privilege tier within an organization.
type RoleLevel string

const (
	LevelAdmin RoleLevel = "ADMIN"
	LevelStaff RoleLevel = "STAFF"
)

// Role is a tagged pair of organization kind and privilege level. The wire
// and database form is the underscore string ("CLINIC_ADMIN"); code never
// branches on string prefixes.
type Role struct {
	Kind  OrgKind
	Level RoleLevel
}

var (
	ClinicAdmin   = Role{OrgClinic, LevelAdmin}
	ClinicStaff   = Role{OrgClinic, LevelStaff}
	PharmacyAdmin = Role{OrgPharmacy, LevelAdmin}
	PharmacyStaff = Role{OrgPharmacy, LevelStaff}
)

// AllStaff lists every role allowed to use the portal.
var AllStaff = []Role{ClinicAdmin, ClinicStaff, PharmacyAdmin, PharmacyStaff}

// Admins lists the admin roles of both organization kinds.
var Admins = []Role{ClinicAdmin, PharmacyAdmin}

func (r Role) String() string {
	return string(r.Kind) + "_" + string(r.Level)
}

// Valid reports whether the role is one of the four defined roles.
func (r Role) Valid() bool {
	switch r.Kind {
	case OrgClinic, OrgPharmacy:
	default:
		return false
	}
	switch r.Level {
	case LevelAdmin, LevelStaff:
	default:
		return false
	}
	return true
}

// ParseRole converts the underscore string form into a Role.
func ParseRole(s string) (Role, error) {
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return Role{}, fmt.Errorf("invalid role: %q", s)
	}
	r := Role{Kind: OrgKind(parts[0]), Level: RoleLevel(parts[1])}
	if !r.Valid() {
		return Role{}, fmt.Errorf("invalid role: %q", s)
	}
	return r, nil
}

// MarshalText renders the underscore form for JSON and DB use.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role: %+v", r)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
