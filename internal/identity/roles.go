package identity

import "strings"

// Role is a rank in the portal hierarchy. The operational hierarchy is a
// strict linear dominance chain: kebele_admin ⊇ goxe_admin ⊇ resident.
type Role string

const (
	RoleResident    Role = "resident"
	RoleGoxeAdmin   Role = "goxe_admin"
	RoleKebeleAdmin Role = "kebele_admin"
)

// actingRoles is the closed downward set for each role.
var actingRoles = map[Role][]Role{
	RoleKebeleAdmin: {RoleKebeleAdmin, RoleGoxeAdmin, RoleResident},
	RoleGoxeAdmin:   {RoleGoxeAdmin, RoleResident},
	RoleResident:    {RoleResident},
}

// oversees maps each admin tier to the exact tier it may approve or reject.
// Approval authority does not cascade: a kebele admin signs off goxe admins
// only, a goxe admin signs off residents only.
var oversees = map[Role]Role{
	RoleKebeleAdmin: RoleGoxeAdmin,
	RoleGoxeAdmin:   RoleResident,
}

// ParseRole normalizes a role label supplied by a caller.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(raw))) {
	case RoleResident:
		return RoleResident, true
	case RoleGoxeAdmin:
		return RoleGoxeAdmin, true
	case RoleKebeleAdmin:
		return RoleKebeleAdmin, true
	default:
		return "", false
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	_, ok := actingRoles[r]
	return ok
}

// IsAdmin reports whether r is one of the two admin tiers.
func (r Role) IsAdmin() bool {
	return r == RoleGoxeAdmin || r == RoleKebeleAdmin
}

// ActingRoles returns the closed downward set of roles r may act as.
func (r Role) ActingRoles() []Role {
	set, ok := actingRoles[r]
	if !ok {
		return nil
	}
	out := make([]Role, len(set))
	copy(out, set)
	return out
}

// Permits reports whether r's acting set intersects the required roles.
func (r Role) Permits(required ...Role) bool {
	for _, acting := range actingRoles[r] {
		for _, req := range required {
			if acting == req {
				return true
			}
		}
	}
	return false
}

// Oversees returns the exact next tier down that r may review, if any.
func (r Role) Oversees() (Role, bool) {
	target, ok := oversees[r]
	return target, ok
}

// CanReview reports whether r may approve or reject a principal holding
// target. Peers and roles more than one tier below are excluded.
func (r Role) CanReview(target Role) bool {
	got, ok := oversees[r]
	return ok && got == target
}
