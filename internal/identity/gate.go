package identity

// The access gate is the single decision point every protected operation
// runs through. It never mutates state; it only answers allow or deny.
//
// Evaluation order mirrors the request pipeline: missing principal →
// ErrUnauthorized, role not permitted → ErrForbidden, then ownership or the
// exact-next-tier review rule where the operation calls for it.

// Authorize checks that a principal is present and its role is permitted
// for the operation class.
func Authorize(p Principal, required ...Role) error {
	if p.IsZero() {
		return ErrUnauthorized
	}
	if len(required) == 0 {
		return nil
	}
	if !p.Role.Permits(required...) {
		return ErrForbidden
	}
	return nil
}

// AuthorizeOwner checks role permission and, for residents, that the
// targeted resource belongs to the caller. Admin tiers pass on role alone.
func AuthorizeOwner(p Principal, ownerID string, required ...Role) error {
	if err := Authorize(p, required...); err != nil {
		return err
	}
	if p.Role == RoleResident && p.UserID != ownerID {
		return ErrForbidden
	}
	return nil
}

// AuthorizeReview checks the asymmetric approval rule: the caller must be
// the exact next tier above the target's role. This is stricter than the
// operational hierarchy and overrides it for cross-tier approvals.
func AuthorizeReview(p Principal, target Role) error {
	if p.IsZero() {
		return ErrUnauthorized
	}
	if !p.Role.CanReview(target) {
		return ErrForbidden
	}
	return nil
}
