package identity

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	admin := Principal{UserID: "u1", Email: "a@x", Role: RoleKebeleAdmin}
	resident := Principal{UserID: "u2", Email: "r@x", Role: RoleResident}

	if err := Authorize(Principal{}, RoleResident); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("zero principal: expected ErrUnauthorized, got %v", err)
	}
	if err := Authorize(resident, RoleGoxeAdmin, RoleKebeleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("resident on admin op: expected ErrForbidden, got %v", err)
	}
	if err := Authorize(admin, RoleResident); err != nil {
		t.Fatalf("admin acting as resident: %v", err)
	}
	if err := Authorize(resident); err != nil {
		t.Fatalf("no required roles means any principal: %v", err)
	}
}

func TestAuthorizeOwner(t *testing.T) {
	owner := Principal{UserID: "owner", Role: RoleResident}
	other := Principal{UserID: "other", Role: RoleResident}
	goxe := Principal{UserID: "g", Role: RoleGoxeAdmin}

	all := []Role{RoleResident, RoleGoxeAdmin, RoleKebeleAdmin}

	if err := AuthorizeOwner(owner, "owner", all...); err != nil {
		t.Fatalf("owner on own record: %v", err)
	}
	if err := AuthorizeOwner(other, "owner", all...); !errors.Is(err, ErrForbidden) {
		t.Fatalf("resident on foreign record: expected ErrForbidden, got %v", err)
	}
	if err := AuthorizeOwner(goxe, "owner", all...); err != nil {
		t.Fatalf("admin bypasses ownership: %v", err)
	}
	if err := AuthorizeOwner(Principal{}, "owner", all...); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("zero principal: expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorizeReview(t *testing.T) {
	kebele := Principal{UserID: "k", Role: RoleKebeleAdmin}
	goxe := Principal{UserID: "g", Role: RoleGoxeAdmin}
	resident := Principal{UserID: "r", Role: RoleResident}

	if err := AuthorizeReview(kebele, RoleGoxeAdmin); err != nil {
		t.Fatalf("kebele reviewing goxe: %v", err)
	}
	if err := AuthorizeReview(goxe, RoleResident); err != nil {
		t.Fatalf("goxe reviewing resident: %v", err)
	}
	// the hierarchy does not cascade into approvals
	if err := AuthorizeReview(kebele, RoleResident); !errors.Is(err, ErrForbidden) {
		t.Fatalf("kebele reviewing resident: expected ErrForbidden, got %v", err)
	}
	if err := AuthorizeReview(resident, RoleResident); !errors.Is(err, ErrForbidden) {
		t.Fatalf("resident reviewing: expected ErrForbidden, got %v", err)
	}
	if err := AuthorizeReview(Principal{}, RoleResident); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("zero principal: expected ErrUnauthorized, got %v", err)
	}
}
