package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Notifier receives decision notifications for a user. Wired to the
// notification service at startup; a nil notifier disables delivery.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

// Service implements identity establishment and the user approval state
// machine on top of an injected credential store.
type Service struct {
	store    UserStore
	tokens   *Tokens
	notifier Notifier
	now      func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithNotifier wires decision notifications.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the identity service.
func NewService(store UserStore, tokens *Tokens, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("user store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	s := &Service{store: store, tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session is the result of successful authentication or registration.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// RegisterLocal creates a password-based account. Only the resident role is
// open for self-registration; admin tiers are provisioned out-of-band. The
// account starts pending and a session token is issued immediately so the
// caller need not re-authenticate.
func (s *Service) RegisterLocal(ctx context.Context, reg Registration) (Session, error) {
	email := strings.TrimSpace(strings.ToLower(reg.Email))
	if email == "" || !strings.Contains(email, "@") {
		return Session{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(reg.Password) == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	role := reg.Role
	if role == "" {
		role = RoleResident
	}
	if !role.Valid() {
		return Session{}, fmt.Errorf("%w: unsupported role %s", ErrInvalidInput, reg.Role)
	}
	if role != RoleResident {
		return Session{}, ErrForbidden
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return Session{}, err
	}
	user := &User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(reg.Name),
		Phone:        strings.TrimSpace(reg.Phone),
		Address:      strings.TrimSpace(reg.Address),
		Role:         role,
		Status:       StatusPending,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return Session{}, err
	}
	return s.session(*user)
}

// ProvisionAdmin creates an admin-tier account on behalf of a kebele admin.
// The new account starts pending and still requires the exact-next-tier
// review before it can authenticate.
func (s *Service) ProvisionAdmin(ctx context.Context, caller Principal, reg Registration) (User, error) {
	if err := Authorize(caller, RoleKebeleAdmin); err != nil {
		return User{}, err
	}
	if !reg.Role.IsAdmin() {
		return User{}, fmt.Errorf("%w: admin role is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(strings.ToLower(reg.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(reg.Password) == "" {
		return User{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return User{}, err
	}
	user := &User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(reg.Name),
		Phone:        strings.TrimSpace(reg.Phone),
		Address:      strings.TrimSpace(reg.Address),
		Role:         reg.Role,
		Status:       StatusPending,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return User{}, err
	}
	return *user, nil
}

// RegisterOrLinkFederated resolves a verified external profile to a local
// account. A new resident account is created on first contact; an existing
// account is returned unchanged, except that a missing federated id is
// linked. Federated login never re-creates or overwrites an account.
func (s *Service) RegisterOrLinkFederated(ctx context.Context, profile ExternalProfile) (User, error) {
	email := strings.TrimSpace(strings.ToLower(profile.Email))
	if email == "" {
		return User{}, fmt.Errorf("%w: federated profile has no verified email", ErrInvalidInput)
	}
	existing, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.FederatedID == "" && profile.Subject != "" {
			subject := profile.Subject
			linked, err := s.store.Update(ctx, existing.ID, UserUpdate{FederatedID: &subject})
			if err != nil {
				return User{}, err
			}
			return *linked, nil
		}
		return *existing, nil
	case errors.Is(err, ErrNotFound):
		user := &User{
			Email:       email,
			FederatedID: profile.Subject,
			Name:        strings.TrimSpace(profile.Name),
			Role:        RoleResident,
			Status:      StatusPending,
		}
		if err := s.store.Create(ctx, user); err != nil {
			return User{}, err
		}
		return *user, nil
	default:
		return User{}, err
	}
}

// AuthenticateLocal verifies email/password credentials. Accounts that are
// not yet approved cannot authenticate, with one exception: the kebele
// admin tier is the root of the approval chain and is always allowed in.
func (s *Service) AuthenticateLocal(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredential
	}
	if user.Status != StatusApproved && user.Role != RoleKebeleAdmin {
		return Session{}, ErrNotApproved
	}
	return s.session(*user)
}

// AuthenticateFederated resolves the profile and issues a token
// unconditionally: the federated path is the account-creation path itself
// and is not gated by approval status.
func (s *Service) AuthenticateFederated(ctx context.Context, profile ExternalProfile) (Session, error) {
	user, err := s.RegisterOrLinkFederated(ctx, profile)
	if err != nil {
		return Session{}, err
	}
	return s.session(user)
}

// Review applies an approve/reject decision to a pending account. Only the
// exact next tier above the target's role may decide; the store re-checks
// the pending precondition at write time so concurrent conflicting reviews
// cannot double-apply.
func (s *Service) Review(ctx context.Context, reviewer Principal, targetID string, decision Status, reason string) (User, error) {
	if reviewer.IsZero() {
		return User{}, ErrUnauthorized
	}
	if _, ok := reviewer.Role.Oversees(); !ok {
		return User{}, ErrForbidden
	}
	if decision != StatusApproved && decision != StatusRejected {
		return User{}, ErrInvalidStatusValue
	}
	target, err := s.store.Find(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if err := AuthorizeReview(reviewer, target.Role); err != nil {
		return User{}, err
	}
	if target.Status != StatusPending {
		return User{}, ErrInvalidStatus
	}
	updated, err := s.store.Transition(ctx, targetID, StatusPending, decision, reviewer.Role, reviewer.UserID, reason)
	if err != nil {
		return User{}, err
	}
	s.notify(ctx, updated.ID, fmt.Sprintf("Your account has been %s", decision))
	return *updated, nil
}

// Suspend moves an approved account to suspended. Top tier only.
func (s *Service) Suspend(ctx context.Context, admin Principal, targetID, reason string) (User, error) {
	if err := Authorize(admin, RoleKebeleAdmin); err != nil {
		return User{}, err
	}
	target, err := s.store.Find(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if target.Status != StatusApproved {
		return User{}, ErrInvalidStatus
	}
	updated, err := s.store.Transition(ctx, targetID, StatusApproved, StatusSuspended, admin.Role, "", reason)
	if err != nil {
		return User{}, err
	}
	s.notify(ctx, updated.ID, "Your account has been suspended")
	return *updated, nil
}

// Reinstate returns a suspended account to approved. Top tier only.
func (s *Service) Reinstate(ctx context.Context, admin Principal, targetID string) (User, error) {
	if err := Authorize(admin, RoleKebeleAdmin); err != nil {
		return User{}, err
	}
	target, err := s.store.Find(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if target.Status != StatusSuspended {
		return User{}, ErrInvalidStatus
	}
	updated, err := s.store.Transition(ctx, targetID, StatusSuspended, StatusApproved, admin.Role, "", "")
	if err != nil {
		return User{}, err
	}
	s.notify(ctx, updated.ID, "Your account has been reinstated")
	return *updated, nil
}

// Get returns a user record. Residents may fetch only themselves.
func (s *Service) Get(ctx context.Context, caller Principal, id string) (User, error) {
	if err := AuthorizeOwner(caller, id, RoleResident, RoleGoxeAdmin, RoleKebeleAdmin); err != nil {
		return User{}, err
	}
	user, err := s.store.Find(ctx, id)
	if err != nil {
		return User{}, err
	}
	return *user, nil
}

// List returns all users. Admin tiers only.
func (s *Service) List(ctx context.Context, caller Principal) ([]User, error) {
	if err := Authorize(caller, RoleGoxeAdmin, RoleKebeleAdmin); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(records))
	for _, u := range records {
		out = append(out, *u)
	}
	return out, nil
}

// Delete removes an account permanently. Allowed for the top tier and for
// the principal deleting itself.
func (s *Service) Delete(ctx context.Context, caller Principal, id string) error {
	if caller.IsZero() {
		return ErrUnauthorized
	}
	if caller.Role != RoleKebeleAdmin && caller.UserID != id {
		return ErrForbidden
	}
	return s.store.Delete(ctx, id)
}

// EnsureBootstrapAdmin provisions the root kebele admin at startup. The
// bootstrap account is auto-approved: it anchors the approval chain and has
// no tier above it to sign it off. Existing accounts are left untouched.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return User{}, fmt.Errorf("%w: bootstrap admin credentials are required", ErrInvalidInput)
	}
	existing, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return *existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	user := &User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Kebele Administrator",
		Role:         RoleKebeleAdmin,
		Status:       StatusApproved,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return User{}, err
	}
	return *user, nil
}

func (s *Service) session(user User) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func (s *Service) notify(ctx context.Context, userID, message string) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Notify(ctx, userID, message)
}
