package auth

import (
	"context"
	"fmt"
)

// Route actions.
const (
	ActionRead    = "read"
	ActionOperate = "operate"
)

// Authorizer determines if an identity may perform an action.
type Authorizer interface {
	// Authorize returns nil if permitted, or an error matching ErrForbidden.
	Authorize(ctx context.Context, id *Identity, action string) error
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	Subject string
	Action  string
	Reason  string
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q action=%q reason=%q", e.Subject, e.Action, e.Reason)
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// RoleAuthorizer maps each action to the roles allowed to perform it. An
// action with no entry is allowed for every authenticated identity.
type RoleAuthorizer struct {
	Rules map[string][]string
}

// NewRoleAuthorizer returns an authorizer that reserves ActionOperate for the
// given roles.
func NewRoleAuthorizer(operatorRoles ...string) *RoleAuthorizer {
	return &RoleAuthorizer{Rules: map[string][]string{ActionOperate: operatorRoles}}
}

// Authorize implements Authorizer.
func (a *RoleAuthorizer) Authorize(_ context.Context, id *Identity, action string) error {
	if id == nil {
		return &AuthzError{Action: action, Reason: "no identity provided"}
	}
	roles, ok := a.Rules[action]
	if !ok {
		return nil
	}
	for _, r := range roles {
		if id.HasRole(r) {
			return nil
		}
	}
	return &AuthzError{Subject: id.Principal, Action: action, Reason: "no role permits this action"}
}

// AllowAll permits every request.
type AllowAll struct{}

// Authorize always returns nil.
func (AllowAll) Authorize(context.Context, *Identity, string) error { return nil }

var (
	_ Authorizer = (*RoleAuthorizer)(nil)
	_ Authorizer = AllowAll{}
)
