// Package auth models the acting principal and the capabilities it holds.
// A principal is always passed explicitly into service operations.
package auth

import (
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

// Capability is a permission an operation may require
type Capability string

const (
	CapabilityEditBOL     Capability = "edit_bol"
	CapabilityDeleteBOL   Capability = "delete_bol"
	CapabilityViewReports Capability = "view_reports"
)

// AllCapabilities lists every known capability
var AllCapabilities = []Capability{
	CapabilityEditBOL,
	CapabilityDeleteBOL,
	CapabilityViewReports,
}

// Principal is the authenticated actor of a request
type Principal struct {
	UserID       string
	Role         string
	capabilities map[Capability]struct{}
}

// NewPrincipal builds a principal holding the given capabilities
func NewPrincipal(userID, role string, caps ...Capability) *Principal {
	p := &Principal{
		UserID:       userID,
		Role:         role,
		capabilities: make(map[Capability]struct{}, len(caps)),
	}
	for _, c := range caps {
		p.capabilities[c] = struct{}{}
	}
	return p
}

// Authenticated reports whether p identifies a user
func (p *Principal) Authenticated() bool {
	return p != nil && p.UserID != ""
}

// Can reports whether p holds capability c
func (p *Principal) Can(c Capability) bool {
	if !p.Authenticated() {
		return false
	}
	_, ok := p.capabilities[c]
	return ok
}

// Capabilities returns the granted capabilities in declaration order
func (p *Principal) Capabilities() []Capability {
	var out []Capability
	for _, c := range AllCapabilities {
		if p.Can(c) {
			out = append(out, c)
		}
	}
	return out
}

// RequireAuthenticated fails for anonymous principals
func RequireAuthenticated(p *Principal) error {
	if !p.Authenticated() {
		return shared.UnauthenticatedError{}
	}
	return nil
}

// Require fails unless p is authenticated and holds at least one of caps
func Require(p *Principal, caps ...Capability) error {
	if err := RequireAuthenticated(p); err != nil {
		return err
	}
	for _, c := range caps {
		if p.Can(c) {
			return nil
		}
	}
	required := ""
	if len(caps) > 0 {
		required = string(caps[0])
	}
	return shared.ForbiddenError{UserID: p.UserID, Capability: required}
}
