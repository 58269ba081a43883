package auth

import (
	"fmt"
	"strings"
)

const (
	RoleSuperuser = "superuser"
	RoleOperator  = "operator"
	RoleDriver    = "driver"
)

// Policy maps roles to the capabilities they grant
type Policy struct {
	roles map[string][]Capability
}

// DefaultPolicy grants superusers everything and operators reports. Recording
// payments needs no capability, only an authenticated principal.
func DefaultPolicy() *Policy {
	return &Policy{roles: map[string][]Capability{
		RoleSuperuser: AllCapabilities,
		RoleOperator:  {CapabilityViewReports},
		RoleDriver:    {},
	}}
}

// ParsePolicy reads a policy of the form
// "superuser=edit_bol|delete_bol;operator=view_reports".
// An empty definition yields the default policy.
func ParsePolicy(def string) (*Policy, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return DefaultPolicy(), nil
	}

	known := make(map[Capability]bool, len(AllCapabilities))
	for _, c := range AllCapabilities {
		known[c] = true
	}

	p := &Policy{roles: make(map[string][]Capability)}
	for _, rule := range strings.Split(def, ";") {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		role, list, ok := strings.Cut(rule, "=")
		role = strings.TrimSpace(role)
		if !ok || role == "" {
			return nil, fmt.Errorf("invalid role rule %q", rule)
		}
		caps := []Capability{}
		for _, raw := range strings.Split(list, "|") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			c := Capability(raw)
			if !known[c] {
				return nil, fmt.Errorf("unknown capability %q for role %s", raw, role)
			}
			caps = append(caps, c)
		}
		p.roles[role] = caps
	}
	return p, nil
}

// Principal resolves the capabilities of role. Unknown roles get none.
func (p *Policy) Principal(userID, role string) *Principal {
	return NewPrincipal(userID, role, p.roles[role]...)
}
