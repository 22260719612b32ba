package auth

import "fmt"

// Capability is the unit of permission. Codes are ordinal, not a bitmask:
// a role holds a set of capabilities, never a combined value.
type Capability int

const (
	CapabilityView   Capability = 1
	CapabilityEdit   Capability = 2
	CapabilityCreate Capability = 3
	CapabilityDelete Capability = 4
)

func (c Capability) String() string {
	switch c {
	case CapabilityView:
		return "view"
	case CapabilityEdit:
		return "edit"
	case CapabilityCreate:
		return "create"
	case CapabilityDelete:
		return "delete"
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// RoleID identifies one of the fixed roles.
type RoleID int64

const (
	RoleMember  RoleID = 1
	RoleStaff   RoleID = 2
	RoleAdmin   RoleID = 3
	RoleManager RoleID = 4
)

// Role is an immutable named capability set. Rank orders roles by privilege
// for the escalation guard; it coincides with the id today but is a separate
// field on purpose, so reordering ids can never silently change privilege.
type Role struct {
	ID           RoleID
	Title        string
	Rank         int
	capabilities map[Capability]struct{}
}

// Can reports whether the role's capability set contains c.
func (r Role) Can(c Capability) bool {
	_, ok := r.capabilities[c]
	return ok
}

// Capabilities returns the role's capability set in ascending code order.
func (r Role) Capabilities() []Capability {
	out := make([]Capability, 0, len(r.capabilities))
	for _, c := range []Capability{CapabilityView, CapabilityEdit, CapabilityCreate, CapabilityDelete} {
		if r.Can(c) {
			out = append(out, c)
		}
	}
	return out
}

// Registry is the static role → capability table. It is built once at process
// start, injected where needed, and never mutated afterwards.
type Registry struct {
	roles map[RoleID]Role
}

// NewRegistry builds the fixed four-role table.
func NewRegistry() *Registry {
	reg := &Registry{roles: make(map[RoleID]Role, 4)}
	reg.add(Role{ID: RoleMember, Title: "Member", Rank: 1}, nil)
	reg.add(Role{ID: RoleStaff, Title: "Staff", Rank: 2}, []Capability{CapabilityView})
	reg.add(Role{ID: RoleAdmin, Title: "Admin", Rank: 3}, []Capability{CapabilityView, CapabilityEdit, CapabilityCreate})
	reg.add(Role{ID: RoleManager, Title: "Manager", Rank: 4}, []Capability{CapabilityView, CapabilityEdit, CapabilityCreate, CapabilityDelete})
	return reg
}

func (g *Registry) add(role Role, caps []Capability) {
	role.capabilities = make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		role.capabilities[c] = struct{}{}
	}
	g.roles[role.ID] = role
}

// Find resolves a role id. An unknown id wraps ErrUnknownRole: role ids are
// foreign-key constrained, so a miss is a data-integrity bug, not user input.
func (g *Registry) Find(id RoleID) (Role, error) {
	role, ok := g.roles[id]
	if !ok {
		return Role{}, fmt.Errorf("%w: %d", ErrUnknownRole, id)
	}
	return role, nil
}

// HasCapability reports whether the role identified by id holds c.
func (g *Registry) HasCapability(id RoleID, c Capability) (bool, error) {
	role, err := g.Find(id)
	if err != nil {
		return false, err
	}
	return role.Can(c), nil
}

// Known reports whether id maps to a registered role. Used to validate
// caller-supplied role ids before they reach storage.
func (g *Registry) Known(id RoleID) bool {
	_, ok := g.roles[id]
	return ok
}
