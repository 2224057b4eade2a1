package models

import (
	"fmt"
	"strings"
)

// ModelRole names why a model is being called, decoupling call sites from
// specific models. RoleSelections.GetOrMain falls back to RoleModelMain
// when a role is unset.
type ModelRole string

const (
	RoleModelMain    ModelRole = "main"
	RoleModelFast    ModelRole = "fast"
	RoleModelVision  ModelRole = "vision"
	RoleModelPlan    ModelRole = "plan"
	RoleModelExplore ModelRole = "explore"
	RoleModelReview  ModelRole = "review"
	RoleModelCompact ModelRole = "compact"
)

// AllModelRoles lists every role in a stable order.
func AllModelRoles() []ModelRole {
	return []ModelRole{
		RoleModelMain, RoleModelFast, RoleModelVision, RoleModelPlan,
		RoleModelExplore, RoleModelReview, RoleModelCompact,
	}
}

// ParseModelRole parses a role name case-insensitively.
func ParseModelRole(s string) (ModelRole, bool) {
	for _, r := range AllModelRoles() {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// ThinkingEffort is the requested reasoning effort for a model call.
type ThinkingEffort string

const (
	ThinkingNone   ThinkingEffort = "none"
	ThinkingLow    ThinkingEffort = "low"
	ThinkingMedium ThinkingEffort = "medium"
	ThinkingHigh   ThinkingEffort = "high"
	ThinkingXHigh  ThinkingEffort = "xhigh"
)

// thinkingOrder lists efforts in cycling order.
var thinkingOrder = []ThinkingEffort{
	ThinkingNone, ThinkingLow, ThinkingMedium, ThinkingHigh, ThinkingXHigh,
}

// Next returns the next effort in cycling order, wrapping to ThinkingNone.
func (e ThinkingEffort) Next() ThinkingEffort {
	for i, v := range thinkingOrder {
		if v == e {
			return thinkingOrder[(i+1)%len(thinkingOrder)]
		}
	}
	return ThinkingNone
}

// ThinkingLevel combines an effort with an optional explicit token budget.
type ThinkingLevel struct {
	Effort ThinkingEffort `json:"effort"`
	// BudgetTokens overrides the provider's effort-derived budget when > 0.
	BudgetTokens int `json:"budget_tokens,omitempty"`
}

// RoleSelection binds a model spec to an optional thinking level and the set
// of thinking efforts the model actually supports.
type RoleSelection struct {
	Spec     ModelSpec      `json:"spec"`
	Thinking *ThinkingLevel `json:"thinking,omitempty"`
	// SupportedEfforts is empty when the model supports no thinking.
	SupportedEfforts []ThinkingEffort `json:"supported_efforts,omitempty"`
}

// NewRoleSelection creates a selection for a spec with no thinking config.
func NewRoleSelection(spec ModelSpec) RoleSelection {
	return RoleSelection{Spec: spec}
}

// ModelName returns the bare model id of the selection.
func (s RoleSelection) ModelName() string { return s.Spec.Model }

// SupportsEffort reports whether the model supports the given effort.
func (s RoleSelection) SupportsEffort(e ThinkingEffort) bool {
	for _, v := range s.SupportedEfforts {
		if v == e {
			return true
		}
	}
	return false
}

// RoleSelections maps roles to selections. GetOrMain falls back to
// RoleModelMain for unset roles; Get does not.
type RoleSelections struct {
	byRole map[ModelRole]RoleSelection
}

// NewRoleSelections creates an empty selection map.
func NewRoleSelections() *RoleSelections {
	return &RoleSelections{byRole: make(map[ModelRole]RoleSelection)}
}

// Set assigns a selection to a role.
func (r *RoleSelections) Set(role ModelRole, sel RoleSelection) {
	if r.byRole == nil {
		r.byRole = make(map[ModelRole]RoleSelection)
	}
	r.byRole[role] = sel
}

// Get returns the selection for a role, without fallback.
func (r *RoleSelections) Get(role ModelRole) (RoleSelection, bool) {
	sel, ok := r.byRole[role]
	return sel, ok
}

// GetOrMain returns the selection for a role, falling back to Main.
func (r *RoleSelections) GetOrMain(role ModelRole) (RoleSelection, bool) {
	if sel, ok := r.byRole[role]; ok {
		return sel, true
	}
	sel, ok := r.byRole[RoleModelMain]
	return sel, ok
}

// Main returns the Main selection.
func (r *RoleSelections) Main() (RoleSelection, bool) {
	return r.Get(RoleModelMain)
}

// Roles returns the roles that have explicit selections.
func (r *RoleSelections) Roles() []ModelRole {
	roles := make([]ModelRole, 0, len(r.byRole))
	for _, role := range AllModelRoles() {
		if _, ok := r.byRole[role]; ok {
			roles = append(roles, role)
		}
	}
	return roles
}

// MarshalJSON encodes the selections as a role-keyed object.
func (r RoleSelections) MarshalJSON() ([]byte, error) {
	return marshalRoleMap(r.byRole)
}

// UnmarshalJSON decodes a role-keyed object.
func (r *RoleSelections) UnmarshalJSON(data []byte) error {
	m, err := unmarshalRoleMap(data)
	if err != nil {
		return err
	}
	r.byRole = m
	return nil
}

// IdentityKind discriminates ExecutionIdentity variants.
type IdentityKind string

const (
	IdentityRole    IdentityKind = "role"
	IdentitySpec    IdentityKind = "spec"
	IdentityInherit IdentityKind = "inherit"
)

// ExecutionIdentity describes how to find a model for a request: by
// configured role, by explicit spec, or by inheriting the parent's selection.
// Inherit must be resolved against a parent before reaching a provider.
type ExecutionIdentity struct {
	Kind IdentityKind `json:"kind"`
	Role ModelRole    `json:"role,omitempty"`
	Spec ModelSpec    `json:"spec,omitempty"`
}

// RoleIdentity creates a role-based identity.
func RoleIdentity(role ModelRole) ExecutionIdentity {
	return ExecutionIdentity{Kind: IdentityRole, Role: role}
}

// SpecIdentity creates a spec-based identity.
func SpecIdentity(spec ModelSpec) ExecutionIdentity {
	return ExecutionIdentity{Kind: IdentitySpec, Spec: spec}
}

// InheritIdentity creates an inheriting identity.
func InheritIdentity() ExecutionIdentity {
	return ExecutionIdentity{Kind: IdentityInherit}
}

// MainIdentity is the default identity: the Main role.
func MainIdentity() ExecutionIdentity { return RoleIdentity(RoleModelMain) }

// RequiresParent reports whether resolution needs a parent context.
func (i ExecutionIdentity) RequiresParent() bool { return i.Kind == IdentityInherit }

// Resolve maps the identity to a concrete selection using the given
// selections and, for Inherit, the parent selection.
func (i ExecutionIdentity) Resolve(selections *RoleSelections, parent *RoleSelection) (RoleSelection, error) {
	switch i.Kind {
	case IdentityRole:
		sel, ok := selections.GetOrMain(i.Role)
		if !ok {
			return RoleSelection{}, fmt.Errorf("no selection configured for role %q and no main fallback", i.Role)
		}
		return sel, nil
	case IdentitySpec:
		return NewRoleSelection(i.Spec), nil
	case IdentityInherit:
		if parent == nil {
			return RoleSelection{}, fmt.Errorf("inherit identity requires a parent selection")
		}
		return *parent, nil
	default:
		return RoleSelection{}, fmt.Errorf("unknown identity kind %q", i.Kind)
	}
}

func (i ExecutionIdentity) String() string {
	switch i.Kind {
	case IdentityRole:
		return "role:" + string(i.Role)
	case IdentitySpec:
		return "spec:" + i.Spec.String()
	default:
		return "inherit"
	}
}
