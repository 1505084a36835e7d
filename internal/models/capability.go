package models

import "sort"

// Roles
const (
	RoleAdmin  = "admin"
	RoleSales  = "sales"
	RolePicker = "picker"
)

// ValidRoles defines the available roles in the system
var ValidRoles = []string{RoleAdmin, RoleSales, RolePicker}

// Capability is the unit of authorization an operation declares
type Capability string

const (
	CapItemsView     Capability = "items.view"
	CapItemsCreate   Capability = "items.create"
	CapItemsEdit     Capability = "items.edit"
	CapItemsAdjust   Capability = "items.adjust"
	CapItemsDelete   Capability = "items.delete"
	CapItemsImport   Capability = "items.import"
	CapItemsExport   Capability = "items.export"
	CapLabelsPrint   Capability = "labels.print"
	CapPicksRequest  Capability = "picks.request"
	CapPicksCancel   Capability = "picks.cancel"
	CapPicksFulfill  Capability = "picks.fulfill"
	CapAdminOverride Capability = "admin.override"
	CapAuditRun      Capability = "audit.run"
	CapUsersManage   Capability = "users.manage"
)

var allCapabilities = []Capability{
	CapItemsView, CapItemsCreate, CapItemsEdit, CapItemsAdjust, CapItemsDelete,
	CapItemsImport, CapItemsExport, CapLabelsPrint, CapPicksRequest, CapPicksCancel,
	CapPicksFulfill, CapAdminOverride, CapAuditRun, CapUsersManage,
}

var roleCapabilities = map[string][]Capability{
	RoleAdmin: allCapabilities,
	RoleSales: {
		CapItemsView, CapItemsExport, CapLabelsPrint, CapPicksRequest, CapPicksCancel,
	},
	RolePicker: {
		CapItemsView, CapItemsAdjust, CapLabelsPrint, CapPicksFulfill, CapAuditRun,
	},
}

// CapabilitySet is the resolved grant of one actor
type CapabilitySet map[Capability]struct{}

// CapabilitiesFor resolves roles to the union of their capabilities. Unknown roles grant nothing.
func CapabilitiesFor(roles []string) CapabilitySet {
	set := CapabilitySet{}
	for _, role := range roles {
		for _, c := range roleCapabilities[role] {
			set[c] = struct{}{}
		}
	}
	return set
}

// Has reports membership
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities sorted by name
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsValidRole checks if a role is valid
func IsValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}

// ValidateRoles checks if all provided roles are valid
func ValidateRoles(roles []string) bool {
	for _, role := range roles {
		if !IsValidRole(role) {
			return false
		}
	}
	return len(roles) > 0
}
