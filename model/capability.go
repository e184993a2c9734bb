// Package model provides capability-based model selection. Operations ask for
// a capability (planning, reviewing) and the registry resolves it to a
// configured endpoint.
package model

// Capability represents a semantic capability for model selection.
type Capability string

const (
	// CapabilityPlanning is used for weekly plan generation and adjustment.
	CapabilityPlanning Capability = "planning"

	// CapabilityReviewing is used for deviation analysis of reality checks.
	CapabilityReviewing Capability = "reviewing"
)

// IsValid checks if a capability string is a known capability.
func (c Capability) IsValid() bool {
	switch c {
	case CapabilityPlanning, CapabilityReviewing:
		return true
	}
	return false
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}

// ParseCapability converts a string to a Capability, returning empty for invalid values.
func ParseCapability(s string) Capability {
	c := Capability(s)
	if c.IsValid() {
		return c
	}
	return ""
}
