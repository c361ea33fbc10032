// internal/tenant/registry.go
package tenant

import (
	"fmt"
	"strings"
)

// IDLength is the fixed length of a tenant identifier.
const IDLength = 4

// Names holds the two durable collections owned by a tenant. Isolation is
// structural: every tenant gets its own table pair, no shared rows.
type Names struct {
	Messages string
	Media    string
}

// Registry is the closed allow-list of tenants configured at startup.
type Registry struct {
	ids []string
}

// NewRegistry copies the configured tenant ids into a registry.
func NewRegistry(ids []string) *Registry {
	out := make([]string, len(ids))
	copy(out, ids)
	return &Registry{ids: out}
}

// IsValid is the membership test against the configured allow-list.
func (r *Registry) IsValid(id string) bool {
	for _, t := range r.ids {
		if t == id {
			return true
		}
	}
	return false
}

// IDs returns the configured tenant ids in configuration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// TableNames maps a tenant id to its table pair. The mapping is injective
// because tenant ids are distinct.
func (r *Registry) TableNames(id string) Names {
	return Names{
		Messages: fmt.Sprintf("messages_%s", id),
		Media:    fmt.Sprintf("media_%s", id),
	}
}

// Extract parses a credential for an embedded tenant marker using the
// date-prefix strategy: the credential must contain prefix+tenantID as a
// substring. Pure function, no I/O; malformed input yields ok=false.
func (r *Registry) Extract(credential, prefix string) (string, bool) {
	if credential == "" || prefix == "" {
		return "", false
	}
	if len(credential) < len(prefix)+IDLength {
		return "", false
	}
	for _, id := range r.ids {
		if strings.Contains(credential, prefix+id) {
			return id, true
		}
	}
	return "", false
}
