// Package types holds the data model shared by the builder, the stores and
// the scanner.
package types

// Inventory maps a canonical resource group tag (e.g. "aws_instance") to the
// identifiers tracked for it in Terraform state, in discovery order.
type Inventory map[string][]string

// Add appends id to the group and reports whether the group was created.
func (inv Inventory) Add(tag, id string) bool {
	_, exists := inv[tag]
	inv[tag] = append(inv[tag], id)
	return !exists
}

// IDs returns the tracked identifiers of a group as a set.
func (inv Inventory) IDs(tag string) map[string]bool {
	ids := make(map[string]bool, len(inv[tag]))
	for _, id := range inv[tag] {
		ids[id] = true
	}
	return ids
}

// Len returns the total number of tracked identifiers.
func (inv Inventory) Len() int {
	n := 0
	for _, ids := range inv {
		n += len(ids)
	}
	return n
}

// BuildCounters summarizes a build pass.
type BuildCounters struct {
	State         int `json:"state"`          // project directories listed successfully
	Resource      int `json:"resource"`       // tracked resources resolved to an identifier
	ResourceGroup int `json:"resource_group"` // distinct canonical groups discovered
}
