package types

// LiveResources maps a resource's natural identifier to the provider's own
// description of it (the SDK value as returned by the API).
type LiveResources map[string]any

// GhostResult is the outcome of comparing one resource group.
type GhostResult struct {
	IDs       []string       `json:"ids"`
	Count     int            `json:"count"`
	Resources map[string]any `json:"resources,omitempty"`
}

// ServiceResult maps a resource group tag to its ghost result.
type ServiceResult map[string]GhostResult

// Total returns the number of ghosts across all groups.
func (sr ServiceResult) Total() int {
	n := 0
	for _, g := range sr {
		n += g.Count
	}
	return n
}
