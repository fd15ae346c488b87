package types

// Directories and state resource groups that are always skipped.
var (
	DefaultExcludedDirs   = []string{".git", ".terraform"}
	DefaultExcludedGroups = []string{"terraform_remote_state"}
)

// Exclusions controls what a build skips. Directories match by base name,
// groups by raw (pre-remap) state resource group.
type Exclusions struct {
	Dirs   map[string]bool
	Groups map[string]bool
}

// NewExclusions merges the user supplied names with the defaults.
func NewExclusions(dirs, groups []string) Exclusions {
	ex := Exclusions{
		Dirs:   make(map[string]bool),
		Groups: make(map[string]bool),
	}
	for _, d := range append(append([]string{}, DefaultExcludedDirs...), dirs...) {
		if d != "" {
			ex.Dirs[d] = true
		}
	}
	for _, g := range append(append([]string{}, DefaultExcludedGroups...), groups...) {
		if g != "" {
			ex.Groups[g] = true
		}
	}
	return ex
}

// Clone returns an independent copy so a build can extend it privately.
func (e Exclusions) Clone() Exclusions {
	c := Exclusions{
		Dirs:   make(map[string]bool, len(e.Dirs)),
		Groups: make(map[string]bool, len(e.Groups)),
	}
	for k, v := range e.Dirs {
		c.Dirs[k] = v
	}
	for k, v := range e.Groups {
		c.Groups[k] = v
	}
	return c
}
