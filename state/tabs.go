package state

import "github.com/nextyou21/planner-backend/models"

const (
	TabSetup       = "Setup"
	TabAnnualGoals = "Annual Goals"
	TabAdmin       = "Admin Control"
)

// AvailableTabs computes the set of visible section identifiers: Setup is
// always present, Annual Goals follows the vision-board flag, then every
// active month, then the admin entry.
func AvailableTabs(cfg models.PlannerConfig, isAdmin bool) []string {
	available := []string{TabSetup}
	if cfg.ShowVisionBoard {
		available = append(available, TabAnnualGoals)
	}
	available = append(available, cfg.ActiveMonths...)
	if isAdmin {
		available = append(available, TabAdmin)
	}
	return available
}

// ReconcileTabOrder merges the availability set with the persisted preferred
// order: entries present in both keep the persisted relative order, newly
// available entries are appended at the end in source order.
func ReconcileTabOrder(available, persisted []string) []string {
	if len(persisted) == 0 {
		return available
	}

	inAvailable := make(map[string]bool, len(available))
	for _, t := range available {
		inAvailable[t] = true
	}

	ordered := make([]string, 0, len(available))
	inOrdered := make(map[string]bool, len(available))
	for _, t := range persisted {
		if inAvailable[t] && !inOrdered[t] {
			ordered = append(ordered, t)
			inOrdered[t] = true
		}
	}
	for _, t := range available {
		if !inOrdered[t] {
			ordered = append(ordered, t)
		}
	}
	return ordered
}

// ApplyDrag returns the display list with the entry at source moved to
// target. It is a transient permutation; callers commit it through
// SetTabOrder only on drag release.
func ApplyDrag(tabs []string, source, target int) []string {
	if source < 0 || source >= len(tabs) || target < 0 || target >= len(tabs) || source == target {
		out := make([]string, len(tabs))
		copy(out, tabs)
		return out
	}

	removed := make([]string, 0, len(tabs)-1)
	removed = append(removed, tabs[:source]...)
	removed = append(removed, tabs[source+1:]...)

	out := make([]string, 0, len(tabs))
	out = append(out, removed[:target]...)
	out = append(out, tabs[source])
	out = append(out, removed[target:]...)
	return out
}
