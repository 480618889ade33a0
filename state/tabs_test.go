package state

import (
	"reflect"
	"testing"

	"github.com/nextyou21/planner-backend/models"
)

func TestAvailableTabs(t *testing.T) {
	cfg := models.PlannerConfig{
		ShowVisionBoard: true,
		ActiveMonths:    []string{"January", "February"},
	}

	got := AvailableTabs(cfg, false)
	want := []string{TabSetup, TabAnnualGoals, "January", "February"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tabs = %v, want %v", got, want)
	}

	got = AvailableTabs(cfg, true)
	if got[len(got)-1] != TabAdmin {
		t.Errorf("admin tab missing for admin user: %v", got)
	}
}

func TestAvailableTabsNoVisionBoard(t *testing.T) {
	cfg := models.PlannerConfig{ActiveMonths: []string{"March"}}
	got := AvailableTabs(cfg, false)
	want := []string{TabSetup, "March"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tabs = %v, want %v", got, want)
	}
}

func TestReconcileTabOrderKeepsPersistedOrder(t *testing.T) {
	available := []string{TabSetup, TabAnnualGoals, "January"}
	persisted := []string{"January", TabSetup}

	got := ReconcileTabOrder(available, persisted)
	want := []string{"January", TabSetup, TabAnnualGoals}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestReconcileTabOrderDropsUnavailable(t *testing.T) {
	available := []string{TabSetup, "January"}
	persisted := []string{"February", TabSetup, "January"}

	got := ReconcileTabOrder(available, persisted)
	want := []string{TabSetup, "January"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestReconcileTabOrderEmptyPersisted(t *testing.T) {
	available := []string{TabSetup, "January"}
	got := ReconcileTabOrder(available, nil)
	if !reflect.DeepEqual(got, available) {
		t.Errorf("order = %v, want availability order", got)
	}
}

func TestApplyDragMovesEntry(t *testing.T) {
	tabs := []string{"A", "B", "C", "D"}

	got := ApplyDrag(tabs, 0, 2)
	want := []string{"B", "C", "A", "D"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("drag 0->2 = %v, want %v", got, want)
	}

	got = ApplyDrag(tabs, 3, 0)
	want = []string{"D", "A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("drag 3->0 = %v, want %v", got, want)
	}

	// input untouched
	if !reflect.DeepEqual(tabs, []string{"A", "B", "C", "D"}) {
		t.Errorf("input mutated: %v", tabs)
	}
}

func TestApplyDragOutOfRange(t *testing.T) {
	tabs := []string{"A", "B"}
	got := ApplyDrag(tabs, 5, 0)
	if !reflect.DeepEqual(got, tabs) {
		t.Errorf("out-of-range drag changed order: %v", got)
	}
}
