package syncengine

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/nextyou21/planner-backend/docstore"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/state"
	"go.uber.org/zap"
)

// fakeRemote is an in-memory RemoteStore capturing writes and letting tests
// drive snapshot and error delivery.
type fakeRemote struct {
	mu           sync.Mutex
	updates      []map[string]interface{}
	merges       []map[string]interface{}
	updateErr    error
	mergeErr     error
	updateDelay  time.Duration
	denyAccess   bool
	initial      json.RawMessage
	onSnapshot   func(json.RawMessage)
	subscribes   int
	unsubscribes int
}

func (f *fakeRemote) Update(userID uint, fields map[string]interface{}) error {
	if f.updateDelay > 0 {
		time.Sleep(f.updateDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, fields)
	return nil
}

func (f *fakeRemote) SetMerge(userID uint, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merges = append(f.merges, fields)
	return nil
}

func (f *fakeRemote) Subscribe(requesterID uint, requesterRole string, docID uint,
	onSnapshot func(json.RawMessage), onError func(error)) func() {

	f.mu.Lock()
	f.subscribes++
	f.onSnapshot = onSnapshot
	denied := f.denyAccess
	initial := f.initial
	f.mu.Unlock()

	if denied {
		onError(docstore.ErrPermissionDenied)
		return func() {}
	}

	onSnapshot(initial)
	return func() {
		f.mu.Lock()
		f.unsubscribes++
		f.mu.Unlock()
	}
}

func (f *fakeRemote) deliver(t *testing.T, doc interface{}) {
	t.Helper()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	f.mu.Lock()
	cb := f.onSnapshot
	f.mu.Unlock()
	if cb == nil {
		t.Fatal("no subscription registered")
	}
	cb(raw)
}

func (f *fakeRemote) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

func (f *fakeRemote) mergeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.merges)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestEngine(remote *fakeRemote) *Engine {
	eng := NewEngine(remote, 1, models.RoleUser, zap.NewNop())
	eng.RetryDelay = 10 * time.Millisecond
	eng.DebounceDelay = 10 * time.Millisecond
	return eng
}

func TestPushGoesThroughUpdate(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	eng.WithState(func(s *state.Store) {
		s.AddHabit(state.HabitInput{Name: "Read", Category: "Mind"})
	})

	waitFor(t, func() bool { return remote.updateCount() == 1 }, "update never flushed")

	remote.mu.Lock()
	fields := remote.updates[0]
	remote.mu.Unlock()
	if _, ok := fields[models.FieldHabits]; !ok {
		t.Errorf("pushed fields = %v, want habits", fields)
	}
	if remote.mergeCount() != 0 {
		t.Error("merge path used although update succeeded")
	}
}

func TestPushFallsBackToMergeCreate(t *testing.T) {
	remote := &fakeRemote{updateErr: docstore.ErrNotFound}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	eng.WithState(func(s *state.Store) {
		s.AddHabit(state.HabitInput{Name: "Read", Category: "Mind"})
	})

	waitFor(t, func() bool { return remote.mergeCount() == 1 }, "merge fallback never ran")
}

func TestRapidPushesCollapseToLatest(t *testing.T) {
	remote := &fakeRemote{updateDelay: 20 * time.Millisecond}
	eng := newTestEngine(remote)
	defer eng.Close()

	// while the first flush is in flight the rest collapse to one entry
	for i := 0; i < 5; i++ {
		eng.Push(models.FieldConfig, models.ConfigColumn{Year: "2026"})
	}

	waitFor(t, func() bool { return eng.Syncing() == false }, "queue never drained")

	if got := remote.updateCount(); got > 2 {
		t.Errorf("flushed %d updates for one field, want collapsed delivery", got)
	}
}

func TestSnapshotFieldDefaulting(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	eng.WithState(func(s *state.Store) {
		s.AddHabit(state.HabitInput{Name: "Read", Category: "Mind"})
	})

	// snapshot carries monthly goals but no habits: local habits must survive
	remote.deliver(t, map[string]interface{}{
		"status": models.StatusPending,
		"monthly_goals": []models.MonthlyGoalSet{
			{Month: "January", Goals: []models.GoalItem{{Text: "Plan"}}},
		},
	})

	view := eng.View()
	if len(view.Habits) != 1 {
		t.Errorf("habits = %d, want local habit kept", len(view.Habits))
	}
	if len(view.Monthly) != 1 || view.Monthly[0].Month != "January" {
		t.Errorf("monthly goals not applied: %+v", view.Monthly)
	}
}

func TestSnapshotEmptyHabitsKeepsLocal(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	eng.WithState(func(s *state.Store) {
		s.AddHabit(state.HabitInput{Name: "Read", Category: "Mind"})
	})

	remote.deliver(t, map[string]interface{}{
		"status": models.StatusPending,
		"habits": []models.Habit{},
	})

	if got := len(eng.View().Habits); got != 1 {
		t.Errorf("habits = %d, empty remote list must not clear local habits", got)
	}
}

func TestSnapshotStripsLegacyTab(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	remote.deliver(t, map[string]interface{}{
		"status": models.StatusPending,
		"config": models.PlannerConfig{
			Year:         "2026",
			ActiveMonths: []string{"January"},
			TabOrder:     []string{"Setup", "Architecture", "January"},
		},
	})

	for _, tab := range eng.View().Config.TabOrder {
		if tab == "Architecture" {
			t.Fatal("legacy tab survived the snapshot merge")
		}
	}
}

func TestExpiredApprovalRewrittenToPending(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	past := time.Now().Add(-time.Hour)
	remote.deliver(t, map[string]interface{}{
		"status":      models.StatusApproved,
		"is_paid":     true,
		"valid_until": past,
	})

	view := eng.View()
	if view.Status != models.StatusPending {
		t.Errorf("status = %q, want rewritten to pending", view.Status)
	}
	if view.ValidUntil != nil {
		t.Errorf("validUntil = %v, want cleared", view.ValidUntil)
	}
	if view.Gate != GatePendingApproval {
		t.Errorf("gate = %q, want pending_approval", view.Gate)
	}

	// the correction is written back to the remote document
	waitFor(t, func() bool { return remote.updateCount() >= 1 }, "expiry correction never written")
	remote.mu.Lock()
	fields := remote.updates[0]
	remote.mu.Unlock()
	if fields[models.FieldStatus] != models.StatusPending {
		t.Errorf("correction status = %v, want pending", fields[models.FieldStatus])
	}
	if v, ok := fields[models.FieldValidUntil]; !ok || v != nil {
		t.Errorf("correction validUntil = %v, want explicit nil", v)
	}
}

func TestValidApprovalOpensGate(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	future := time.Now().Add(24 * time.Hour)
	remote.deliver(t, map[string]interface{}{
		"status":      models.StatusApproved,
		"is_paid":     true,
		"valid_until": future,
	})

	if gate := eng.Gate(); gate != GateApproved {
		t.Errorf("gate = %q, want approved", gate)
	}
}

func TestUnpaidAccountGated(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	remote.deliver(t, map[string]interface{}{
		"status":  models.StatusApproved,
		"is_paid": false,
	})

	if gate := eng.Gate(); gate != GateUnpaid {
		t.Errorf("gate = %q, want unpaid", gate)
	}
}

func TestBlockedWinsOverEverything(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	remote.deliver(t, map[string]interface{}{
		"status":  models.StatusBlocked,
		"is_paid": true,
	})

	if gate := eng.Gate(); gate != GateBlocked {
		t.Errorf("gate = %q, want blocked", gate)
	}
}

func TestPermissionDeniedSingleRetry(t *testing.T) {
	remote := &fakeRemote{denyAccess: true}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	if gate := eng.Gate(); gate != GatePermissionError {
		t.Fatalf("gate = %q, want permission_error", gate)
	}

	// exactly one delayed retry, then it stays degraded
	waitFor(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.subscribes == 2
	}, "retry never happened")

	time.Sleep(5 * eng.RetryDelay)
	remote.mu.Lock()
	subs := remote.subscribes
	remote.mu.Unlock()
	if subs != 2 {
		t.Errorf("subscribes = %d, want exactly 2 (single retry)", subs)
	}
	if gate := eng.Gate(); gate != GatePermissionError {
		t.Errorf("gate = %q, want still permission_error", gate)
	}
}

func TestReattachTearsDownStaleSubscription(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()

	eng.Attach()
	eng.Attach()

	remote.mu.Lock()
	defer remote.mu.Unlock()
	if remote.subscribes != 2 {
		t.Fatalf("subscribes = %d, want 2", remote.subscribes)
	}
	if remote.unsubscribes != 1 {
		t.Errorf("unsubscribes = %d, want stale listener cancelled", remote.unsubscribes)
	}
}

func TestDebouncedManifestationCollapses(t *testing.T) {
	remote := &fakeRemote{}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	eng.SetManifestationText("I a")
	eng.SetManifestationText("I am")
	eng.SetManifestationText("I am enough")

	waitFor(t, func() bool { return remote.updateCount() >= 1 }, "debounced push never fired")

	time.Sleep(3 * eng.DebounceDelay)
	if got := remote.updateCount(); got != 1 {
		t.Errorf("updates = %d, want 1 debounced write", got)
	}

	remote.mu.Lock()
	cfg, ok := remote.updates[0][models.FieldConfig].(models.ConfigColumn)
	remote.mu.Unlock()
	if !ok || cfg.ManifestationText != "I am enough" {
		t.Errorf("pushed config = %+v, want final text", cfg)
	}
}

func TestAbsentDocumentKeepsDefaults(t *testing.T) {
	remote := &fakeRemote{initial: nil}
	eng := newTestEngine(remote)
	defer eng.Close()
	eng.Attach()

	view := eng.View()
	if !view.Loaded {
		t.Error("view not marked loaded after nil snapshot")
	}
	if view.Config.Year != "2026" {
		t.Errorf("year = %q, want default kept", view.Config.Year)
	}
	if view.Gate != GateUnpaid {
		t.Errorf("gate = %q, want unpaid for a fresh unpaid account", view.Gate)
	}
}
