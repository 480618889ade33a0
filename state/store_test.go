package state

import (
	"testing"
	"time"

	"github.com/nextyou21/planner-backend/analytics"
	"github.com/nextyou21/planner-backend/models"
	"github.com/shopspring/decimal"
)

type recordingPusher struct {
	fields []string
	values []interface{}
}

func (p *recordingPusher) Push(field string, value interface{}) {
	p.fields = append(p.fields, field)
	p.values = append(p.values, value)
}

func (p *recordingPusher) last() (string, interface{}) {
	if len(p.fields) == 0 {
		return "", nil
	}
	return p.fields[len(p.fields)-1], p.values[len(p.values)-1]
}

func TestAddHabitPushesWholeSlice(t *testing.T) {
	pusher := &recordingPusher{}
	s := NewStore(pusher)

	habit := s.AddHabit(HabitInput{Name: "Read", Category: "Mind"})

	if habit.ID == "" {
		t.Fatal("habit id not assigned")
	}
	if habit.History == nil {
		t.Error("habit history not initialised")
	}

	field, value := pusher.last()
	if field != models.FieldHabits {
		t.Fatalf("pushed field = %q, want %q", field, models.FieldHabits)
	}
	pushed, ok := value.(models.HabitList)
	if !ok {
		t.Fatalf("pushed value type = %T, want models.HabitList", value)
	}
	if len(pushed) != 1 || pushed[0].ID != habit.ID {
		t.Errorf("pushed slice does not match store state")
	}
}

func TestUpdateHabitPatchesOnlyGivenFields(t *testing.T) {
	s := NewStore(&recordingPusher{})
	habit := s.AddHabit(HabitInput{Name: "Read", Category: "Mind", Goal: 20})

	name := "Read daily"
	if !s.UpdateHabit(habit.ID, HabitPatch{Name: &name}) {
		t.Fatal("update reported not found")
	}

	got := s.Habits[0]
	if got.Name != "Read daily" {
		t.Errorf("name = %q, want patched value", got.Name)
	}
	if got.Category != "Mind" || got.Goal != 20 {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestUpdateHabitCompletedRaisesCategoryScore(t *testing.T) {
	s := NewStore(&recordingPusher{})
	habit := s.AddHabit(HabitInput{Name: "Read", Category: "Mind"})

	before := categoryScore(t, s.Habits, "Mind")

	completed := true
	if !s.UpdateHabit(habit.ID, HabitPatch{Completed: &completed}) {
		t.Fatal("update reported not found")
	}
	if !s.Habits[0].Completed {
		t.Fatal("completed flag not applied")
	}

	after := categoryScore(t, s.Habits, "Mind")
	if after != before+20 {
		t.Errorf("category score = %d after completion, want %d", after, before+20)
	}
}

func categoryScore(t *testing.T, habits []models.Habit, category string) int {
	t.Helper()
	for _, score := range analytics.CategoryBalance(habits) {
		if score.Category == category {
			return score.Score
		}
	}
	t.Fatalf("category %q not scored", category)
	return 0
}

func TestUpdateHabitUnknownID(t *testing.T) {
	s := NewStore(&recordingPusher{})
	name := "x"
	if s.UpdateHabit("missing", HabitPatch{Name: &name}) {
		t.Error("expected not found for unknown id")
	}
}

func TestToggleHabitDayOnlyTouchesTargetMonth(t *testing.T) {
	s := NewStore(&recordingPusher{})
	habit := s.AddHabit(HabitInput{Name: "Run", Category: "Body"})

	s.ToggleHabitDay(habit.ID, "January", 1)
	s.ToggleHabitDay(habit.ID, "January", 2)
	s.ToggleHabitDay(habit.ID, "February", 10)

	hist := s.Habits[0].History
	if !hist["January"][1] || !hist["January"][2] {
		t.Errorf("january history = %v, want days 1 and 2 set", hist["January"])
	}
	if !hist["February"][10] {
		t.Errorf("february history = %v, want day 10 set", hist["February"])
	}

	// toggling again flips back
	s.ToggleHabitDay(habit.ID, "January", 1)
	if s.Habits[0].History["January"][1] {
		t.Error("second toggle did not clear the day")
	}
	if !s.Habits[0].History["February"][10] {
		t.Error("toggle in january disturbed february")
	}
}

func TestUpsertMonthlyGoalsAppendThenReplace(t *testing.T) {
	s := NewStore(&recordingPusher{})

	s.UpsertMonthlyGoals("January", []models.GoalItem{{Text: "Plan year"}})
	s.UpsertMonthlyGoals("February", []models.GoalItem{{Text: "Review"}})
	s.UpsertMonthlyGoals("January", []models.GoalItem{{Text: "Plan year", Completed: true}})

	if len(s.MonthlyGoals) != 2 {
		t.Fatalf("containers = %d, want 2 (no duplicate month)", len(s.MonthlyGoals))
	}
	if !s.MonthlyGoals[0].Goals[0].Completed {
		t.Error("january goals not replaced")
	}
}

func TestToggleWeeklyGoal(t *testing.T) {
	s := NewStore(&recordingPusher{})
	s.UpsertWeeklyGoals("March", 1, []models.GoalItem{{Text: "Ship it"}})

	if !s.ToggleWeeklyGoal("March", 1, 0, true) {
		t.Fatal("toggle reported not found")
	}
	if !s.WeeklyGoals[0].Goals[0].Completed {
		t.Error("goal not marked completed")
	}

	if s.ToggleWeeklyGoal("March", 1, 5, true) {
		t.Error("out-of-range goal index accepted")
	}
	if s.ToggleWeeklyGoal("March", 2, 0, true) {
		t.Error("unknown week accepted")
	}
}

func TestAnnualCategoryPositionalIdentity(t *testing.T) {
	s := NewStore(&recordingPusher{})
	s.AddAnnualCategory("Health", "heart")
	s.AddAnnualCategory("Career", "briefcase")

	name := "Wellness"
	if !s.UpdateAnnualCategory(0, AnnualCategoryPatch{Name: &name}) {
		t.Fatal("update by index failed")
	}
	if s.AnnualCategories[0].Name != "Wellness" {
		t.Errorf("category 0 = %q, want Wellness", s.AnnualCategories[0].Name)
	}
	if s.AnnualCategories[0].Icon != "heart" {
		t.Error("icon lost on name patch")
	}

	if s.UpdateAnnualCategory(5, AnnualCategoryPatch{Name: &name}) {
		t.Error("out-of-range index accepted")
	}

	if !s.DeleteAnnualCategory(0) {
		t.Fatal("delete by index failed")
	}
	if len(s.AnnualCategories) != 1 || s.AnnualCategories[0].Name != "Career" {
		t.Errorf("remaining categories = %+v", s.AnnualCategories)
	}
}

func TestAddAnnualCategoryDefaultName(t *testing.T) {
	s := NewStore(&recordingPusher{})
	s.AddAnnualCategory("", "")
	if s.AnnualCategories[0].Name != "New Category" {
		t.Errorf("name = %q, want default", s.AnnualCategories[0].Name)
	}
}

func TestSettleTransactionIdempotent(t *testing.T) {
	s := NewStore(&recordingPusher{})
	tx := s.AddTransaction(TransactionInput{
		Desc:   "Rahul: Loan",
		Amount: decimal.NewFromInt(500),
		Type:   models.TxLend,
		Date:   time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	})

	first := time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC)
	if !s.SettleTransaction(tx.ID, first) {
		t.Fatal("settle failed")
	}

	got := s.Transactions[0]
	if got.Status != models.TxSettled || got.SettledAt == nil {
		t.Fatalf("transaction not settled: %+v", got)
	}

	// second settle is a no-op; the original time stays
	later := first.AddDate(0, 0, 5)
	if s.SettleTransaction(tx.ID, later) {
		t.Error("second settle reported a change")
	}
	if !s.Transactions[0].SettledAt.Equal(first) {
		t.Errorf("settledAt = %v, want original %v", s.Transactions[0].SettledAt, first)
	}
}

func TestAddTransactionDefaults(t *testing.T) {
	s := NewStore(&recordingPusher{})
	tx := s.AddTransaction(TransactionInput{
		Desc:   "Salary",
		Amount: decimal.NewFromInt(1000),
		Type:   models.TxIncome,
	})

	if tx.ID == "" {
		t.Error("id not assigned")
	}
	if tx.Status != models.TxPending {
		t.Errorf("status = %q, want pending", tx.Status)
	}
	if tx.Date.IsZero() {
		t.Error("date not defaulted")
	}
}

func TestSetBudgetLimitUpserts(t *testing.T) {
	s := NewStore(&recordingPusher{})

	s.SetBudgetLimit("Food", decimal.NewFromInt(300))
	s.SetBudgetLimit("Travel", decimal.NewFromInt(100))
	s.SetBudgetLimit("Food", decimal.NewFromInt(450))

	if len(s.BudgetLimits) != 2 {
		t.Fatalf("limits = %d, want 2", len(s.BudgetLimits))
	}
	if !s.BudgetLimits[0].Limit.Equal(decimal.NewFromInt(450)) {
		t.Errorf("food limit = %s, want 450", s.BudgetLimits[0].Limit)
	}
}

func TestClearAllPushesEveryContentField(t *testing.T) {
	pusher := &recordingPusher{}
	s := NewStore(pusher)
	s.AddHabit(HabitInput{Name: "Read", Category: "Mind"})
	s.UpsertMonthlyGoals("January", []models.GoalItem{{Text: "x"}})

	before := len(pusher.fields)
	s.ClearAll()

	if len(s.Habits) != 0 || len(s.MonthlyGoals) != 0 {
		t.Error("content slices not cleared")
	}

	pushedAfter := pusher.fields[before:]
	want := map[string]bool{
		models.FieldHabits:           true,
		models.FieldMonthlyGoals:     true,
		models.FieldWeeklyGoals:      true,
		models.FieldAnnualCategories: true,
	}
	if len(pushedAfter) != len(want) {
		t.Fatalf("pushes = %d, want %d", len(pushedAfter), len(want))
	}
	for _, f := range pushedAfter {
		if !want[f] {
			t.Errorf("unexpected field pushed: %q", f)
		}
	}
}
