package state

import (
	"time"

	"github.com/google/uuid"
	"github.com/nextyou21/planner-backend/models"
	"github.com/shopspring/decimal"
)

// Pusher receives the new slice value for one document field. The store has
// already applied the value locally when Push is called; the push keeps the
// remote document convergent.
type Pusher interface {
	Push(field string, value interface{})
}

// Store mirrors one user's planner document as independently-addressable
// slices. Every mutation computes the new slice value immutably, swaps it in,
// and hands the same value to the pusher keyed by the slice's field name.
// Not safe for concurrent use; the owning session serializes access.
type Store struct {
	Habits           []models.Habit
	MonthlyGoals     []models.MonthlyGoalSet
	WeeklyGoals      []models.WeeklyGoalSet
	AnnualCategories []models.AnnualCategory
	Transactions     []models.Transaction
	BudgetLimits     []models.BudgetLimit
	Config           models.PlannerConfig

	pusher Pusher
}

func NewStore(pusher Pusher) *Store {
	return &Store{
		Config: models.PlannerConfig{
			Year:            "2026",
			ShowVisionBoard: true,
			ActiveMonths:    []string{"January"},
			TabOrder:        []string{TabSetup, TabAnnualGoals, "January"},
		},
		pusher: pusher,
	}
}

func (s *Store) push(field string, value interface{}) {
	if s.pusher != nil {
		s.pusher.Push(field, value)
	}
}

// ---- habits ----

type HabitInput struct {
	Name         string
	Emoji        string
	Category     string
	Difficulty   string
	Goal         int
	Frequency    string
	ActiveMonths []string
}

func (s *Store) AddHabit(in HabitInput) models.Habit {
	habit := models.Habit{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Emoji:        in.Emoji,
		Category:     in.Category,
		Difficulty:   in.Difficulty,
		Goal:         in.Goal,
		Frequency:    in.Frequency,
		ActiveMonths: in.ActiveMonths,
		History:      map[string]map[int]bool{},
	}

	next := make([]models.Habit, 0, len(s.Habits)+1)
	next = append(next, s.Habits...)
	next = append(next, habit)

	s.Habits = next
	s.push(models.FieldHabits, models.HabitList(next))
	return habit
}

type HabitPatch struct {
	Name         *string   `json:"name"`
	Emoji        *string   `json:"emoji"`
	Category     *string   `json:"category"`
	Difficulty   *string   `json:"difficulty"`
	Goal         *int      `json:"goal"`
	Frequency    *string   `json:"frequency"`
	Completed    *bool     `json:"completed"`
	ActiveMonths *[]string `json:"active_months"`
}

func (s *Store) UpdateHabit(id string, patch HabitPatch) bool {
	found := false
	next := make([]models.Habit, len(s.Habits))
	for i, h := range s.Habits {
		if h.ID == id {
			found = true
			if patch.Name != nil {
				h.Name = *patch.Name
			}
			if patch.Emoji != nil {
				h.Emoji = *patch.Emoji
			}
			if patch.Category != nil {
				h.Category = *patch.Category
			}
			if patch.Difficulty != nil {
				h.Difficulty = *patch.Difficulty
			}
			if patch.Goal != nil {
				h.Goal = *patch.Goal
			}
			if patch.Frequency != nil {
				h.Frequency = *patch.Frequency
			}
			if patch.Completed != nil {
				h.Completed = *patch.Completed
			}
			if patch.ActiveMonths != nil {
				h.ActiveMonths = *patch.ActiveMonths
			}
		}
		next[i] = h
	}
	if !found {
		return false
	}

	s.Habits = next
	s.push(models.FieldHabits, models.HabitList(next))
	return true
}

func (s *Store) DeleteHabit(id string) bool {
	next := make([]models.Habit, 0, len(s.Habits))
	found := false
	for _, h := range s.Habits {
		if h.ID == id {
			found = true
			continue
		}
		next = append(next, h)
	}
	if !found {
		return false
	}

	s.Habits = next
	s.push(models.FieldHabits, models.HabitList(next))
	return true
}

// ToggleHabitDay flips one day cell in the habit's history for the given
// month. Only that month's map is rebuilt; history for other months is
// carried over untouched.
func (s *Store) ToggleHabitDay(id, month string, day int) bool {
	found := false
	next := make([]models.Habit, len(s.Habits))
	for i, h := range s.Habits {
		if h.ID == id {
			found = true

			monthHist := map[int]bool{}
			for d, v := range h.History[month] {
				monthHist[d] = v
			}
			monthHist[day] = !monthHist[day]

			history := map[string]map[int]bool{}
			for m, hist := range h.History {
				history[m] = hist
			}
			history[month] = monthHist
			h.History = history
		}
		next[i] = h
	}
	if !found {
		return false
	}

	s.Habits = next
	s.push(models.FieldHabits, models.HabitList(next))
	return true
}

// ---- monthly goals ----

// UpsertMonthlyGoals replaces the goal list for a month, appending a new
// container when the month is not present yet.
func (s *Store) UpsertMonthlyGoals(month string, goals []models.GoalItem) {
	exists := false
	for _, m := range s.MonthlyGoals {
		if m.Month == month {
			exists = true
			break
		}
	}

	var next []models.MonthlyGoalSet
	if exists {
		next = make([]models.MonthlyGoalSet, len(s.MonthlyGoals))
		for i, m := range s.MonthlyGoals {
			if m.Month == month {
				m.Goals = goals
			}
			next[i] = m
		}
	} else {
		next = make([]models.MonthlyGoalSet, 0, len(s.MonthlyGoals)+1)
		next = append(next, s.MonthlyGoals...)
		next = append(next, models.MonthlyGoalSet{Month: month, Goals: goals})
	}

	s.MonthlyGoals = next
	s.push(models.FieldMonthlyGoals, models.MonthlyGoalList(next))
}

func (s *Store) AddMonthlyGoalContainer(month string) {
	next := make([]models.MonthlyGoalSet, 0, len(s.MonthlyGoals)+1)
	next = append(next, s.MonthlyGoals...)
	next = append(next, models.MonthlyGoalSet{Month: month, Goals: []models.GoalItem{}})

	s.MonthlyGoals = next
	s.push(models.FieldMonthlyGoals, models.MonthlyGoalList(next))
}

func (s *Store) DeleteMonthlyGoalContainer(month string) {
	next := make([]models.MonthlyGoalSet, 0, len(s.MonthlyGoals))
	for _, m := range s.MonthlyGoals {
		if m.Month != month {
			next = append(next, m)
		}
	}

	s.MonthlyGoals = next
	s.push(models.FieldMonthlyGoals, models.MonthlyGoalList(next))
}

// ---- weekly goals ----

// UpsertWeeklyGoals updates the goal list keyed by (month, weekIndex),
// appending a new set when the key is absent.
func (s *Store) UpsertWeeklyGoals(month string, weekIndex int, goals []models.GoalItem) {
	existing := -1
	for i, w := range s.WeeklyGoals {
		if w.Month == month && w.WeekIndex == weekIndex {
			existing = i
			break
		}
	}

	var next []models.WeeklyGoalSet
	if existing > -1 {
		next = make([]models.WeeklyGoalSet, len(s.WeeklyGoals))
		copy(next, s.WeeklyGoals)
		next[existing].Goals = goals
	} else {
		next = make([]models.WeeklyGoalSet, 0, len(s.WeeklyGoals)+1)
		next = append(next, s.WeeklyGoals...)
		next = append(next, models.WeeklyGoalSet{Month: month, WeekIndex: weekIndex, Goals: goals})
	}

	s.WeeklyGoals = next
	s.push(models.FieldWeeklyGoals, models.WeeklyGoalList(next))
}

func (s *Store) ToggleWeeklyGoal(month string, weekIndex, goalIndex int, completed bool) bool {
	for i, w := range s.WeeklyGoals {
		if w.Month != month || w.WeekIndex != weekIndex {
			continue
		}
		if goalIndex < 0 || goalIndex >= len(w.Goals) {
			return false
		}

		goals := make([]models.GoalItem, len(w.Goals))
		copy(goals, w.Goals)
		goals[goalIndex].Completed = completed

		next := make([]models.WeeklyGoalSet, len(s.WeeklyGoals))
		copy(next, s.WeeklyGoals)
		next[i].Goals = goals

		s.WeeklyGoals = next
		s.push(models.FieldWeeklyGoals, models.WeeklyGoalList(next))
		return true
	}
	return false
}

// ---- annual categories (positional identity) ----

func (s *Store) AddAnnualCategory(name, icon string) {
	if name == "" {
		name = "New Category"
	}
	next := make([]models.AnnualCategory, 0, len(s.AnnualCategories)+1)
	next = append(next, s.AnnualCategories...)
	next = append(next, models.AnnualCategory{Name: name, Icon: icon, Goals: []models.GoalItem{}})

	s.AnnualCategories = next
	s.push(models.FieldAnnualCategories, models.AnnualCategoryList(next))
}

type AnnualCategoryPatch struct {
	Name  *string            `json:"name"`
	Icon  *string            `json:"icon"`
	Goals *[]models.GoalItem `json:"goals"`
}

func (s *Store) UpdateAnnualCategory(index int, patch AnnualCategoryPatch) bool {
	if index < 0 || index >= len(s.AnnualCategories) {
		return false
	}

	next := make([]models.AnnualCategory, len(s.AnnualCategories))
	copy(next, s.AnnualCategories)

	cat := next[index]
	if patch.Name != nil {
		cat.Name = *patch.Name
	}
	if patch.Icon != nil {
		cat.Icon = *patch.Icon
	}
	if patch.Goals != nil {
		cat.Goals = *patch.Goals
	}
	next[index] = cat

	s.AnnualCategories = next
	s.push(models.FieldAnnualCategories, models.AnnualCategoryList(next))
	return true
}

func (s *Store) DeleteAnnualCategory(index int) bool {
	if index < 0 || index >= len(s.AnnualCategories) {
		return false
	}

	next := make([]models.AnnualCategory, 0, len(s.AnnualCategories)-1)
	next = append(next, s.AnnualCategories[:index]...)
	next = append(next, s.AnnualCategories[index+1:]...)

	s.AnnualCategories = next
	s.push(models.FieldAnnualCategories, models.AnnualCategoryList(next))
	return true
}

// ---- config ----

func (s *Store) UpdateConfig(cfg models.PlannerConfig) {
	s.Config = cfg
	s.push(models.FieldConfig, models.ConfigColumn(cfg))
}

// SetTabOrder writes the whole display order back; no merge with concurrent
// remote tab-order changes.
func (s *Store) SetTabOrder(tabs []string) {
	cfg := s.Config
	cfg.TabOrder = tabs
	s.Config = cfg
	s.push(models.FieldConfig, models.ConfigColumn(cfg))
}

// ---- transactions ----

type TransactionInput struct {
	Desc     string
	Amount   decimal.Decimal
	Type     string
	Category string
	Date     time.Time
}

func (s *Store) AddTransaction(in TransactionInput) models.Transaction {
	if in.Date.IsZero() {
		in.Date = time.Now()
	}
	tx := models.Transaction{
		ID:       uuid.NewString(),
		Date:     in.Date,
		Desc:     in.Desc,
		Amount:   in.Amount,
		Type:     in.Type,
		Category: in.Category,
		Status:   models.TxPending,
	}

	next := make([]models.Transaction, 0, len(s.Transactions)+1)
	next = append(next, s.Transactions...)
	next = append(next, tx)

	s.Transactions = next
	s.push(models.FieldTransactions, models.TransactionList(next))
	return tx
}

type TransactionPatch struct {
	Desc     *string          `json:"desc"`
	Amount   *decimal.Decimal `json:"amount"`
	Type     *string          `json:"type"`
	Category *string          `json:"category"`
	Date     *time.Time       `json:"date"`
}

func (s *Store) UpdateTransaction(id string, patch TransactionPatch) bool {
	found := false
	next := make([]models.Transaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		if tx.ID == id {
			found = true
			if patch.Desc != nil {
				tx.Desc = *patch.Desc
			}
			if patch.Amount != nil {
				tx.Amount = *patch.Amount
			}
			if patch.Type != nil {
				tx.Type = *patch.Type
			}
			if patch.Category != nil {
				tx.Category = *patch.Category
			}
			if patch.Date != nil {
				tx.Date = *patch.Date
			}
		}
		next[i] = tx
	}
	if !found {
		return false
	}

	s.Transactions = next
	s.push(models.FieldTransactions, models.TransactionList(next))
	return true
}

// SettleTransaction marks a borrow/lend transaction as settled. Settling is
// monotonic: a second call is a no-op and keeps the original settledAt.
func (s *Store) SettleTransaction(id string, now time.Time) bool {
	found := false
	next := make([]models.Transaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		if tx.ID == id && tx.Status != models.TxSettled {
			found = true
			settledAt := now
			tx.Status = models.TxSettled
			tx.SettledAt = &settledAt
		}
		next[i] = tx
	}
	if !found {
		return false
	}

	s.Transactions = next
	s.push(models.FieldTransactions, models.TransactionList(next))
	return true
}

func (s *Store) DeleteTransaction(id string) bool {
	next := make([]models.Transaction, 0, len(s.Transactions))
	found := false
	for _, tx := range s.Transactions {
		if tx.ID == id {
			found = true
			continue
		}
		next = append(next, tx)
	}
	if !found {
		return false
	}

	s.Transactions = next
	s.push(models.FieldTransactions, models.TransactionList(next))
	return true
}

// ---- budget limits ----

// SetBudgetLimit upserts the (category, limit) pair; one limit per category.
func (s *Store) SetBudgetLimit(category string, limit decimal.Decimal) {
	existing := -1
	for i, b := range s.BudgetLimits {
		if b.Category == category {
			existing = i
			break
		}
	}

	var next []models.BudgetLimit
	if existing > -1 {
		next = make([]models.BudgetLimit, len(s.BudgetLimits))
		copy(next, s.BudgetLimits)
		next[existing].Limit = limit
	} else {
		next = make([]models.BudgetLimit, 0, len(s.BudgetLimits)+1)
		next = append(next, s.BudgetLimits...)
		next = append(next, models.BudgetLimit{Category: category, Limit: limit})
	}

	s.BudgetLimits = next
	s.push(models.FieldBudgetLimits, models.BudgetLimitList(next))
}

// ClearAll empties every content slice in one shot (the "clear dummy data"
// action). Account fields are untouched.
func (s *Store) ClearAll() {
	s.Habits = []models.Habit{}
	s.MonthlyGoals = []models.MonthlyGoalSet{}
	s.WeeklyGoals = []models.WeeklyGoalSet{}
	s.AnnualCategories = []models.AnnualCategory{}

	s.push(models.FieldHabits, models.HabitList(s.Habits))
	s.push(models.FieldMonthlyGoals, models.MonthlyGoalList(s.MonthlyGoals))
	s.push(models.FieldWeeklyGoals, models.WeeklyGoalList(s.WeeklyGoals))
	s.push(models.FieldAnnualCategories, models.AnnualCategoryList(s.AnnualCategories))
}
