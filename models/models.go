package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account status values stored on the planner document.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusBlocked  = "blocked"
)

// Transaction types and settlement states.
const (
	TxIncome  = "income"
	TxExpense = "expense"
	TxBorrow  = "borrow"
	TxLend    = "lend"

	TxPending = "pending"
	TxSettled = "settled"
)

// Fixed habit categories used by the balance radar.
var HabitCategories = []string{"Mind", "Body", "Spirit", "Work"}

var MonthsList = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthIndex returns the zero-based index of a month name, or -1.
func MonthIndex(month string) int {
	for i, m := range MonthsList {
		if m == month {
			return i
		}
	}
	return -1
}

// Field names of the independently synced planner document slices.
const (
	FieldHabits           = "habits"
	FieldMonthlyGoals     = "monthly_goals"
	FieldWeeklyGoals      = "weekly_goals"
	FieldAnnualCategories = "annual_categories"
	FieldTransactions     = "transactions"
	FieldBudgetLimits     = "budget_limits"
	FieldConfig           = "config"
	FieldStatus           = "status"
	FieldValidUntil       = "valid_until"
	FieldApprovedAt       = "approved_at"
	FieldIsPaid           = "is_paid"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"unique" json:"email"`
	FullName     string    `json:"full_name"`
	Contact      string    `json:"contact"`
	PasswordHash string    `json:"-"`
	Role         string    `gorm:"default:user" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type GoalItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

type Habit struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Emoji        string                  `json:"emoji,omitempty"`
	Category     string                  `json:"category"`
	Difficulty   string                  `json:"difficulty"`
	Goal         int                     `json:"goal"`
	Frequency    string                  `json:"frequency"`
	Completed    bool                    `json:"completed"`
	ActiveMonths []string                `json:"active_months"`
	History      map[string]map[int]bool `json:"history"`
}

type MonthlyGoalSet struct {
	Month string     `json:"month"`
	Goals []GoalItem `json:"goals"`
}

type WeeklyGoalSet struct {
	Month     string     `json:"month"`
	WeekIndex int        `json:"week_index"`
	Goals     []GoalItem `json:"goals"`
}

type AnnualCategory struct {
	Name  string     `json:"name"`
	Icon  string     `json:"icon,omitempty"`
	Goals []GoalItem `json:"goals"`
}

type Transaction struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Desc      string          `json:"desc"`
	Amount    decimal.Decimal `json:"amount"`
	Type      string          `json:"type"`
	Category  string          `json:"category"`
	Status    string          `json:"status"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}

type BudgetLimit struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

type PlannerConfig struct {
	Year              string   `json:"year"`
	ShowVisionBoard   bool     `json:"show_vision_board"`
	ActiveMonths      []string `json:"active_months"`
	ManifestationText string   `json:"manifestation_text"`
	TabOrder          []string `json:"tab_order"`
}

// PlannerDocument is the single per-user record. The slice fields are
// persisted as jsonb columns so a write to one slice does not touch the rest.
type PlannerDocument struct {
	UserID           uint               `gorm:"primaryKey" json:"user_id"`
	Status           string             `gorm:"default:pending" json:"status"`
	ValidUntil       *time.Time         `json:"valid_until"`
	ApprovedAt       *time.Time         `json:"approved_at"`
	IsPaid           bool               `gorm:"default:false" json:"is_paid"`
	Habits           HabitList          `gorm:"type:jsonb" json:"habits"`
	MonthlyGoals     MonthlyGoalList    `gorm:"type:jsonb" json:"monthly_goals"`
	WeeklyGoals      WeeklyGoalList     `gorm:"type:jsonb" json:"weekly_goals"`
	AnnualCategories AnnualCategoryList `gorm:"type:jsonb" json:"annual_categories"`
	Transactions     TransactionList    `gorm:"type:jsonb" json:"transactions"`
	BudgetLimits     BudgetLimitList    `gorm:"type:jsonb" json:"budget_limits"`
	Config           ConfigColumn       `gorm:"type:jsonb" json:"config"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type Coupon struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"unique" json:"code"`
	Discount  int       `json:"discount"`
	Active    bool      `gorm:"default:true" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// jsonb column wrappers

type HabitList []Habit
type MonthlyGoalList []MonthlyGoalSet
type WeeklyGoalList []WeeklyGoalSet
type AnnualCategoryList []AnnualCategory
type TransactionList []Transaction
type BudgetLimitList []BudgetLimit
type ConfigColumn PlannerConfig

func jsonValue(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func jsonScan(src, dest interface{}) error {
	if src == nil {
		return nil
	}
	switch s := src.(type) {
	case []byte:
		return json.Unmarshal(s, dest)
	case string:
		return json.Unmarshal([]byte(s), dest)
	default:
		return errors.New("unsupported jsonb source type")
	}
}

func (l HabitList) Value() (driver.Value, error)  { return jsonValue(l) }
func (l *HabitList) Scan(src interface{}) error   { return jsonScan(src, l) }
func (l MonthlyGoalList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *MonthlyGoalList) Scan(src interface{}) error  { return jsonScan(src, l) }
func (l WeeklyGoalList) Value() (driver.Value, error)  { return jsonValue(l) }
func (l *WeeklyGoalList) Scan(src interface{}) error   { return jsonScan(src, l) }
func (l AnnualCategoryList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *AnnualCategoryList) Scan(src interface{}) error  { return jsonScan(src, l) }
func (l TransactionList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *TransactionList) Scan(src interface{}) error  { return jsonScan(src, l) }
func (l BudgetLimitList) Value() (driver.Value, error) { return jsonValue(l) }
func (l *BudgetLimitList) Scan(src interface{}) error  { return jsonScan(src, l) }
func (c ConfigColumn) Value() (driver.Value, error) { return jsonValue(c) }
func (c *ConfigColumn) Scan(src interface{}) error  { return jsonScan(src, c) }
