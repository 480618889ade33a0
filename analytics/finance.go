package analytics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nextyou21/planner-backend/models"
	"github.com/shopspring/decimal"
)

// TimeFilter selects transactions by calendar year and, when Month is set,
// by month name within that year.
type TimeFilter struct {
	Year  int
	Month string
}

func (f TimeFilter) yearly() bool { return f.Month == "" }

func (f TimeFilter) matches(t models.Transaction) bool {
	if t.Date.Year() != f.Year {
		return false
	}
	return f.yearly() || models.MonthsList[int(t.Date.Month())-1] == f.Month
}

type TrendPoint struct {
	Label   string          `json:"label"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

type EntityBalance struct {
	Name     string          `json:"name"`
	Borrowed decimal.Decimal `json:"borrowed"`
	Lent     decimal.Decimal `json:"lent"`
	Net      decimal.Decimal `json:"net"`
}

type FinanceStats struct {
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	ActiveBorrow decimal.Decimal `json:"active_borrow"`
	ActiveLend   decimal.Decimal `json:"active_lend"`
	NetLiquidity decimal.Decimal `json:"net_liquidity"`
	SavingsRate  int             `json:"savings_rate"`
	Trend        []TrendPoint    `json:"trend"`
	Entities     []EntityBalance `json:"entities"`
}

func active(t models.Transaction) bool {
	return t.Status != models.TxSettled
}

// inflow/outflow classification used by the trend series: active borrows
// count as money in, active lends as money out.
func isInflow(t models.Transaction) bool {
	return t.Type == models.TxIncome || (t.Type == models.TxBorrow && active(t))
}

func isOutflow(t models.Transaction) bool {
	return t.Type == models.TxExpense || (t.Type == models.TxLend && active(t))
}

// ComputeFinanceStats aggregates the transaction list for one time filter.
// netLiquidity = (income + active borrow) − (expense + active lend), exactly.
func ComputeFinanceStats(transactions []models.Transaction, filter TimeFilter) FinanceStats {
	stats := FinanceStats{
		Income:       decimal.Zero,
		Expense:      decimal.Zero,
		ActiveBorrow: decimal.Zero,
		ActiveLend:   decimal.Zero,
	}

	var filtered []models.Transaction
	for _, t := range transactions {
		if !filter.matches(t) {
			continue
		}
		filtered = append(filtered, t)

		switch {
		case t.Type == models.TxIncome:
			stats.Income = stats.Income.Add(t.Amount)
		case t.Type == models.TxExpense:
			stats.Expense = stats.Expense.Add(t.Amount)
		case t.Type == models.TxBorrow && active(t):
			stats.ActiveBorrow = stats.ActiveBorrow.Add(t.Amount)
		case t.Type == models.TxLend && active(t):
			stats.ActiveLend = stats.ActiveLend.Add(t.Amount)
		}
	}

	stats.NetLiquidity = stats.Income.Add(stats.ActiveBorrow).
		Sub(stats.Expense.Add(stats.ActiveLend))

	if stats.Income.IsPositive() {
		rate := stats.Income.Sub(stats.Expense).
			Div(stats.Income).
			Mul(decimal.NewFromInt(100)).
			Round(0)
		stats.SavingsRate = int(rate.IntPart())
	}

	if filter.yearly() {
		stats.Trend = yearlyTrend(transactions, filter.Year)
	} else {
		stats.Trend = monthlyTrend(filtered, filter)
	}

	stats.Entities = entityLedger(filtered)
	return stats
}

// yearlyTrend emits one point per calendar month with a running balance
// carried forward within the selected year only.
func yearlyTrend(transactions []models.Transaction, year int) []TrendPoint {
	points := make([]TrendPoint, 0, len(models.MonthsList))
	balance := decimal.Zero

	for idx, month := range models.MonthsList {
		income := decimal.Zero
		expense := decimal.Zero
		for _, t := range transactions {
			if t.Date.Year() != year || int(t.Date.Month())-1 != idx {
				continue
			}
			if isInflow(t) {
				income = income.Add(t.Amount)
			} else if isOutflow(t) {
				expense = expense.Add(t.Amount)
			}
		}

		balance = balance.Add(income.Sub(expense))
		points = append(points, TrendPoint{
			Label:   month[:3],
			Income:  income,
			Expense: expense,
			Balance: balance,
		})
	}
	return points
}

// monthlyTrend emits one non-cumulative point per day of the selected month.
func monthlyTrend(filtered []models.Transaction, filter TimeFilter) []TrendPoint {
	monthIdx := models.MonthIndex(filter.Month)
	if monthIdx < 0 {
		return nil
	}
	days := daysInMonth(filter.Year, monthIdx)

	points := make([]TrendPoint, 0, days)
	for day := 1; day <= days; day++ {
		income := decimal.Zero
		expense := decimal.Zero
		for _, t := range filtered {
			if t.Date.Day() != day {
				continue
			}
			if isInflow(t) {
				income = income.Add(t.Amount)
			} else if isOutflow(t) {
				expense = expense.Add(t.Amount)
			}
		}
		points = append(points, TrendPoint{
			Label:   strconv.Itoa(day),
			Income:  income,
			Expense: expense,
			Balance: decimal.Zero,
		})
	}
	return points
}

// entityLedger groups unsettled borrow/lend transactions by the counterparty
// name: the trimmed substring of desc before the first ':'. Net is
// lent − borrowed; groups are ordered by descending absolute net.
func entityLedger(filtered []models.Transaction) []EntityBalance {
	byName := map[string]*EntityBalance{}
	order := []string{}

	for _, t := range filtered {
		if (t.Type != models.TxBorrow && t.Type != models.TxLend) || !active(t) {
			continue
		}

		name := strings.TrimSpace(strings.SplitN(t.Desc, ":", 2)[0])
		entity, ok := byName[name]
		if !ok {
			entity = &EntityBalance{
				Name:     name,
				Borrowed: decimal.Zero,
				Lent:     decimal.Zero,
			}
			byName[name] = entity
			order = append(order, name)
		}

		if t.Type == models.TxBorrow {
			entity.Borrowed = entity.Borrowed.Add(t.Amount)
		} else {
			entity.Lent = entity.Lent.Add(t.Amount)
		}
		entity.Net = entity.Lent.Sub(entity.Borrowed)
	}

	entities := make([]EntityBalance, 0, len(order))
	for _, name := range order {
		entities = append(entities, *byName[name])
	}
	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].Net.Abs().GreaterThan(entities[j].Net.Abs())
	})
	return entities
}

type BudgetStatus struct {
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
	Spent    decimal.Decimal `json:"spent"`
	Percent  int             `json:"percent"`
	Over     bool            `json:"over"`
}

// BudgetConsumption reports per-category expense against configured limits
// inside the active time filter. A zero limit yields percent 0, never a
// division error.
func BudgetConsumption(transactions []models.Transaction, limits []models.BudgetLimit, filter TimeFilter) []BudgetStatus {
	out := make([]BudgetStatus, 0, len(limits))
	for _, limit := range limits {
		spent := decimal.Zero
		for _, t := range transactions {
			if t.Type == models.TxExpense && t.Category == limit.Category && filter.matches(t) {
				spent = spent.Add(t.Amount)
			}
		}

		percent := 0
		if limit.Limit.IsPositive() {
			percent = int(spent.Div(limit.Limit).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
		}

		out = append(out, BudgetStatus{
			Category: limit.Category,
			Limit:    limit.Limit,
			Spent:    spent,
			Percent:  percent,
			Over:     limit.Limit.IsPositive() && spent.GreaterThan(limit.Limit),
		})
	}
	return out
}

func daysInMonth(year, monthIdx int) int {
	return time.Date(year, time.Month(monthIdx+2), 0, 0, 0, 0, 0, time.UTC).Day()
}
