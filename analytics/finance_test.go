package analytics

import (
	"testing"
	"time"

	"github.com/nextyou21/planner-backend/models"
	"github.com/shopspring/decimal"
)

func tx(desc, txType string, amount int64, date time.Time) models.Transaction {
	return models.Transaction{
		ID:     desc + txType,
		Desc:   desc,
		Type:   txType,
		Amount: decimal.NewFromInt(amount),
		Date:   date,
		Status: models.TxPending,
	}
}

func settled(t models.Transaction) models.Transaction {
	now := t.Date.AddDate(0, 0, 1)
	t.Status = models.TxSettled
	t.SettledAt = &now
	return t
}

func TestNetLiquidityIdentity(t *testing.T) {
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Salary", models.TxIncome, 5000, date),
		tx("Rent", models.TxExpense, 1500, date),
		tx("Rahul: Loan", models.TxBorrow, 800, date),
		tx("Maya: Loan", models.TxLend, 300, date),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026})

	// (income + active borrow) - (expense + active lend)
	want := decimal.NewFromInt(5000 + 800 - 1500 - 300)
	if !stats.NetLiquidity.Equal(want) {
		t.Errorf("net liquidity = %s, want %s", stats.NetLiquidity, want)
	}
}

func TestSettledBorrowLendExcluded(t *testing.T) {
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Salary", models.TxIncome, 1000, date),
		settled(tx("Rahul: Loan", models.TxBorrow, 800, date)),
		settled(tx("Maya: Loan", models.TxLend, 300, date)),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026})

	if !stats.ActiveBorrow.IsZero() || !stats.ActiveLend.IsZero() {
		t.Errorf("settled amounts still active: borrow=%s lend=%s", stats.ActiveBorrow, stats.ActiveLend)
	}
	if !stats.NetLiquidity.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("net liquidity = %s, want 1000", stats.NetLiquidity)
	}
	if len(stats.Entities) != 0 {
		t.Errorf("settled transactions produced %d entities, want 0", len(stats.Entities))
	}
}

func TestSavingsRate(t *testing.T) {
	date := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Salary", models.TxIncome, 4000, date),
		tx("Rent", models.TxExpense, 3000, date),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026})
	if stats.SavingsRate != 25 {
		t.Errorf("savings rate = %d, want 25", stats.SavingsRate)
	}
}

func TestSavingsRateZeroIncome(t *testing.T) {
	date := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Rent", models.TxExpense, 3000, date),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026})
	if stats.SavingsRate != 0 {
		t.Errorf("savings rate = %d, want 0 when there is no income", stats.SavingsRate)
	}
}

func TestEntityLedgerGroupsByNameBeforeColon(t *testing.T) {
	date := time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Rahul: Lunch", models.TxLend, 200, date),
		tx("Rahul: Taxi", models.TxLend, 100, date),
		tx("Rahul", models.TxBorrow, 50, date),
		tx("Maya: Books", models.TxBorrow, 500, date),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026})

	if len(stats.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(stats.Entities))
	}

	// Maya has |net| 500, Rahul |net| 250; descending absolute net
	if stats.Entities[0].Name != "Maya" {
		t.Errorf("first entity = %q, want Maya", stats.Entities[0].Name)
	}

	rahul := stats.Entities[1]
	if rahul.Name != "Rahul" {
		t.Fatalf("second entity = %q, want Rahul", rahul.Name)
	}
	if !rahul.Lent.Equal(decimal.NewFromInt(300)) {
		t.Errorf("rahul lent = %s, want 300", rahul.Lent)
	}
	if !rahul.Net.Equal(decimal.NewFromInt(250)) {
		t.Errorf("rahul net = %s, want 250 (lent - borrowed)", rahul.Net)
	}
}

func TestYearlyTrendCumulativeWithinYear(t *testing.T) {
	jan := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC)
	prevYear := time.Date(2025, time.December, 5, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Salary", models.TxIncome, 1000, jan),
		tx("Rent", models.TxExpense, 400, feb),
		tx("Old salary", models.TxIncome, 9999, prevYear),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026})

	if len(stats.Trend) != 12 {
		t.Fatalf("trend points = %d, want 12", len(stats.Trend))
	}
	if stats.Trend[0].Label != "Jan" {
		t.Errorf("label = %q, want Jan", stats.Trend[0].Label)
	}
	if !stats.Trend[0].Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("jan balance = %s, want 1000", stats.Trend[0].Balance)
	}
	// balance carries forward within the year only
	if !stats.Trend[1].Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("feb balance = %s, want 600", stats.Trend[1].Balance)
	}
	if !stats.Trend[11].Balance.Equal(decimal.NewFromInt(600)) {
		t.Errorf("dec balance = %s, want 600", stats.Trend[11].Balance)
	}
}

func TestMonthlyTrendDailyNonCumulative(t *testing.T) {
	d3 := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		tx("Salary", models.TxIncome, 100, d3),
	}

	stats := ComputeFinanceStats(txns, TimeFilter{Year: 2026, Month: "February"})

	// 2026 February has 28 days
	if len(stats.Trend) != 28 {
		t.Fatalf("trend points = %d, want 28", len(stats.Trend))
	}
	if stats.Trend[2].Label != "3" {
		t.Errorf("label = %q, want 3", stats.Trend[2].Label)
	}
	if !stats.Trend[2].Income.Equal(decimal.NewFromInt(100)) {
		t.Errorf("day 3 income = %s, want 100", stats.Trend[2].Income)
	}
	if !stats.Trend[2].Balance.IsZero() {
		t.Errorf("daily balance = %s, want 0 (non-cumulative)", stats.Trend[2].Balance)
	}
}

func TestBudgetConsumptionZeroLimit(t *testing.T) {
	date := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: "t1", Type: models.TxExpense, Category: "Food", Amount: decimal.NewFromInt(250), Date: date},
	}
	limits := []models.BudgetLimit{
		{Category: "Food", Limit: decimal.Zero},
		{Category: "Travel", Limit: decimal.NewFromInt(100)},
	}

	out := BudgetConsumption(txns, limits, TimeFilter{Year: 2026})

	if out[0].Percent != 0 {
		t.Errorf("zero-limit percent = %d, want 0", out[0].Percent)
	}
	if out[0].Over {
		t.Error("zero-limit category flagged over")
	}
	if out[1].Percent != 0 || out[1].Over {
		t.Errorf("travel = %+v, want no spend", out[1])
	}
}

func TestBudgetConsumptionOverLimit(t *testing.T) {
	date := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: "t1", Type: models.TxExpense, Category: "Food", Amount: decimal.NewFromInt(150), Date: date},
	}
	limits := []models.BudgetLimit{
		{Category: "Food", Limit: decimal.NewFromInt(100)},
	}

	out := BudgetConsumption(txns, limits, TimeFilter{Year: 2026})

	if out[0].Percent != 150 {
		t.Errorf("percent = %d, want 150", out[0].Percent)
	}
	if !out[0].Over {
		t.Error("expected over flag")
	}
}
