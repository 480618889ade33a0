package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/analytics"
	"github.com/nextyou21/planner-backend/middleware"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/state"
	"github.com/nextyou21/planner-backend/syncengine"
	"github.com/shopspring/decimal"
)

// timeFilterFromQuery reads ?year= and ?month= into an analytics filter.
// Month empty means the whole year.
func timeFilterFromQuery(c *gin.Context) (analytics.TimeFilter, bool) {
	filter := analytics.TimeFilter{Year: time.Now().Year()}

	if y := c.Query("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return filter, false
		}
		filter.Year = year
	}

	if m := c.Query("month"); m != "" {
		if models.MonthIndex(m) < 0 {
			return filter, false
		}
		filter.Month = m
	}

	return filter, true
}

type transactionRequest struct {
	Desc     string          `json:"desc" validate:"required"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
	Type     string          `json:"type" validate:"required,oneof=income expense borrow lend"`
	Category string          `json:"category"`
	Date     *time.Time      `json:"date"`
}

func CreateTransaction(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req transactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := middleware.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := state.TransactionInput{
			Desc:     req.Desc,
			Amount:   req.Amount,
			Type:     req.Type,
			Category: req.Category,
		}
		if req.Date != nil {
			in.Date = *req.Date
		}

		var tx models.Transaction
		engines.ForUser(user).WithState(func(s *state.Store) {
			tx = s.AddTransaction(in)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusCreated, tx)
	}
}

func UpdateTransaction(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var patch state.TransactionPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.UpdateTransaction(c.Param("id"), patch)
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Transaction updated"})
	}
}

// SettleTransaction closes out a borrow/lend. Settling twice is a no-op and
// the original settlement time is kept.
func SettleTransaction(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		settled := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			settled = s.SettleTransaction(c.Param("id"), time.Now())
		})
		if !settled {
			c.JSON(http.StatusOK, gin.H{"message": "Already settled or not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Transaction settled"})
	}
}

func DeleteTransaction(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.DeleteTransaction(c.Param("id"))
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Transaction deleted"})
	}
}

type budgetRequest struct {
	Category string          `json:"category" validate:"required"`
	Limit    decimal.Decimal `json:"limit"`
}

func SetBudgetLimit(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req budgetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := middleware.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.SetBudgetLimit(req.Category, req.Limit)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Budget limit saved"})
	}
}

// FinanceDashboard aggregates stats, trend, entity ledger and budget
// consumption for the requested time filter.
func FinanceDashboard(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		filter, valid := timeFilterFromQuery(c)
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year or month"})
			return
		}

		var txns []models.Transaction
		var limits []models.BudgetLimit
		engines.ForUser(user).WithState(func(s *state.Store) {
			txns = s.Transactions
			limits = s.BudgetLimits
		})

		c.JSON(http.StatusOK, gin.H{
			"stats":   analytics.ComputeFinanceStats(txns, filter),
			"budgets": analytics.BudgetConsumption(txns, limits, filter),
		})
	}
}
