package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/analytics"
	"github.com/nextyou21/planner-backend/middleware"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/state"
	"github.com/nextyou21/planner-backend/syncengine"
)

// HabitAnalytics returns the performance dashboard for one scope: a month
// name or "Year".
func HabitAnalytics(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		scope := c.DefaultQuery("scope", analytics.YearScope)
		if scope != analytics.YearScope && models.MonthIndex(scope) < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid scope"})
			return
		}

		var habits []models.Habit
		engines.ForUser(user).WithState(func(s *state.Store) {
			habits = s.Habits
		})

		c.JSON(http.StatusOK, gin.H{
			"performance": analytics.CompletionRate(habits, scope),
			"activity":    analytics.WeeklyActivity(habits, scope),
			"balance":     analytics.CategoryBalance(habits),
		})
	}
}

func AnnualProgress(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var categories []models.AnnualCategory
		engines.ForUser(user).WithState(func(s *state.Store) {
			categories = s.AnnualCategories
		})

		c.JSON(http.StatusOK, analytics.AnnualGoalsProgress(categories))
	}
}

// TrialStatus reports progress through the complimentary-access window,
// anchored on the planner document's creation time.
func TrialStatus(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		view := engines.ForUser(user).View()
		c.JSON(http.StatusOK, analytics.ComputeTrialWindow(view.CreatedAt, time.Now()))
	}
}
