package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nextyou21/planner-backend/middleware"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/state"
	"github.com/nextyou21/planner-backend/syncengine"
)

// GetPlanner returns the full session view: gate, account fields, every
// content slice and the reconciled tab order.
func GetPlanner(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.JSON(http.StatusOK, engines.ForUser(user).View())
	}
}

// ---- habits ----

type habitRequest struct {
	Name         string   `json:"name" validate:"required"`
	Emoji        string   `json:"emoji"`
	Category     string   `json:"category" validate:"required"`
	Difficulty   string   `json:"difficulty"`
	Goal         int      `json:"goal"`
	Frequency    string   `json:"frequency"`
	ActiveMonths []string `json:"active_months"`
}

func CreateHabit(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req habitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := middleware.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var habit models.Habit
		engines.ForUser(user).WithState(func(s *state.Store) {
			habit = s.AddHabit(state.HabitInput{
				Name:         req.Name,
				Emoji:        req.Emoji,
				Category:     req.Category,
				Difficulty:   req.Difficulty,
				Goal:         req.Goal,
				Frequency:    req.Frequency,
				ActiveMonths: req.ActiveMonths,
			})
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusCreated, habit)
	}
}

func UpdateHabit(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var patch state.HabitPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.UpdateHabit(c.Param("id"), patch)
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Habit not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Habit updated"})
	}
}

func DeleteHabit(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.DeleteHabit(c.Param("id"))
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Habit not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Habit deleted"})
	}
}

type toggleDayRequest struct {
	Month string `json:"month" validate:"required"`
	Day   int    `json:"day" validate:"required,min=1,max=31"`
}

func ToggleHabitDay(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req toggleDayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := middleware.ValidateStruct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.ToggleHabitDay(c.Param("id"), req.Month, req.Day)
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Habit not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Day toggled"})
	}
}

// ---- monthly goals ----

type monthlyGoalsRequest struct {
	Goals []models.GoalItem `json:"goals"`
}

func PutMonthlyGoals(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req monthlyGoalsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.UpsertMonthlyGoals(c.Param("month"), req.Goals)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Monthly goals saved"})
	}
}

func AddMonthlyGoalContainer(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.AddMonthlyGoalContainer(c.Param("month"))
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusCreated, gin.H{"message": "Month added"})
	}
}

func DeleteMonthlyGoalContainer(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.DeleteMonthlyGoalContainer(c.Param("month"))
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Month removed"})
	}
}

// ---- weekly goals ----

func PutWeeklyGoals(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		week, err := strconv.Atoi(c.Param("week"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid week index"})
			return
		}

		var req monthlyGoalsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.UpsertWeeklyGoals(c.Param("month"), week, req.Goals)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Weekly goals saved"})
	}
}

type toggleWeeklyRequest struct {
	GoalIndex int  `json:"goal_index"`
	Completed bool `json:"completed"`
}

func ToggleWeeklyGoal(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		week, err := strconv.Atoi(c.Param("week"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid week index"})
			return
		}

		var req toggleWeeklyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.ToggleWeeklyGoal(c.Param("month"), week, req.GoalIndex, req.Completed)
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Weekly goal not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Weekly goal updated"})
	}
}

// ---- annual categories ----

type annualCategoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func AddAnnualCategory(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req annualCategoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.AddAnnualCategory(req.Name, req.Icon)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusCreated, gin.H{"message": "Category added"})
	}
}

func UpdateAnnualCategory(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category index"})
			return
		}

		var patch state.AnnualCategoryPatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.UpdateAnnualCategory(index, patch)
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Category updated"})
	}
}

func DeleteAnnualCategory(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		index, err := strconv.Atoi(c.Param("index"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category index"})
			return
		}

		found := false
		engines.ForUser(user).WithState(func(s *state.Store) {
			found = s.DeleteAnnualCategory(index)
		})
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
	}
}

// ---- config and tabs ----

func UpdateConfig(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var cfg models.PlannerConfig
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.UpdateConfig(cfg)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Config saved"})
	}
}

type tabOrderRequest struct {
	Tabs []string `json:"tabs" validate:"required"`
}

func SetTabOrder(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req tabOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.SetTabOrder(req.Tabs)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Tab order saved"})
	}
}

type dragRequest struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// DragTab applies a reorder permutation to the current display list and
// commits it in one step (the release of a drag).
func DragTab(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req dragRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		eng := engines.ForUser(user)
		var tabs []string
		eng.WithState(func(s *state.Store) {
			available := state.AvailableTabs(s.Config, user.Role == models.RoleAdmin)
			current := state.ReconcileTabOrder(available, s.Config.TabOrder)
			tabs = state.ApplyDrag(current, req.Source, req.Target)
			s.SetTabOrder(tabs)
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"tabs": tabs})
	}
}

type manifestationRequest struct {
	Text string `json:"text"`
}

func SetManifestation(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		var req manifestationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		engines.ForUser(user).SetManifestationText(req.Text)
		c.JSON(http.StatusOK, gin.H{"message": "Saved"})
	}
}

// ClearPlanner wipes habits and goal boards in one shot.
func ClearPlanner(engines *syncengine.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		engines.ForUser(user).WithState(func(s *state.Store) {
			s.ClearAll()
		})

		middleware.InvalidateUserCache(user.ID)
		c.JSON(http.StatusOK, gin.H{"message": "Planner cleared"})
	}
}
