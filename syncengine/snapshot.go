package syncengine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nextyou21/planner-backend/models"
)

// Snapshot is the decoded wire shape of one document read. Nil slices mean
// the field was absent from the payload; appliers default each field
// independently instead of trusting the wire shape blindly.
type Snapshot struct {
	Status           string                  `json:"status"`
	ValidUntil       *time.Time              `json:"valid_until"`
	ApprovedAt       *time.Time              `json:"approved_at"`
	IsPaid           bool                    `json:"is_paid"`
	CreatedAt        time.Time               `json:"created_at"`
	Habits           []models.Habit          `json:"habits"`
	MonthlyGoals     []models.MonthlyGoalSet `json:"monthly_goals"`
	WeeklyGoals      []models.WeeklyGoalSet  `json:"weekly_goals"`
	AnnualCategories []models.AnnualCategory `json:"annual_categories"`
	Transactions     []models.Transaction    `json:"transactions"`
	BudgetLimits     []models.BudgetLimit    `json:"budget_limits"`
	Config           *models.PlannerConfig   `json:"config"`
}

func decodeSnapshot(raw json.RawMessage) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("snapshot decode failed: %w", err)
	}
	if snap.Status == "" {
		snap.Status = models.StatusPending
	}
	return &snap, nil
}

// legacy tab id removed from any persisted order it still appears in
const legacyArchitectureTab = "Architecture"

func stripLegacyTabs(order []string) []string {
	out := make([]string, 0, len(order))
	for _, t := range order {
		if t != legacyArchitectureTab {
			out = append(out, t)
		}
	}
	return out
}
