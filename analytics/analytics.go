package analytics

import (
	"math"
	"strconv"
	"strings"

	"github.com/nextyou21/planner-backend/models"
)

// Everything in this package is a pure function over a state snapshot; it is
// safe to recompute on every change.

// YearScope selects all twelve months instead of a single one.
const YearScope = "Year"

const categoryScoreMax = 150

type PerformanceMetrics struct {
	Rate      int `json:"rate"`
	Completed int `json:"completed"`
	Possible  int `json:"possible"`
}

// CompletionRate computes the habit completion rate for a month scope. The
// denominator is always 31 days per habit per month regardless of actual
// month length; days beyond the month's end count as non-completions. This
// matches the established output and must not be corrected silently.
func CompletionRate(habits []models.Habit, scope string) PerformanceMetrics {
	if len(habits) == 0 {
		return PerformanceMetrics{}
	}

	months := []string{scope}
	if scope == YearScope {
		months = models.MonthsList
	}

	possible := 0
	completed := 0
	for _, habit := range habits {
		for _, month := range months {
			possible += 31
			for _, done := range habit.History[month] {
				if done {
					completed++
				}
			}
		}
	}

	rate := 0
	if possible > 0 {
		rate = roundPct(float64(completed), float64(possible))
	}
	return PerformanceMetrics{Rate: rate, Completed: completed, Possible: possible}
}

type ActivityPoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// WeeklyActivity returns the completion series behind the activity chart:
// one point per month for the year scope, otherwise four seven-day buckets
// of the selected month.
func WeeklyActivity(habits []models.Habit, scope string) []ActivityPoint {
	if scope == YearScope {
		points := make([]ActivityPoint, 0, len(models.MonthsList))
		for _, month := range models.MonthsList {
			count := 0
			for _, habit := range habits {
				for _, done := range habit.History[month] {
					if done {
						count++
					}
				}
			}
			points = append(points, ActivityPoint{
				Label: strings.ToUpper(month[:3]),
				Count: count,
			})
		}
		return points
	}

	points := make([]ActivityPoint, 0, 4)
	for week := 0; week < 4; week++ {
		startDay := week*7 + 1
		endDay := (week + 1) * 7
		count := 0
		for _, habit := range habits {
			history := habit.History[scope]
			for d := startDay; d <= endDay; d++ {
				if history[d] {
					count++
				}
			}
		}
		points = append(points, ActivityPoint{
			Label: "W" + strconv.Itoa(week+1),
			Count: count,
		})
	}
	return points
}

type CategoryScore struct {
	Category string `json:"category"`
	Score    int    `json:"score"`
	FullMark int    `json:"full_mark"`
}

// CategoryBalance scores each fixed category from habit count and completed
// count. More completions in a category never lower its score; the score is
// capped at the chart's full mark.
func CategoryBalance(habits []models.Habit) []CategoryScore {
	scores := make([]CategoryScore, 0, len(models.HabitCategories))
	for _, cat := range models.HabitCategories {
		count := 0
		completedCount := 0
		for _, h := range habits {
			if h.Category != cat {
				continue
			}
			count++
			if h.Completed {
				completedCount++
			}
		}

		score := count*20 + completedCount*20 + 20
		if score > categoryScoreMax {
			score = categoryScoreMax
		}
		scores = append(scores, CategoryScore{Category: cat, Score: score, FullMark: categoryScoreMax})
	}
	return scores
}

type AnnualCategoryProgress struct {
	Name      string `json:"name"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

type AnnualProgress struct {
	Categories     []AnnualCategoryProgress `json:"categories"`
	TotalGoals     int                      `json:"total_goals"`
	TotalCompleted int                      `json:"total_completed"`
}

// AnnualGoalsProgress aggregates completion over the annual category boards.
func AnnualGoalsProgress(categories []models.AnnualCategory) AnnualProgress {
	out := AnnualProgress{Categories: make([]AnnualCategoryProgress, 0, len(categories))}
	for _, cat := range categories {
		completed := 0
		for _, g := range cat.Goals {
			if g.Completed {
				completed++
			}
		}

		percent := 0
		if len(cat.Goals) > 0 {
			percent = roundPct(float64(completed), float64(len(cat.Goals)))
		}

		out.Categories = append(out.Categories, AnnualCategoryProgress{
			Name:      cat.Name,
			Completed: completed,
			Total:     len(cat.Goals),
			Percent:   percent,
		})
		out.TotalGoals += len(cat.Goals)
		out.TotalCompleted += completed
	}
	return out
}

func roundPct(part, whole float64) int {
	return int(math.Round(part / whole * 100))
}
