package analytics

import (
	"math"
	"time"
)

// TrialDays is the fixed complimentary-access window.
const TrialDays = 90

type TrialWindow struct {
	ElapsedDays   int `json:"elapsed_days"`
	RemainingDays int `json:"remaining_days"`
	Percentage    int `json:"percentage"`
}

// ComputeTrialWindow reports progress through the trial period. Elapsed days
// are whole 24-hour periods since the account was created.
func ComputeTrialWindow(createdAt, now time.Time) TrialWindow {
	if createdAt.IsZero() {
		return TrialWindow{RemainingDays: TrialDays}
	}

	elapsed := int(math.Floor(now.Sub(createdAt).Abs().Hours() / 24))
	remaining := TrialDays - elapsed
	if remaining < 0 {
		remaining = 0
	}

	percentage := int(math.Round(float64(elapsed) / TrialDays * 100))
	if percentage > 100 {
		percentage = 100
	}

	return TrialWindow{
		ElapsedDays:   elapsed,
		RemainingDays: remaining,
		Percentage:    percentage,
	}
}
