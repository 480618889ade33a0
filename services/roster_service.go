package services

import (
	"errors"
	"sync"
	"time"

	"github.com/nextyou21/planner-backend/analytics"
	"github.com/nextyou21/planner-backend/cache"
	"github.com/nextyou21/planner-backend/db"
	"github.com/nextyou21/planner-backend/docstore"
	"github.com/nextyou21/planner-backend/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const rosterCacheKey = "admin_roster"
const rosterCacheTTL = 30 * time.Second

// RosterEntry is one row of the admin console: account fields plus a few
// computed signals so approvals can be triaged without opening each user.
type RosterEntry struct {
	UserID         uint                  `json:"user_id"`
	Email          string                `json:"email"`
	FullName       string                `json:"full_name"`
	Contact        string                `json:"contact"`
	Status         string                `json:"status"`
	IsPaid         bool                  `json:"is_paid"`
	ValidUntil     *time.Time            `json:"valid_until"`
	ApprovedAt     *time.Time            `json:"approved_at"`
	Trial          analytics.TrialWindow `json:"trial"`
	CompletionRate int                   `json:"completion_rate"`
	NetLiquidity   decimal.Decimal       `json:"net_liquidity"`
	Error          error                 `json:"-"`
}

type Roster struct {
	Entries        []RosterEntry `json:"entries"`
	Total          int           `json:"total"`
	ProcessingTime time.Duration `json:"processing_time_ms"`
}

// BuildRosterConcurrently projects every user's document into a roster row.
// Each document load and projection is independent, so one goroutine per
// user fans the work out and a channel collects the rows.
func BuildRosterConcurrently(docs *docstore.Store, logger *zap.Logger) (*Roster, error) {
	startTime := time.Now()

	var cached Roster
	if err := cache.Get(rosterCacheKey, &cached); err == nil {
		logger.Info("roster_cache_hit")
		return &cached, nil
	}

	var users []models.User
	if err := db.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return &Roster{Entries: []RosterEntry{}}, nil
	}

	entryChan := make(chan RosterEntry, len(users))
	var wg sync.WaitGroup

	for _, user := range users {
		wg.Add(1)
		go func(u models.User) {
			defer wg.Done()
			entryChan <- buildRosterEntry(docs, u)
		}(user)
	}

	go func() {
		wg.Wait()
		close(entryChan)
	}()

	byID := make(map[uint]RosterEntry, len(users))
	for entry := range entryChan {
		if entry.Error != nil {
			logger.Warn("roster_entry_failed",
				zap.Uint("user_id", entry.UserID),
				zap.Error(entry.Error),
			)
		}
		byID[entry.UserID] = entry
	}

	// re-impose the user list order lost by the fan-in
	entries := make([]RosterEntry, 0, len(users))
	for _, u := range users {
		if entry, ok := byID[u.ID]; ok {
			entries = append(entries, entry)
		}
	}

	roster := &Roster{
		Entries:        entries,
		Total:          len(entries),
		ProcessingTime: time.Since(startTime) / time.Millisecond,
	}

	if err := cache.Set(rosterCacheKey, roster, rosterCacheTTL); err != nil {
		logger.Warn("roster_cache_set_failed", zap.Error(err))
	}

	return roster, nil
}

func buildRosterEntry(docs *docstore.Store, u models.User) RosterEntry {
	entry := RosterEntry{
		UserID:       u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Contact:      u.Contact,
		Status:       models.StatusPending,
		NetLiquidity: decimal.Zero,
	}

	doc, err := docs.Get(u.ID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			// registered but never synced; show the defaults
			entry.Trial = analytics.ComputeTrialWindow(u.CreatedAt, time.Now())
			return entry
		}
		entry.Error = err
		return entry
	}

	entry.Status = doc.Status
	entry.IsPaid = doc.IsPaid
	entry.ValidUntil = doc.ValidUntil
	entry.ApprovedAt = doc.ApprovedAt

	// expiry is enforced on read as well, so the console never shows a
	// lapsed approval as active
	if doc.Status == models.StatusApproved && doc.ValidUntil != nil && doc.ValidUntil.Before(time.Now()) {
		entry.Status = models.StatusPending
		entry.ValidUntil = nil
	}
	entry.Trial = analytics.ComputeTrialWindow(doc.CreatedAt, time.Now())
	entry.CompletionRate = analytics.CompletionRate(doc.Habits, analytics.YearScope).Rate

	stats := analytics.ComputeFinanceStats(doc.Transactions, analytics.TimeFilter{Year: time.Now().Year()})
	entry.NetLiquidity = stats.NetLiquidity

	return entry
}

// InvalidateRoster drops the cached projection after an admin mutation.
func InvalidateRoster(logger *zap.Logger) {
	if err := cache.Delete(rosterCacheKey); err != nil {
		logger.Warn("roster_cache_invalidate_failed", zap.Error(err))
	}
}
