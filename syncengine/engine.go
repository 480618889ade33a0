package syncengine

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nextyou21/planner-backend/docstore"
	"github.com/nextyou21/planner-backend/models"
	"github.com/nextyou21/planner-backend/state"
	"github.com/nextyou21/planner-backend/utils"
	"go.uber.org/zap"
)

// RemoteStore is the document-store surface the engine talks to.
type RemoteStore interface {
	Update(userID uint, fields map[string]interface{}) error
	SetMerge(userID uint, fields map[string]interface{}) error
	Subscribe(requesterID uint, requesterRole string, docID uint,
		onSnapshot func(json.RawMessage), onError func(error)) func()
}

// Engine keeps one user's session state convergent with the remote document
// under last-writer-wins-per-field. Outbound writes go through a per-field
// queue that collapses pending writes to the same field into the latest
// value; delivery is one attempt plus a single merge-create fallback.
type Engine struct {
	remote RemoteStore
	logger *zap.Logger

	userID uint
	role   string

	// RetryDelay is the fixed wait before the single degraded-state retry.
	RetryDelay time.Duration
	// DebounceDelay holds back free-text pushes to avoid a write per keystroke.
	DebounceDelay time.Duration

	mu          sync.Mutex
	store       *state.Store
	unsubscribe func()

	status     string
	validUntil *time.Time
	approvedAt *time.Time
	isPaid     bool
	createdAt  time.Time
	loaded     bool

	gate     GateState
	degraded bool
	retried  bool

	// qmu guards the outbound queue so store mutations running under mu can
	// enqueue without re-entering it
	qmu      sync.Mutex
	pending  map[string]interface{}
	inflight int
	wake     chan struct{}
	quit     chan struct{}
	timers   map[string]*time.Timer

	listeners    map[int]func(View)
	nextListener int
}

func NewEngine(remote RemoteStore, userID uint, role string, logger *zap.Logger) *Engine {
	e := &Engine{
		remote:        remote,
		logger:        logger,
		userID:        userID,
		role:          role,
		RetryDelay:    3 * time.Second,
		DebounceDelay: time.Second,
		status:        models.StatusPending,
		gate:          GateUnauthenticated,
		pending:       map[string]interface{}{},
		wake:          make(chan struct{}, 1),
		quit:          make(chan struct{}),
		timers:        map[string]*time.Timer{},
		listeners:     map[int]func(View){},
	}
	e.store = state.NewStore(e)

	go e.worker()
	return e
}

// Attach opens the document subscription. Any previous subscription is torn
// down first so an identity change never leaks a stale listener.
func (e *Engine) Attach() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.gate = GateAuthenticating
	e.degraded = false
	e.retried = false
	e.mu.Unlock()

	unsub := e.remote.Subscribe(e.userID, e.role, e.userID, e.onSnapshot, e.onError)

	e.mu.Lock()
	e.unsubscribe = unsub
	e.mu.Unlock()

	e.notify()
}

// Detach cancels the subscription. The in-memory state survives until the
// engine is closed.
func (e *Engine) Detach() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.gate = GateUnauthenticated
	e.mu.Unlock()

	e.notify()
}

func (e *Engine) Close() {
	e.Detach()

	e.qmu.Lock()
	for _, t := range e.timers {
		t.Stop()
	}
	e.qmu.Unlock()

	close(e.quit)
}

// WithState runs fn with exclusive access to the session's state store.
// Mutating store operations push through this engine's queue.
func (e *Engine) WithState(fn func(*state.Store)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.store)
}

// Push enqueues a partial-field update. The caller has already applied the
// value optimistically; the queue collapses rapid consecutive pushes to the
// same field into the latest value.
func (e *Engine) Push(field string, value interface{}) {
	e.qmu.Lock()
	e.pending[field] = value
	e.qmu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// PushDebounced delays the push by DebounceDelay, restarting the clock on
// every call for the same field.
func (e *Engine) PushDebounced(field string, value interface{}) {
	e.qmu.Lock()
	if t, ok := e.timers[field]; ok {
		t.Stop()
	}
	e.timers[field] = time.AfterFunc(e.DebounceDelay, func() {
		e.Push(field, value)
	})
	e.qmu.Unlock()
}

// SetManifestationText applies the free-text update locally and schedules a
// debounced config push.
func (e *Engine) SetManifestationText(text string) {
	e.mu.Lock()
	cfg := e.store.Config
	cfg.ManifestationText = text
	e.store.Config = cfg
	e.mu.Unlock()

	e.PushDebounced(models.FieldConfig, models.ConfigColumn(cfg))
}

// Syncing reports whether any outbound write is queued or in flight.
func (e *Engine) Syncing() bool {
	e.qmu.Lock()
	defer e.qmu.Unlock()
	return len(e.pending) > 0 || e.inflight > 0
}

func (e *Engine) Gate() GateState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate
}

func (e *Engine) worker() {
	for {
		select {
		case <-e.quit:
			return
		case <-e.wake:
		}

		for {
			e.qmu.Lock()
			if len(e.pending) == 0 {
				e.qmu.Unlock()
				break
			}
			var field string
			var value interface{}
			for f, v := range e.pending {
				field, value = f, v
				break
			}
			delete(e.pending, field)
			e.inflight++
			e.qmu.Unlock()

			e.mu.Lock()
			degraded := e.degraded
			e.mu.Unlock()

			if !degraded {
				e.flush(field, value)
			}

			e.qmu.Lock()
			e.inflight--
			e.qmu.Unlock()
		}
	}
}

func (e *Engine) flush(field string, value interface{}) {
	fields := map[string]interface{}{field: value}

	err := e.remote.Update(e.userID, fields)
	if err != nil {
		// first-time write: the document may not exist yet
		err = e.remote.SetMerge(e.userID, fields)
	}
	if err != nil {
		// second failure is swallowed, logged only
		e.logger.Warn("sync_push_failed",
			zap.Uint("user_id", e.userID),
			zap.String("field", field),
			zap.Error(err),
		)
		utils.SyncPushCount.WithLabelValues(field, "error").Inc()
		return
	}

	utils.SyncPushCount.WithLabelValues(field, "ok").Inc()
}

func (e *Engine) onSnapshot(raw json.RawMessage) {
	now := time.Now()

	if raw == nil {
		// document not created yet; keep local defaults
		e.mu.Lock()
		e.degraded = false
		e.loaded = true
		e.gate = resolveGate(e.status, e.isPaid, e.validUntil, now)
		e.mu.Unlock()
		e.notify()
		return
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		e.logger.Warn("snapshot_decode_failed", zap.Uint("user_id", e.userID), zap.Error(err))
		return
	}

	// Approval expiry is re-evaluated on every snapshot. The remote
	// correction writes the same values each time, so repeated firing is
	// idempotent.
	if snap.Status == models.StatusApproved && snap.ValidUntil != nil && snap.ValidUntil.Before(now) {
		snap.Status = models.StatusPending
		snap.ValidUntil = nil
		go func() {
			if err := e.remote.Update(e.userID, map[string]interface{}{
				models.FieldStatus:     models.StatusPending,
				models.FieldValidUntil: nil,
			}); err != nil {
				e.logger.Warn("expiry_correction_failed", zap.Uint("user_id", e.userID), zap.Error(err))
			}
		}()
	}

	e.mu.Lock()
	e.degraded = false
	e.applyLocked(snap, now)
	e.mu.Unlock()

	utils.SnapshotCount.Inc()
	e.notify()
}

// applyLocked defaults each field independently: an absent slice keeps the
// local value rather than clearing it.
func (e *Engine) applyLocked(snap *Snapshot, now time.Time) {
	e.status = snap.Status
	e.validUntil = snap.ValidUntil
	e.approvedAt = snap.ApprovedAt
	e.isPaid = snap.IsPaid
	if !snap.CreatedAt.IsZero() {
		e.createdAt = snap.CreatedAt
	}

	if len(snap.Habits) > 0 {
		e.store.Habits = snap.Habits
	}
	if snap.MonthlyGoals != nil {
		e.store.MonthlyGoals = snap.MonthlyGoals
	}
	if snap.WeeklyGoals != nil {
		e.store.WeeklyGoals = snap.WeeklyGoals
	}
	if snap.AnnualCategories != nil {
		e.store.AnnualCategories = snap.AnnualCategories
	}
	if snap.Transactions != nil {
		e.store.Transactions = snap.Transactions
	}
	if snap.BudgetLimits != nil {
		e.store.BudgetLimits = snap.BudgetLimits
	}
	if snap.Config != nil {
		cfg := *snap.Config
		cfg.TabOrder = stripLegacyTabs(cfg.TabOrder)
		if cfg.Year == "" {
			cfg.Year = e.store.Config.Year
		}
		if cfg.ActiveMonths == nil {
			cfg.ActiveMonths = e.store.Config.ActiveMonths
		}
		e.store.Config = cfg
	}

	e.loaded = true
	e.gate = resolveGate(e.status, e.isPaid, e.validUntil, now)
}

func (e *Engine) onError(err error) {
	if docstore.IsPermissionDenied(err) {
		e.mu.Lock()
		e.degraded = true
		e.gate = GatePermissionError
		shouldRetry := !e.retried
		e.retried = true
		e.loaded = true
		e.mu.Unlock()

		utils.DegradedCount.Inc()
		e.logger.Warn("sync_permission_denied",
			zap.Uint("user_id", e.userID),
			zap.Bool("will_retry", shouldRetry),
		)

		// single-shot retry; repeated failures stay degraded until an
		// external reload re-attaches
		if shouldRetry {
			time.AfterFunc(e.RetryDelay, e.resubscribe)
		}

		e.notify()
		return
	}

	e.logger.Warn("sync_error", zap.Uint("user_id", e.userID), zap.Error(err))
	e.mu.Lock()
	e.loaded = true
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) resubscribe() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.gate = GateAuthenticating
	e.degraded = false
	e.mu.Unlock()

	unsub := e.remote.Subscribe(e.userID, e.role, e.userID, e.onSnapshot, e.onError)

	e.mu.Lock()
	e.unsubscribe = unsub
	e.mu.Unlock()

	e.notify()
}

// View is a read-only copy of the session for rendering/streaming.
type View struct {
	Gate       GateState               `json:"gate"`
	Status     string                  `json:"status"`
	ValidUntil *time.Time              `json:"valid_until"`
	ApprovedAt *time.Time              `json:"approved_at"`
	IsPaid     bool                    `json:"is_paid"`
	CreatedAt  time.Time               `json:"created_at"`
	Loaded     bool                    `json:"loaded"`
	Syncing    bool                    `json:"syncing"`
	Habits     []models.Habit          `json:"habits"`
	Monthly    []models.MonthlyGoalSet `json:"monthly_goals"`
	Weekly     []models.WeeklyGoalSet  `json:"weekly_goals"`
	Annual     []models.AnnualCategory `json:"annual_categories"`
	Txns       []models.Transaction    `json:"transactions"`
	Budgets    []models.BudgetLimit    `json:"budget_limits"`
	Config     models.PlannerConfig    `json:"config"`
	Tabs       []string                `json:"tabs"`
}

func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.qmu.Lock()
	syncing := len(e.pending) > 0 || e.inflight > 0
	e.qmu.Unlock()

	available := state.AvailableTabs(e.store.Config, e.role == models.RoleAdmin)
	return View{
		Gate:       e.gate,
		Status:     e.status,
		ValidUntil: e.validUntil,
		ApprovedAt: e.approvedAt,
		IsPaid:     e.isPaid,
		CreatedAt:  e.createdAt,
		Loaded:     e.loaded,
		Syncing:    syncing,
		Habits:     e.store.Habits,
		Monthly:    e.store.MonthlyGoals,
		Weekly:     e.store.WeeklyGoals,
		Annual:     e.store.AnnualCategories,
		Txns:       e.store.Transactions,
		Budgets:    e.store.BudgetLimits,
		Config:     e.store.Config,
		Tabs:       state.ReconcileTabOrder(available, e.store.Config.TabOrder),
	}
}

// AddListener registers a callback fired after every applied snapshot or
// gate change. The returned func removes it.
func (e *Engine) AddListener(cb func(View)) func() {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = cb
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

func (e *Engine) notify() {
	view := e.View()

	e.mu.Lock()
	cbs := make([]func(View), 0, len(e.listeners))
	for _, cb := range e.listeners {
		cbs = append(cbs, cb)
	}
	e.mu.Unlock()

	for _, cb := range cbs {
		cb(view)
	}
}
