package docstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nextyou21/planner-backend/cache"
	"github.com/nextyou21/planner-backend/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrPermissionDenied = errors.New("permission denied")
)

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// Store exposes per-document get/update/merge plus a change-subscription
// primitive. Durability lives in postgres; change fan-out rides redis pub/sub
// so every subscribed session sees writes from every device.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	// load resolves the current document; it is s.Get outside of tests
	load func(userID uint) (*models.PlannerDocument, error)
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	s := &Store{db: db, logger: logger}
	s.load = s.Get
	return s
}

// openFeed opens the pub/sub change stream; swapped in tests.
var openFeed = cache.Subscribe

func docChannel(userID uint) string {
	return fmt.Sprintf("planner:doc:%d", userID)
}

func (s *Store) Get(userID uint) (*models.PlannerDocument, error) {
	var doc models.PlannerDocument
	err := s.db.First(&doc, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update applies a partial-field update to an existing document. Returns
// ErrNotFound when the document has never been created, so callers can fall
// back to SetMerge.
func (s *Store) Update(userID uint, fields map[string]interface{}) error {
	tx := s.db.Model(&models.PlannerDocument{}).
		Where("user_id = ?", userID).
		Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}

	s.publish(userID)
	return nil
}

// SetMerge upserts the document: creates it when absent, otherwise merges the
// given fields into the existing row. First-time writes land here.
func (s *Store) SetMerge(userID uint, fields map[string]interface{}) error {
	doc := models.PlannerDocument{UserID: userID, Status: models.StatusPending}
	if err := s.db.Where("user_id = ?", userID).FirstOrCreate(&doc).Error; err != nil {
		return err
	}

	if len(fields) > 0 {
		if err := s.db.Model(&models.PlannerDocument{}).
			Where("user_id = ?", userID).
			Updates(fields).Error; err != nil {
			return err
		}
	}

	s.publish(userID)
	return nil
}

// Subscribe opens a change subscription on one document. The current snapshot
// is delivered immediately (nil payload when the document does not exist yet),
// then one message per committed write. Access by anyone other than the owner
// or an admin is reported through onError as a permission-denied kind; the
// returned unsubscribe handle is always safe to call.
func (s *Store) Subscribe(requesterID uint, requesterRole string, docID uint,
	onSnapshot func(json.RawMessage), onError func(error)) func() {

	if requesterID != docID && requesterRole != models.RoleAdmin {
		s.logger.Warn("doc_subscribe_denied",
			zap.Uint("requester_id", requesterID),
			zap.Uint("doc_id", docID),
		)
		onError(ErrPermissionDenied)
		return func() {}
	}

	// open the feed before the initial read; a write committed in between
	// arrives as a feed message instead of being lost until the next write
	unsub := openFeed(docChannel(docID), func(payload []byte) {
		onSnapshot(payload)
	})

	doc, err := s.load(docID)
	switch {
	case err == nil:
		if data, merr := json.Marshal(doc); merr == nil {
			onSnapshot(data)
		}
	case errors.Is(err, ErrNotFound):
		onSnapshot(nil)
	default:
		onError(err)
	}

	return unsub
}

func (s *Store) publish(userID uint) {
	doc, err := s.Get(userID)
	if err != nil {
		s.logger.Warn("doc_publish_load_failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	data, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("doc_publish_marshal_failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	if err := cache.Publish(docChannel(userID), data); err != nil {
		s.logger.Warn("doc_publish_failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}
