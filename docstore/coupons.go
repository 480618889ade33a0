package docstore

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/nextyou21/planner-backend/cache"
	"github.com/nextyou21/planner-backend/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const couponChannel = "planner:coupons"

var ErrDuplicateCode = errors.New("coupon code already exists")

// Coupons live in their own collection keyed by generated id, outside the
// per-user planner documents.

func (s *Store) ListCoupons() ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := s.db.Order("created_at DESC").Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

func (s *Store) AddCoupon(code string, discount int, active bool) (*models.Coupon, error) {
	coupon := models.Coupon{
		ID:       uuid.NewString(),
		Code:     strings.ToUpper(strings.TrimSpace(code)),
		Discount: discount,
		Active:   active,
	}

	if err := s.db.Create(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}

	s.publishCoupons()
	return &coupon, nil
}

func (s *Store) DeleteCoupon(id string) error {
	tx := s.db.Delete(&models.Coupon{}, "id = ?", id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}

	s.publishCoupons()
	return nil
}

// SubscribeCoupons streams the full coupon list on every collection change.
// The feed opens before the initial list read, same as document subscriptions.
func (s *Store) SubscribeCoupons(onChange func([]models.Coupon), onError func(error)) func() {
	unsub := openFeed(couponChannel, func(payload []byte) {
		var list []models.Coupon
		if err := json.Unmarshal(payload, &list); err != nil {
			onError(err)
			return
		}
		onChange(list)
	})

	coupons, err := s.ListCoupons()
	if err != nil {
		onError(err)
	} else {
		onChange(coupons)
	}

	return unsub
}

func (s *Store) publishCoupons() {
	coupons, err := s.ListCoupons()
	if err != nil {
		s.logger.Warn("coupon_publish_load_failed", zap.Error(err))
		return
	}

	data, err := json.Marshal(coupons)
	if err != nil {
		return
	}

	if err := cache.Publish(couponChannel, data); err != nil {
		s.logger.Warn("coupon_publish_failed", zap.Error(err))
	}
}
