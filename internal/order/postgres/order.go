package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	orderpkg "github.com/zhiweijz/membership-payments/internal/order"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) orderpkg.RepositoryAPI {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) Create(o *order.PaymentOrder) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByRef(orderRef string) (*order.PaymentOrder, error) {
	var o order.PaymentOrder
	err := r.db.Where("order_ref = ?", orderRef).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderpkg.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// MarkPaid transitions the order to paid only if it is still pending. This
// must be one conditional UPDATE, never a read-then-write: two concurrent
// callback deliveries race through here and exactly one may win.
func (r *OrderRepository) MarkPaid(orderRef, tradeNo string, paidAt time.Time) (bool, error) {
	res := r.db.Model(&order.PaymentOrder{}).
		Where("order_ref = ? AND status = ?", orderRef, order.StatusPending).
		Updates(map[string]interface{}{
			"status":     order.StatusPaid,
			"trade_no":   tradeNo,
			"paid_at":    paidAt,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ClaimUpgrade takes the upgrade slot for a paid order. Only one caller can
// hold the slot; a claim left behind by a crash becomes reclaimable once it
// is older than staleAfter.
func (r *OrderRepository) ClaimUpgrade(orderRef string, now time.Time, staleAfter time.Duration) (bool, error) {
	staleBefore := now.Add(-staleAfter)
	res := r.db.Model(&order.PaymentOrder{}).
		Where("order_ref = ? AND status = ?", orderRef, order.StatusPaid).
		Where("upgrade_status = ? OR (upgrade_status = ? AND upgrade_claimed_at < ?)",
			order.UpgradePending, order.UpgradeDispatching, staleBefore).
		Updates(map[string]interface{}{
			"upgrade_status":     order.UpgradeDispatching,
			"upgrade_claimed_at": now,
			"updated_at":         now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FinishUpgrade records that the membership upgrade went through.
func (r *OrderRepository) FinishUpgrade(orderRef string) error {
	return r.db.Model(&order.PaymentOrder{}).
		Where("order_ref = ? AND upgrade_status = ?", orderRef, order.UpgradeDispatching).
		Updates(map[string]interface{}{
			"upgrade_status": order.UpgradeDone,
			"updated_at":     time.Now().UTC(),
		}).Error
}

// ReleaseUpgrade puts the slot back after a failed dispatch so the gateway's
// redelivery can retry it.
func (r *OrderRepository) ReleaseUpgrade(orderRef string) error {
	return r.db.Model(&order.PaymentOrder{}).
		Where("order_ref = ? AND upgrade_status = ?", orderRef, order.UpgradeDispatching).
		Updates(map[string]interface{}{
			"upgrade_status":     order.UpgradePending,
			"upgrade_claimed_at": nil,
			"updated_at":         time.Now().UTC(),
		}).Error
}
