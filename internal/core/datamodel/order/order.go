package order

import (
	"time"
)

// Order status. Transitions only move forward: pending → paid. "expired" is
// computed at query time from ExpiresAt and never written back.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusExpired = "expired"
)

// Upgrade dispatch state, persisted separately from the payment status so a
// redelivered callback (or a crash between markPaid and the membership call)
// can tell whether the upgrade still has to run.
const (
	UpgradePending     = "pending"
	UpgradeDispatching = "dispatching"
	UpgradeDone        = "done"
)

type PaymentOrder struct {
	ID       int64  `gorm:"primaryKey"`
	OrderRef string `gorm:"column:order_ref;not null;uniqueIndex"`

	UserID    string `gorm:"column:user_id;not null"`
	ProductID string `gorm:"column:product_id;not null"`

	PayType     string `gorm:"column:pay_type;not null"`
	Amount      int64  `gorm:"column:amount;not null"`
	Description string `gorm:"column:description"`
	Attach      string `gorm:"column:attach"`

	TradeNo *string `gorm:"column:trade_no"`

	Status string `gorm:"column:status;default:pending"`

	UpgradeStatus    string     `gorm:"column:upgrade_status;default:pending"`
	UpgradeClaimedAt *time.Time `gorm:"column:upgrade_claimed_at"`

	PaidAt    *time.Time `gorm:"column:paid_at"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// EffectiveStatus reports what a caller should see at the given instant:
// a pending order past its expiry window reads as expired.
func (o *PaymentOrder) EffectiveStatus(now time.Time) string {
	if o.Status == StatusPending && now.After(o.ExpiresAt) {
		return StatusExpired
	}
	return o.Status
}
