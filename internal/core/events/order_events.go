package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderCreated  = "order.created"
	EventTypeOrderPaid     = "order.paid"
	EventTypeUpgradeFailed = "membership.upgrade_failed"
)

type OrderCreatedEvent struct {
	BaseEvent
	OrderRef  string `json:"order_ref"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	PayType   string `json:"pay_type"`
	Amount    int64  `json:"amount"`
}

func NewOrderCreatedEvent(orderRef, userID, productID, payType string, amount int64) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_ref":  orderRef,
				"user_id":    userID,
				"product_id": productID,
				"pay_type":   payType,
				"amount":     amount,
			},
		},
		OrderRef:  orderRef,
		UserID:    userID,
		ProductID: productID,
		PayType:   payType,
		Amount:    amount,
	}
}

type OrderPaidEvent struct {
	BaseEvent
	OrderRef  string `json:"order_ref"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	TradeNo   string `json:"trade_no"`
	Amount    int64  `json:"amount"`
}

func NewOrderPaidEvent(orderRef, userID, productID, tradeNo string, amount int64) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderPaid,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_ref":  orderRef,
				"user_id":    userID,
				"product_id": productID,
				"trade_no":   tradeNo,
				"amount":     amount,
			},
		},
		OrderRef:  orderRef,
		UserID:    userID,
		ProductID: productID,
		TradeNo:   tradeNo,
		Amount:    amount,
	}
}

type UpgradeFailedEvent struct {
	BaseEvent
	OrderRef  string `json:"order_ref"`
	UserID    string `json:"user_id"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

func NewUpgradeFailedEvent(orderRef, userID, productID, reason string) *UpgradeFailedEvent {
	return &UpgradeFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUpgradeFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"order_ref":  orderRef,
				"user_id":    userID,
				"product_id": productID,
				"reason":     reason,
			},
		},
		OrderRef:  orderRef,
		UserID:    userID,
		ProductID: productID,
		Reason:    reason,
	}
}
