package order

import (
	"time"

	errors "github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/core/common/validation"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/product"
)

// CreateOrderDTO is the request payload for opening a payment order.
type CreateOrderDTO struct {
	ProductID string `json:"product_id" validate:"required"`
	PayType   string `json:"pay_type" validate:"required,oneof=wechat alipay"`
}

func (dto CreateOrderDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("product_id", dto.ProductID).Required().MaxLength(100)
	v.Field("pay_type", dto.PayType).Required().
		OneOf([]string{string(product.PayTypeWechat), string(product.PayTypeAlipay)}, errors.ErrCodeInvalidPayType)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// CreateOrderResponse is returned after an order-creation attempt. JumpURL is
// empty when Outcome is "unknown"; the client then polls the status endpoint.
type CreateOrderResponse struct {
	OrderRef  string    `json:"order_ref"`
	ProductID string    `json:"product_id"`
	PayType   string    `json:"pay_type"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Outcome   string    `json:"outcome"`
	JumpURL   string    `json:"jump_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OrderStatusResponse is the caller-visible view of an order.
type OrderStatusResponse struct {
	OrderRef  string     `json:"order_ref"`
	ProductID string     `json:"product_id"`
	PayType   string     `json:"pay_type"`
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	TradeNo   *string    `json:"trade_no,omitempty"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewCreateOrderResponse projects a creation result into the API view.
func NewCreateOrderResponse(c *Creation) CreateOrderResponse {
	return CreateOrderResponse{
		OrderRef:  c.Order.OrderRef,
		ProductID: c.Order.ProductID,
		PayType:   c.Order.PayType,
		Amount:    c.Order.Amount,
		Status:    c.Order.Status,
		Outcome:   c.Outcome,
		JumpURL:   c.JumpURL,
		ExpiresAt: c.Order.ExpiresAt,
	}
}

// NewOrderStatusResponse projects an order and its effective status into the
// API view. The effective status may differ from the stored row for orders
// past their expiry window.
func NewOrderStatusResponse(o *order.PaymentOrder, effectiveStatus string) OrderStatusResponse {
	return OrderStatusResponse{
		OrderRef:  o.OrderRef,
		ProductID: o.ProductID,
		PayType:   o.PayType,
		Amount:    o.Amount,
		Status:    effectiveStatus,
		TradeNo:   o.TradeNo,
		PaidAt:    o.PaidAt,
		ExpiresAt: o.ExpiresAt,
		CreatedAt: o.CreatedAt,
	}
}
