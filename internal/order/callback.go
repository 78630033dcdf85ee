package order

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	"github.com/zhiweijz/membership-payments/internal/core/events"
	"github.com/zhiweijz/membership-payments/internal/signature"
)

// Gateway status code meaning the payment settled. Any other status is
// acknowledged and ignored so the gateway stops redelivering it.
const notificationStatusPaid = "PAID"

// staleClaimTTL bounds how long a dispatching claim blocks redeliveries. A
// crash between claiming and finishing the upgrade heals once the claim is
// this old.
const staleClaimTTL = time.Minute

// Callback rejection reasons. A nil return from Handle means the gateway
// gets the success sentinel; any of these means the failure sentinel.
var (
	ErrCallbackMalformed = stderrors.New("malformed notification")
	ErrBadSignature      = stderrors.New("bad signature")
	ErrUnknownOrder      = stderrors.New("unknown order")
)

// Notification is the gateway's asynchronous payment report.
type Notification struct {
	AppID      string `json:"appId"`
	OutTradeNo string `json:"outTradeNo"`
	TradeNo    string `json:"tradeNo"`
	Amount     int64  `json:"amount"`
	PayType    string `json:"payType"`
	Status     string `json:"status"`
	PaidTime   string `json:"paidTime"`
	Attach     string `json:"attach,omitempty"`
	Sign       string `json:"sign"`
}

// SignFields is the canonical field set the gateway signed: every
// notification field except the signature itself.
func (n *Notification) SignFields() map[string]interface{} {
	return map[string]interface{}{
		"appId":      n.AppID,
		"outTradeNo": n.OutTradeNo,
		"tradeNo":    n.TradeNo,
		"amount":     n.Amount,
		"payType":    n.PayType,
		"status":     n.Status,
		"paidTime":   n.PaidTime,
		"attach":     n.Attach,
	}
}

func (n *Notification) complete() bool {
	return n.AppID != "" &&
		n.OutTradeNo != "" &&
		n.TradeNo != "" &&
		n.Amount != 0 &&
		n.PayType != "" &&
		n.Status != "" &&
		n.PaidTime != "" &&
		n.Sign != ""
}

// DispatcherAPI triggers the downstream membership upgrade for a paid order.
type DispatcherAPI interface {
	Dispatch(ctx context.Context, o *order.PaymentOrder) error
}

// CallbackProcessor authenticates, deduplicates, and applies payment
// notifications. Deliveries are at-least-once: the same notification may
// arrive twice, concurrently or days apart, and must result in exactly one
// recorded membership upgrade.
type CallbackProcessor struct {
	repo       RepositoryAPI
	codec      *signature.Codec
	dispatcher DispatcherAPI
	eventBus   *events.EventBus
	logger     *slog.Logger
	now        func() time.Time
}

func NewCallbackProcessor(repo RepositoryAPI, codec *signature.Codec, dispatcher DispatcherAPI, eventBus *events.EventBus, logger *slog.Logger) *CallbackProcessor {
	return &CallbackProcessor{
		repo:       repo,
		codec:      codec,
		dispatcher: dispatcher,
		eventBus:   eventBus,
		logger:     logger,
		now:        time.Now,
	}
}

// Handle runs the gate sequence for one delivery. A nil error acknowledges
// the notification; a non-nil error makes the gateway redeliver it.
func (p *CallbackProcessor) Handle(ctx context.Context, n *Notification) error {
	if !n.complete() {
		p.logger.Error("notification missing required fields",
			"out_trade_no", n.OutTradeNo)
		return ErrCallbackMalformed
	}

	if n.Status != notificationStatusPaid {
		p.logger.Info("ignoring non-paid notification",
			"out_trade_no", n.OutTradeNo,
			"status", n.Status)
		return nil
	}

	if !p.codec.Verify(n.SignFields(), n.Sign) {
		p.logger.Error("notification signature verification failed",
			"out_trade_no", n.OutTradeNo)
		return ErrBadSignature
	}

	o, err := p.repo.GetByRef(n.OutTradeNo)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			p.logger.Error("notification for unknown order",
				"out_trade_no", n.OutTradeNo)
			return ErrUnknownOrder
		}
		return fmt.Errorf("load order %s: %w", n.OutTradeNo, err)
	}

	if o.Amount != n.Amount {
		// The signature already authenticated the amount; a mismatch means
		// the order was created with a different price than was paid.
		p.logger.Warn("notification amount differs from order",
			"out_trade_no", n.OutTradeNo,
			"order_amount", o.Amount,
			"paid_amount", n.Amount)
	}

	paidAt := parsePaidTime(n.PaidTime, p.now().UTC())
	applied, err := p.repo.MarkPaid(o.OrderRef, n.TradeNo, paidAt)
	if err != nil {
		return fmt.Errorf("mark order %s paid: %w", o.OrderRef, err)
	}

	if applied {
		p.logger.Info("order marked paid",
			"order_ref", o.OrderRef,
			"trade_no", n.TradeNo,
			"paid_at", paidAt)
		p.eventBus.Publish(ctx, events.NewOrderPaidEvent(o.OrderRef, o.UserID, o.ProductID, n.TradeNo, o.Amount))
	} else {
		// Expected shape of at-least-once delivery, not an error.
		p.logger.Info("order already paid, duplicate delivery",
			"order_ref", o.OrderRef,
			"trade_no", n.TradeNo)
	}

	return p.ensureUpgrade(ctx, o.OrderRef)
}

// ensureUpgrade dispatches the membership upgrade at most once per order,
// independent of how many deliveries race through. The claim is persisted so
// a redelivery after a failed or crashed dispatch can pick it back up.
func (p *CallbackProcessor) ensureUpgrade(ctx context.Context, orderRef string) error {
	claimed, err := p.repo.ClaimUpgrade(orderRef, p.now().UTC(), staleClaimTTL)
	if err != nil {
		return fmt.Errorf("claim upgrade for order %s: %w", orderRef, err)
	}
	if !claimed {
		// Either the upgrade already went through or another delivery is
		// dispatching it right now. Both are acknowledged.
		return nil
	}

	o, err := p.repo.GetByRef(orderRef)
	if err != nil {
		if relErr := p.repo.ReleaseUpgrade(orderRef); relErr != nil {
			p.logger.Error("failed to release upgrade claim",
				"error", relErr,
				"order_ref", orderRef)
		}
		return fmt.Errorf("reload order %s: %w", orderRef, err)
	}

	if err := p.dispatcher.Dispatch(ctx, o); err != nil {
		// The order stays paid; releasing the claim lets the gateway's
		// redelivery retry the upgrade on its own.
		if relErr := p.repo.ReleaseUpgrade(orderRef); relErr != nil {
			p.logger.Error("failed to release upgrade claim after dispatch failure",
				"error", relErr,
				"order_ref", orderRef)
		}
		p.eventBus.Publish(ctx, events.NewUpgradeFailedEvent(o.OrderRef, o.UserID, o.ProductID, err.Error()))
		return fmt.Errorf("dispatch upgrade for order %s: %w", orderRef, err)
	}

	if err := p.repo.FinishUpgrade(orderRef); err != nil {
		p.logger.Error("upgrade dispatched but not recorded",
			"error", err,
			"order_ref", orderRef)
		return fmt.Errorf("record upgrade for order %s: %w", orderRef, err)
	}

	return nil
}

var paidTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parsePaidTime(s string, fallback time.Time) time.Time {
	for _, layout := range paidTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return fallback
}
