package order

import (
	"context"
	"crypto/rand"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	errors "github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/catalog"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/product"
	"github.com/zhiweijz/membership-payments/internal/core/events"
	"github.com/zhiweijz/membership-payments/internal/h5gateway"
)

// ErrNotFound is returned by the repository when no order exists for a ref.
var ErrNotFound = stderrors.New("order not found")

// RepositoryAPI is the durable order store. MarkPaid and ClaimUpgrade are
// conditional single-statement updates; their bool result reports whether
// this caller won the transition.
type RepositoryAPI interface {
	Create(o *order.PaymentOrder) error
	GetByRef(orderRef string) (*order.PaymentOrder, error)
	MarkPaid(orderRef, tradeNo string, paidAt time.Time) (bool, error)
	ClaimUpgrade(orderRef string, now time.Time, staleAfter time.Duration) (bool, error)
	FinishUpgrade(orderRef string) error
	ReleaseUpgrade(orderRef string) error
}

// GatewayAPI is the slice of the H5 gateway client the lifecycle needs.
type GatewayAPI interface {
	CreateOrder(ctx context.Context, req h5gateway.CreateOrderRequest) (*h5gateway.CreateOrderResult, error)
}

// Outcome of an order-creation attempt as reported to the end user.
const (
	OutcomeCreated = "created"
	// OutcomeUnknown means the gateway transport failed: the order row is
	// persisted so a late callback still matches, but the client must poll
	// status rather than assume success.
	OutcomeUnknown = "unknown"
)

// AttachPayload rides opaquely through the gateway and comes back in the
// callback, making notifications self-contained.
type AttachPayload struct {
	UserID         string `json:"userId"`
	ProductID      string `json:"productId"`
	MembershipTier string `json:"membershipTier"`
	Duration       string `json:"duration"`
}

// OrderService is the order lifecycle manager: catalog lookup, signing via
// the gateway client, persistence, and status queries.
type OrderService struct {
	repo     RepositoryAPI
	gateway  GatewayAPI
	catalog  *catalog.Catalog
	eventBus *events.EventBus
	orderTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderService(repo RepositoryAPI, gateway GatewayAPI, cat *catalog.Catalog, eventBus *events.EventBus, orderTTL time.Duration, logger *slog.Logger) *OrderService {
	if orderTTL <= 0 {
		orderTTL = 2 * time.Hour
	}
	return &OrderService{
		repo:     repo,
		gateway:  gateway,
		catalog:  cat,
		eventBus: eventBus,
		orderTTL: orderTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Creation is the result of CreateOrder. When Outcome is OutcomeUnknown,
// JumpURL is empty and the client must poll the status endpoint.
type Creation struct {
	Order   *order.PaymentOrder
	JumpURL string
	Outcome string
}

// CreateOrder opens a payment order for (user, product, rail).
//
// Gateway rejection returns an error and persists nothing. Gateway transport
// failure persists a pending row and reports OutcomeUnknown: the order may
// exist on the gateway side and its callback must still find a match here.
func (s *OrderService) CreateOrder(ctx context.Context, userID, productID string, payType product.PayType) (*Creation, error) {
	if userID == "" {
		return nil, errors.NewValidationError("user is required", errors.ErrCodeValidationFailed)
	}
	if !payType.Valid() {
		return nil, errors.ErrInvalidPayType
	}

	p, err := s.catalog.Lookup(productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, errors.ErrProductInactive
	}

	amount := p.PriceFor(payType)
	if amount <= 0 {
		return nil, errors.ErrInvalidPayType
	}

	orderRef := generateOrderRef()

	attach, err := json.Marshal(AttachPayload{
		UserID:         userID,
		ProductID:      productID,
		MembershipTier: p.MembershipTier,
		Duration:       string(p.Duration),
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to encode order attachment", err)
	}

	now := s.now().UTC()
	o := &order.PaymentOrder{
		OrderRef:      orderRef,
		UserID:        userID,
		ProductID:     productID,
		PayType:       string(payType),
		Amount:        amount,
		Description:   p.Name,
		Attach:        string(attach),
		Status:        order.StatusPending,
		UpgradeStatus: order.UpgradePending,
		ExpiresAt:     now.Add(s.orderTTL),
	}

	s.logger.Info("creating payment order",
		"order_ref", orderRef,
		"user_id", userID,
		"product_id", productID,
		"pay_type", payType,
		"amount", amount)

	result, err := s.gateway.CreateOrder(ctx, h5gateway.CreateOrderRequest{
		OrderRef:    orderRef,
		Description: p.Name,
		PayType:     string(payType),
		Amount:      amount,
		Attach:      string(attach),
	})

	if err != nil {
		var rejected *h5gateway.RejectedError
		if stderrors.As(err, &rejected) {
			// Known outcome: the gateway said no. Nothing to persist.
			return nil, errors.NewGatewayRejectedError(rejected.Code, rejected.Msg)
		}

		// Transport failure: the outcome is unknown. Persist the pending row
		// so a late callback still has something to match, and tell the
		// caller neither success nor failure.
		if persistErr := s.repo.Create(o); persistErr != nil {
			s.logger.Error("failed to persist order after gateway transport error",
				"error", persistErr,
				"order_ref", orderRef)
			return nil, errors.NewInternalError("failed to persist payment order", persistErr)
		}

		s.logger.Warn("gateway unreachable, order persisted with unknown outcome",
			"error", err,
			"order_ref", orderRef)

		return &Creation{Order: o, Outcome: OutcomeUnknown}, nil
	}

	if result.TradeNo != "" {
		o.TradeNo = &result.TradeNo
	}

	if err := s.repo.Create(o); err != nil {
		s.logger.Error("failed to persist accepted order",
			"error", err,
			"order_ref", orderRef,
			"trade_no", result.TradeNo)
		return nil, errors.NewInternalError("failed to persist payment order", err)
	}

	s.logger.Info("payment order created",
		"order_ref", orderRef,
		"trade_no", result.TradeNo,
		"expires_at", o.ExpiresAt)

	s.eventBus.Publish(ctx, events.NewOrderCreatedEvent(orderRef, userID, productID, string(payType), amount))

	return &Creation{Order: o, JumpURL: result.JumpURL, Outcome: OutcomeCreated}, nil
}

// GetStatus resolves an order's caller-visible status. A pending order past
// its expiry window reads as expired; no background sweeper rewrites rows.
func (s *OrderService) GetStatus(orderRef string) (*order.PaymentOrder, string, error) {
	o, err := s.repo.GetByRef(orderRef)
	if err != nil {
		if stderrors.Is(err, ErrNotFound) {
			return nil, "", errors.ErrOrderNotFound
		}
		return nil, "", errors.NewInternalError("failed to load order", err)
	}
	return o, o.EffectiveStatus(s.now().UTC()), nil
}

// generateOrderRef builds a collision-resistant order reference in the
// gateway's expected shape. Uniqueness is ultimately enforced by the store's
// unique index on order_ref.
func generateOrderRef() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return fmt.Sprintf("H5_%d_%04d", time.Now().UnixMilli(), suffix)
}
