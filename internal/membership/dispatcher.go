// Package membership turns paid orders into entitlement upgrades on the
// membership service.
package membership

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zhiweijz/membership-payments/internal/catalog"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
)

// UpgradeRequest is the contract of the membership service's upgrade
// endpoint. ExternalTransactionID carries the gateway trade number so the
// membership service can deduplicate on its side as well.
type UpgradeRequest struct {
	UserID                string `json:"userId"`
	MemberType            string `json:"memberType"`
	DurationMonths        int    `json:"durationMonths"`
	RevenueCatUserID      string `json:"revenueCatUserId"`
	Platform              string `json:"platform"`
	ExternalProductID     string `json:"externalProductId"`
	ExternalTransactionID string `json:"externalTransactionId"`
	BillingPeriod         string `json:"billingPeriod"`
	HasCharityAttribution bool   `json:"hasCharityAttribution"`
	HasPrioritySupport    bool   `json:"hasPrioritySupport"`
}

// Upgrader performs the outbound upgrade call. The HTTP client implements
// it; tests substitute a spy.
type Upgrader interface {
	Upgrade(ctx context.Context, req UpgradeRequest) error
}

// Dispatcher maps a paid order to an upgrade request via the catalog.
type Dispatcher struct {
	upgrader Upgrader
	catalog  *catalog.Catalog
	logger   *slog.Logger
}

func NewDispatcher(upgrader Upgrader, cat *catalog.Catalog, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		upgrader: upgrader,
		catalog:  cat,
		logger:   logger,
	}
}

// Dispatch resolves the order's product and requests the upgrade. The caller
// owns idempotency; Dispatch itself performs exactly one outbound call.
func (d *Dispatcher) Dispatch(ctx context.Context, o *order.PaymentOrder) error {
	p, err := d.catalog.Lookup(o.ProductID)
	if err != nil {
		d.logger.Error("paid order references unknown product",
			"order_ref", o.OrderRef,
			"product_id", o.ProductID)
		return fmt.Errorf("resolve product %s: %w", o.ProductID, err)
	}

	transactionID := o.OrderRef
	if o.TradeNo != nil && *o.TradeNo != "" {
		transactionID = *o.TradeNo
	}

	req := UpgradeRequest{
		UserID:                o.UserID,
		MemberType:            p.MembershipTier,
		DurationMonths:        p.Duration.Months(),
		RevenueCatUserID:      "h5_" + o.UserID,
		Platform:              "android",
		ExternalProductID:     p.ID,
		ExternalTransactionID: transactionID,
		BillingPeriod:         string(p.Duration),
		HasCharityAttribution: p.HasCharityAttribution,
		HasPrioritySupport:    p.HasPrioritySupport,
	}

	if err := d.upgrader.Upgrade(ctx, req); err != nil {
		d.logger.Error("membership upgrade failed",
			"error", err,
			"order_ref", o.OrderRef,
			"user_id", o.UserID,
			"member_type", req.MemberType)
		return fmt.Errorf("upgrade membership for order %s: %w", o.OrderRef, err)
	}

	d.logger.Info("membership upgraded",
		"order_ref", o.OrderRef,
		"user_id", o.UserID,
		"member_type", req.MemberType,
		"duration_months", req.DurationMonths,
		"transaction_id", transactionID)

	return nil
}
