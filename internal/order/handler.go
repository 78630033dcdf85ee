package order

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	errors "github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/product"
	"github.com/zhiweijz/membership-payments/internal/transport"
)

// ServiceAPI is the order lifecycle surface the HTTP layer depends on.
type ServiceAPI interface {
	CreateOrder(ctx context.Context, userID, productID string, payType product.PayType) (*Creation, error)
	GetStatus(orderRef string) (*order.PaymentOrder, string, error)
}

type Handler struct {
	transport.BaseHandler
	Service       ServiceAPI
	GatewayConfig *errors.GatewayConfig
	Logger        *slog.Logger
}

func NewHandler(service ServiceAPI, gatewayConfig *errors.GatewayConfig, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:   *transport.NewBaseHandler(logger),
		Service:       service,
		GatewayConfig: gatewayConfig,
		Logger:        logger,
	}
}

// CreateOrder handles POST /api/v1/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.Logger.Error("CreateOrder: user not found in context")
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	var dto CreateOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateOrder: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	if err := dto.Validate(); err != nil {
		h.Logger.Error("CreateOrder: validation error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	creation, err := h.Service.CreateOrder(r.Context(), userID, dto.ProductID, product.PayType(dto.PayType))
	if err != nil {
		h.Logger.Error("CreateOrder: service error",
			"error", err,
			"user_id", userID,
			"product_id", dto.ProductID,
			"pay_type", dto.PayType)
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if creation.Outcome == OutcomeUnknown {
		// The gateway never answered; the order may or may not exist there.
		status = http.StatusAccepted
	}

	h.WriteJSON(w, status, NewCreateOrderResponse(creation))
}

// GetOrderStatus handles GET /api/v1/orders/{orderRef}/status
func (h *Handler) GetOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID := errors.UserIDFromContext(r.Context())
	if userID == "" {
		h.HandleError(w, errors.NewUnauthorizedError("authentication required", errors.ErrCodeInvalidToken))
		return
	}

	orderRef := chi.URLParam(r, "orderRef")
	if orderRef == "" || !strings.HasPrefix(orderRef, "H5_") {
		h.HandleError(w, errors.NewValidationError("invalid order reference", errors.ErrCodeInvalidOrderRef))
		return
	}

	o, effectiveStatus, err := h.Service.GetStatus(orderRef)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	// Orders are only visible to the user that opened them.
	if o.UserID != userID {
		h.Logger.Warn("GetOrderStatus: order belongs to another user",
			"order_ref", orderRef,
			"owner", o.UserID,
			"caller", userID)
		h.HandleError(w, errors.ErrOrderNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewOrderStatusResponse(o, effectiveStatus))
}

// ConfigStatusResponse reports whether the gateway credentials are present,
// without disclosing them.
type ConfigStatusResponse struct {
	Configured bool   `json:"configured"`
	AppID      string `json:"app_id,omitempty"`
	APIBaseURL string `json:"api_base_url,omitempty"`
	NotifyURL  string `json:"notify_url,omitempty"`
}

// GetConfigStatus handles GET /api/v1/payment/config-status. It exists for
// deploy-time diagnosis: a gateway with missing credentials fails every
// order, and this endpoint shows that without leaking the secret.
func (h *Handler) GetConfigStatus(w http.ResponseWriter, r *http.Request) {
	cfg := h.GatewayConfig

	resp := ConfigStatusResponse{
		Configured: cfg.Validate() == nil,
		AppID:      maskIdentifier(cfg.AppID),
		APIBaseURL: cfg.APIBaseURL,
		NotifyURL:  cfg.NotifyURL,
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func maskIdentifier(s string) string {
	if len(s) <= 4 {
		return s
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}
