package order

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zhiweijz/membership-payments/internal/transport"
	"github.com/zhiweijz/membership-payments/pkg/logger"
)

const (
	callbackAck  = "SUCCESS"
	callbackNack = "FAIL"
)

// WebhookHandler receives asynchronous payment notifications from the H5
// gateway. The gateway expects a plain-text body: "SUCCESS" stops
// redelivery, anything else makes it retry later.
type WebhookHandler struct {
	*transport.BaseHandler
	processor *CallbackProcessor
	logger    *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, processor *CallbackProcessor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		processor:   processor,
		logger:      logger,
	}
}

// HandlePaymentCallback handles POST /api/v1/payment-callback
func (h *WebhookHandler) HandlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	var n Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		log.Error("payment callback: invalid request body", "error", err)
		h.writePlain(w, http.StatusBadRequest, callbackNack)
		return
	}

	log.Info("received payment callback",
		"out_trade_no", n.OutTradeNo,
		"trade_no", n.TradeNo,
		"status", n.Status,
		"pay_type", n.PayType)

	err := h.processor.Handle(r.Context(), &n)
	if err == nil {
		h.writePlain(w, http.StatusOK, callbackAck)
		return
	}

	switch {
	case errors.Is(err, ErrCallbackMalformed):
		log.Error("payment callback: missing required fields", "out_trade_no", n.OutTradeNo)
		h.writePlain(w, http.StatusBadRequest, callbackNack)
	case errors.Is(err, ErrBadSignature):
		log.Error("payment callback: signature verification failed", "out_trade_no", n.OutTradeNo)
		h.writePlain(w, http.StatusBadRequest, callbackNack)
	case errors.Is(err, ErrUnknownOrder):
		log.Error("payment callback: no matching order", "out_trade_no", n.OutTradeNo)
		h.writePlain(w, http.StatusNotFound, callbackNack)
	default:
		// Processing failed after verification. A FAIL here makes the
		// gateway redeliver, which retries the membership upgrade.
		log.Error("payment callback: processing failed",
			"error", err,
			"out_trade_no", n.OutTradeNo)
		h.writePlain(w, http.StatusInternalServerError, callbackNack)
	}
}

func (h *WebhookHandler) writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("failed to write callback response", "error", err)
	}
}
