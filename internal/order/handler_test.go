package order_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-chi/chi"

	apperrors "github.com/zhiweijz/membership-payments/internal"
	"github.com/zhiweijz/membership-payments/internal/catalog"
	datamodel "github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	"github.com/zhiweijz/membership-payments/internal/core/events"
	"github.com/zhiweijz/membership-payments/internal/h5gateway"
	orderpkg "github.com/zhiweijz/membership-payments/internal/order"
	"github.com/zhiweijz/membership-payments/internal/signature"
	"github.com/zhiweijz/membership-payments/internal/transport"
)

var _ = Describe("Handler", func() {
	var (
		repo    *mockOrderRepository
		gateway *mockGateway
		handler *orderpkg.Handler
		router  *chi.Mux
	)

	gatewayConfig := &apperrors.GatewayConfig{
		APIBaseURL: "https://open.h5zhifu.com",
		AppID:      "app-1234567890",
		AppSecret:  "secret",
		NotifyURL:  "https://api.example.com/api/v1/payment-callback",
	}

	// Stand-in for the auth middleware.
	asUser := func(userID string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if userID != "" {
					r = r.WithContext(apperrors.ContextWithUserID(r.Context(), userID))
				}
				next.ServeHTTP(w, r)
			})
		}
	}

	buildRouter := func(userID string) {
		router = chi.NewRouter()
		router.Use(asUser(userID))
		router.Post("/orders", handler.CreateOrder)
		router.Get("/orders/{orderRef}/status", handler.GetOrderStatus)
		router.Get("/payment/config-status", handler.GetConfigStatus)
	}

	BeforeEach(func() {
		repo = newMockOrderRepository()
		gateway = &mockGateway{
			result: &h5gateway.CreateOrderResult{
				TradeNo: "T20231114001",
				JumpURL: "https://pay.example.com/cashier/abc",
			},
		}
		logger := testLogger()
		service := orderpkg.NewOrderService(repo, gateway, catalog.Default(), events.NewEventBus(logger), 2*time.Hour, logger)
		handler = orderpkg.NewHandler(service, gatewayConfig, logger)
		buildRouter("user-1")
	})

	Describe("CreateOrder", func() {
		post := func(body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		It("returns 201 with the cashier jump URL", func() {
			rec := post(`{"product_id":"zhiweijz_donation_one_monthly","pay_type":"wechat"}`)

			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp orderpkg.CreateOrderResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Outcome).To(Equal(orderpkg.OutcomeCreated))
			Expect(resp.JumpURL).To(Equal("https://pay.example.com/cashier/abc"))
			Expect(resp.Amount).To(Equal(int64(500)))
		})

		It("returns 202 when the gateway transport failed", func() {
			gateway.err = &h5gateway.TransportError{Err: context.DeadlineExceeded}

			rec := post(`{"product_id":"zhiweijz_donation_one_monthly","pay_type":"wechat"}`)

			Expect(rec.Code).To(Equal(http.StatusAccepted))

			var resp orderpkg.CreateOrderResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Outcome).To(Equal(orderpkg.OutcomeUnknown))
			Expect(resp.JumpURL).To(BeEmpty())
		})

		It("returns 400 for a gateway rejection", func() {
			gateway.err = &h5gateway.RejectedError{Code: 4001, Msg: "invalid app_id"}

			rec := post(`{"product_id":"zhiweijz_donation_one_monthly","pay_type":"wechat"}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 for an unsupported pay type", func() {
			rec := post(`{"product_id":"zhiweijz_donation_one_monthly","pay_type":"paypal"}`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(gateway.requests).To(BeEmpty())
		})

		It("returns 404 for an unknown product", func() {
			rec := post(`{"product_id":"no_such_product","pay_type":"wechat"}`)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed body", func() {
			rec := post(`{`)

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 401 without an authenticated user", func() {
			buildRouter("")

			rec := post(`{"product_id":"zhiweijz_donation_one_monthly","pay_type":"wechat"}`)

			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("GetOrderStatus", func() {
		get := func(orderRef string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/orders/"+orderRef+"/status", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			return rec
		}

		It("returns the order's effective status", func() {
			seeded := &datamodel.PaymentOrder{
				OrderRef:  "H5_1700000000000_0042",
				UserID:    "user-1",
				ProductID: "zhiweijz_donation_one_monthly",
				PayType:   "wechat",
				Amount:    500,
				Status:    datamodel.StatusPending,
				ExpiresAt: time.Now().UTC().Add(2 * time.Hour),
			}
			Expect(repo.Create(seeded)).To(Succeed())

			rec := get("H5_1700000000000_0042")

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp orderpkg.OrderStatusResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal(datamodel.StatusPending))
			Expect(resp.OrderRef).To(Equal("H5_1700000000000_0042"))
		})

		It("returns 404 for another user's order", func() {
			seeded := &datamodel.PaymentOrder{
				OrderRef:  "H5_1700000000000_0042",
				UserID:    "user-2",
				ProductID: "zhiweijz_donation_one_monthly",
				PayType:   "wechat",
				Amount:    500,
				Status:    datamodel.StatusPending,
				ExpiresAt: time.Now().UTC().Add(2 * time.Hour),
			}
			Expect(repo.Create(seeded)).To(Succeed())

			rec := get("H5_1700000000000_0042")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for an unknown order", func() {
			rec := get("H5_1700000000000_9999")

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a ref outside the gateway shape", func() {
			rec := get("DROP-TABLE")

			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GetConfigStatus", func() {
		It("reports the configuration without the secret", func() {
			req := httptest.NewRequest(http.MethodGet, "/payment/config-status", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp orderpkg.ConfigStatusResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Configured).To(BeTrue())
			Expect(resp.AppID).To(HavePrefix("app-"))
			Expect(resp.AppID).To(ContainSubstring("*"))
			Expect(rec.Body.String()).ToNot(ContainSubstring("secret"))
		})
	})
})

var _ = Describe("WebhookHandler", func() {
	var (
		repo       *mockOrderRepository
		codec      *signature.Codec
		dispatcher *spyDispatcher
		handler    *orderpkg.WebhookHandler
	)

	const orderRef = "H5_1700000000000_0042"

	BeforeEach(func() {
		repo = newMockOrderRepository()
		codec = signature.NewCodec("cb-secret")
		dispatcher = &spyDispatcher{}
		logger := testLogger()
		processor := orderpkg.NewCallbackProcessor(repo, codec, dispatcher, events.NewEventBus(logger), logger)
		handler = orderpkg.NewWebhookHandler(transport.NewBaseHandler(logger), processor, logger)

		seeded := &datamodel.PaymentOrder{
			OrderRef:      orderRef,
			UserID:        "user-1",
			ProductID:     "zhiweijz_donation_one_monthly",
			PayType:       "wechat",
			Amount:        500,
			Status:        datamodel.StatusPending,
			UpgradeStatus: datamodel.UpgradePending,
			ExpiresAt:     time.Now().UTC().Add(2 * time.Hour),
		}
		Expect(repo.Create(seeded)).To(Succeed())
	})

	deliver := func(n *orderpkg.Notification) *httptest.ResponseRecorder {
		body, err := json.Marshal(n)
		Expect(err).ToNot(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/payment-callback", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandlePaymentCallback(rec, req)
		return rec
	}

	signed := func(mutate func(*orderpkg.Notification)) *orderpkg.Notification {
		n := &orderpkg.Notification{
			AppID:      "app-42",
			OutTradeNo: orderRef,
			TradeNo:    "T20231114001",
			Amount:     500,
			PayType:    "wechat",
			Status:     "PAID",
			PaidTime:   "2023-11-14 10:30:00",
		}
		if mutate != nil {
			mutate(n)
		}
		n.Sign = codec.Sign(n.SignFields())
		return n
	}

	It("answers SUCCESS in plain text for a processed notification", func() {
		rec := deliver(signed(nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("SUCCESS"))
		Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("text/plain"))
	})

	It("answers SUCCESS for a non-paid status without processing it", func() {
		rec := deliver(signed(func(n *orderpkg.Notification) { n.Status = "CLOSED" }))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("SUCCESS"))
		Expect(dispatcher.callCount()).To(BeZero())
	})

	It("answers 400 FAIL for missing fields", func() {
		n := signed(nil)
		n.TradeNo = ""

		rec := deliver(n)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(Equal("FAIL"))
	})

	It("answers 400 FAIL for a bad signature", func() {
		n := signed(nil)
		n.Sign = "0000000000000000000000000000DEAD"

		rec := deliver(n)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(Equal("FAIL"))
	})

	It("answers 404 FAIL for an unknown order", func() {
		rec := deliver(signed(func(n *orderpkg.Notification) { n.OutTradeNo = "H5_0_0000" }))

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(Equal("FAIL"))
	})

	It("answers 500 FAIL when the upgrade dispatch fails, requesting redelivery", func() {
		dispatcher.err = context.DeadlineExceeded

		rec := deliver(signed(nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).To(Equal("FAIL"))
	})

	It("answers 400 FAIL for an unreadable body", func() {
		req := httptest.NewRequest(http.MethodPost, "/payment-callback", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		handler.HandlePaymentCallback(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(Equal("FAIL"))
	})
})
