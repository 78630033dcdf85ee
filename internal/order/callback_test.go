package order_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	datamodel "github.com/zhiweijz/membership-payments/internal/core/datamodel/order"
	"github.com/zhiweijz/membership-payments/internal/core/events"
	orderpkg "github.com/zhiweijz/membership-payments/internal/order"
	"github.com/zhiweijz/membership-payments/internal/signature"
)

// Spy dispatcher counting upgrade invocations, optionally failing.
type spyDispatcher struct {
	mu        sync.Mutex
	calls     int
	lastOrder *datamodel.PaymentOrder
	err       error
}

func (s *spyDispatcher) Dispatch(ctx context.Context, o *datamodel.PaymentOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastOrder = o
	return s.err
}

func (s *spyDispatcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var _ = Describe("CallbackProcessor", func() {
	var (
		repo       *mockOrderRepository
		codec      *signature.Codec
		dispatcher *spyDispatcher
		processor  *orderpkg.CallbackProcessor
		seeded     *datamodel.PaymentOrder
	)

	const orderRef = "H5_1700000000000_0042"

	signedNotification := func(mutate func(*orderpkg.Notification)) *orderpkg.Notification {
		n := &orderpkg.Notification{
			AppID:      "app-42",
			OutTradeNo: orderRef,
			TradeNo:    "T20231114001",
			Amount:     500,
			PayType:    "wechat",
			Status:     "PAID",
			PaidTime:   "2023-11-14 10:30:00",
			Attach:     `{"userId":"user-1"}`,
		}
		if mutate != nil {
			mutate(n)
		}
		n.Sign = codec.Sign(n.SignFields())
		return n
	}

	BeforeEach(func() {
		repo = newMockOrderRepository()
		codec = signature.NewCodec("cb-secret")
		dispatcher = &spyDispatcher{}
		logger := testLogger()
		processor = orderpkg.NewCallbackProcessor(repo, codec, dispatcher, events.NewEventBus(logger), logger)

		seeded = &datamodel.PaymentOrder{
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

	Context("with a valid paid notification", func() {
		It("marks the order paid and dispatches the upgrade once", func() {
			err := processor.Handle(context.Background(), signedNotification(nil))

			Expect(err).ToNot(HaveOccurred())
			Expect(dispatcher.callCount()).To(Equal(1))
			Expect(dispatcher.lastOrder.UserID).To(Equal("user-1"))

			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.Status).To(Equal(datamodel.StatusPaid))
			Expect(stored.UpgradeStatus).To(Equal(datamodel.UpgradeDone))
			Expect(*stored.TradeNo).To(Equal("T20231114001"))
			Expect(stored.PaidAt).ToNot(BeNil())
			Expect(stored.PaidAt.Year()).To(Equal(2023))
		})

		It("passes the reloaded order, with its trade number, to the dispatcher", func() {
			Expect(processor.Handle(context.Background(), signedNotification(nil))).To(Succeed())

			Expect(dispatcher.lastOrder.TradeNo).ToNot(BeNil())
			Expect(*dispatcher.lastOrder.TradeNo).To(Equal("T20231114001"))
		})
	})

	Context("with a redelivered notification", func() {
		It("acknowledges without a second upgrade", func() {
			n := signedNotification(nil)

			Expect(processor.Handle(context.Background(), n)).To(Succeed())
			Expect(processor.Handle(context.Background(), n)).To(Succeed())

			Expect(dispatcher.callCount()).To(Equal(1))
		})

		It("keeps the first delivery's payment facts", func() {
			Expect(processor.Handle(context.Background(), signedNotification(nil))).To(Succeed())
			first, _ := repo.GetByRef(orderRef)

			later := signedNotification(func(n *orderpkg.Notification) {
				n.TradeNo = "T-other"
				n.PaidTime = "2024-01-01 00:00:00"
			})
			Expect(processor.Handle(context.Background(), later)).To(Succeed())

			stored, _ := repo.GetByRef(orderRef)
			Expect(*stored.TradeNo).To(Equal(*first.TradeNo))
			Expect(stored.PaidAt.Equal(*first.PaidAt)).To(BeTrue())
		})
	})

	Context("with concurrent deliveries of the same notification", func() {
		It("dispatches exactly one upgrade", func() {
			n := signedNotification(nil)

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = processor.Handle(context.Background(), n)
				}()
			}
			wg.Wait()

			Expect(dispatcher.callCount()).To(Equal(1))
			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.Status).To(Equal(datamodel.StatusPaid))
		})
	})

	Context("with a non-paid status", func() {
		It("acknowledges without touching the order", func() {
			n := signedNotification(func(n *orderpkg.Notification) {
				n.Status = "CLOSED"
			})

			Expect(processor.Handle(context.Background(), n)).To(Succeed())

			Expect(dispatcher.callCount()).To(BeZero())
			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.Status).To(Equal(datamodel.StatusPending))
		})
	})

	Context("with missing required fields", func() {
		It("rejects the delivery as malformed", func() {
			n := signedNotification(nil)
			n.TradeNo = ""

			err := processor.Handle(context.Background(), n)

			Expect(err).To(MatchError(orderpkg.ErrCallbackMalformed))
			Expect(dispatcher.callCount()).To(BeZero())
		})
	})

	Context("with a bad signature", func() {
		It("rejects the delivery before loading the order", func() {
			n := signedNotification(nil)
			n.Amount = 999999

			err := processor.Handle(context.Background(), n)

			Expect(err).To(MatchError(orderpkg.ErrBadSignature))
			Expect(dispatcher.callCount()).To(BeZero())

			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.Status).To(Equal(datamodel.StatusPending))
		})
	})

	Context("with a notification for an unknown order", func() {
		It("rejects the delivery", func() {
			n := signedNotification(func(n *orderpkg.Notification) {
				n.OutTradeNo = "H5_0_0000"
			})

			err := processor.Handle(context.Background(), n)

			Expect(err).To(MatchError(orderpkg.ErrUnknownOrder))
			Expect(dispatcher.callCount()).To(BeZero())
		})
	})

	Context("when the upgrade dispatch fails", func() {
		It("keeps the order paid, releases the claim, and asks for redelivery", func() {
			dispatcher.err = errors.New("membership service down")

			err := processor.Handle(context.Background(), signedNotification(nil))

			Expect(err).To(HaveOccurred())
			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.Status).To(Equal(datamodel.StatusPaid))
			Expect(stored.UpgradeStatus).To(Equal(datamodel.UpgradePending))
		})

		It("lets a later redelivery complete the upgrade", func() {
			dispatcher.err = errors.New("membership service down")
			n := signedNotification(nil)
			Expect(processor.Handle(context.Background(), n)).ToNot(Succeed())

			dispatcher.err = nil
			Expect(processor.Handle(context.Background(), n)).To(Succeed())

			Expect(dispatcher.callCount()).To(Equal(2))
			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.UpgradeStatus).To(Equal(datamodel.UpgradeDone))
		})
	})

	Context("with an amount that differs from the order", func() {
		It("still applies the authenticated payment", func() {
			n := signedNotification(func(n *orderpkg.Notification) {
				n.Amount = 600
			})

			Expect(processor.Handle(context.Background(), n)).To(Succeed())

			stored, _ := repo.GetByRef(orderRef)
			Expect(stored.Status).To(Equal(datamodel.StatusPaid))
		})
	})

	Context("with an unparsable paid time", func() {
		It("falls back to the processing time", func() {
			n := signedNotification(func(n *orderpkg.Notification) {
				n.PaidTime = "not-a-time"
			})

			before := time.Now().UTC()
			Expect(processor.Handle(context.Background(), n)).To(Succeed())

			stored, _ := repo.GetByRef(orderRef)
			Expect(*stored.PaidAt).To(BeTemporally("~", before, 5*time.Second))
		})
	})
})
