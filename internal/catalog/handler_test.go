package catalog_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zhiweijz/membership-payments/internal/catalog"
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/product"
)

var _ = Describe("Handler", func() {
	var handler *catalog.Handler

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		rec := httptest.NewRecorder()
		handler.GetProducts(rec, req)
		return rec
	}

	Describe("GetProducts", func() {
		It("lists the full catalog with per-rail prices", func() {
			handler = catalog.NewHandler(catalog.Default(), logger)

			rec := get()

			Expect(rec.Code).To(Equal(http.StatusOK))

			var resp catalog.ProductsResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Products).To(HaveLen(6))
			Expect(resp.Summary.Total).To(Equal(6))

			first := resp.Products[0]
			Expect(first.ID).To(Equal("zhiweijz_donation_one_monthly"))
			Expect(first.Prices.Wechat).To(Equal(int64(500)))
			Expect(first.Prices.Alipay).To(Equal(int64(500)))
		})

		It("omits inactive products", func() {
			handler = catalog.NewHandler(catalog.New([]product.Product{
				{ID: "live", Duration: product.DurationMonthly, WechatPrice: 100, AlipayPrice: 100, IsActive: true},
				{ID: "retired", Duration: product.DurationMonthly, WechatPrice: 100, AlipayPrice: 100},
			}), logger)

			rec := get()

			var resp catalog.ProductsResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Products).To(HaveLen(1))
			Expect(resp.Products[0].ID).To(Equal("live"))
			Expect(resp.Summary.Active).To(Equal(1))
		})
	})
})
