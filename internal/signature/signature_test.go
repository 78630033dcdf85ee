package signature

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestSignature(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Signature Suite")
}

var _ = Describe("Codec", func() {
	var codec *Codec

	BeforeEach(func() {
		codec = NewCodec("test-secret")
	})

	Describe("Sign", func() {
		It("produces an uppercase hex MD5 digest", func() {
			sign := codec.Sign(map[string]interface{}{"a": "1"})

			Expect(sign).To(HaveLen(32))
			Expect(sign).To(Equal(strings.ToUpper(sign)))
		})

		It("canonicalizes fields in bytewise key order", func() {
			fields := map[string]interface{}{
				"out_trade_no": "H5_1_0001",
				"app_id":       "app123",
				"amount":       int64(500),
			}

			sum := md5.Sum([]byte("amount=500&app_id=app123&out_trade_no=H5_1_0001&key=test-secret"))
			expected := strings.ToUpper(hex.EncodeToString(sum[:]))

			Expect(codec.Sign(fields)).To(Equal(expected))
		})

		It("is independent of map construction order", func() {
			first := codec.Sign(map[string]interface{}{
				"a": "1", "b": "2", "c": "3",
			})
			second := codec.Sign(map[string]interface{}{
				"c": "3", "a": "1", "b": "2",
			})

			Expect(first).To(Equal(second))
		})

		It("excludes empty and nil values from the canonical string", func() {
			with := codec.Sign(map[string]interface{}{
				"a": "1", "attach": "", "memo": nil,
			})
			without := codec.Sign(map[string]interface{}{"a": "1"})

			Expect(with).To(Equal(without))
		})

		It("renders JSON-decoded numbers like native integers", func() {
			asInt := codec.Sign(map[string]interface{}{"amount": int64(1500)})
			asFloat := codec.Sign(map[string]interface{}{"amount": float64(1500)})

			Expect(asFloat).To(Equal(asInt))
		})

		It("changes when the secret changes", func() {
			other := NewCodec("other-secret")
			fields := map[string]interface{}{"a": "1"}

			Expect(codec.Sign(fields)).ToNot(Equal(other.Sign(fields)))
		})
	})

	Describe("Verify", func() {
		var fields map[string]interface{}

		BeforeEach(func() {
			fields = map[string]interface{}{
				"appId":      "app123",
				"outTradeNo": "H5_1700000000000_0042",
				"tradeNo":    "T20231114001",
				"amount":     int64(500),
				"status":     "PAID",
			}
		})

		It("accepts a signature produced over the same fields", func() {
			Expect(codec.Verify(fields, codec.Sign(fields))).To(BeTrue())
		})

		It("accepts a lowercase rendition of a valid signature", func() {
			Expect(codec.Verify(fields, strings.ToLower(codec.Sign(fields)))).To(BeTrue())
		})

		It("rejects a signature after any field is tampered with", func() {
			sign := codec.Sign(fields)
			fields["amount"] = int64(1)

			Expect(codec.Verify(fields, sign)).To(BeFalse())
		})

		It("rejects a signature made with another secret", func() {
			other := NewCodec("other-secret")

			Expect(codec.Verify(fields, other.Sign(fields))).To(BeFalse())
		})

		It("rejects an empty signature", func() {
			Expect(codec.Verify(fields, "")).To(BeFalse())
		})
	})
})
