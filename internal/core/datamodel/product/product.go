package product

// PayType is the payment rail an order is settled over.
type PayType string

const (
	PayTypeWechat PayType = "wechat"
	PayTypeAlipay PayType = "alipay"
)

func (p PayType) Valid() bool {
	return p == PayTypeWechat || p == PayTypeAlipay
}

// Duration is the billing period of a subscription product.
type Duration string

const (
	DurationMonthly Duration = "monthly"
	DurationYearly  Duration = "yearly"
)

// Months is the entitlement length granted per purchase.
func (d Duration) Months() int {
	if d == DurationYearly {
		return 12
	}
	return 1
}

// Product is one purchasable membership definition. Instances are immutable
// catalog data, safe to share across goroutines.
type Product struct {
	ID           string `json:"id"`
	IOSProductID string `json:"iosProductId"`
	Name         string `json:"name"`
	Description  string `json:"description"`

	MembershipTier string   `json:"membershipTier"`
	Duration       Duration `json:"duration"`

	// Prices in minor currency units (fen).
	WechatPrice int64 `json:"-"`
	AlipayPrice int64 `json:"-"`

	DisplayPrice       string `json:"displayPrice"`
	OriginalPrice      string `json:"originalPrice,omitempty"`
	DiscountPercentage int    `json:"discountPercentage,omitempty"`

	MonthlyPoints          int  `json:"monthlyPoints"`
	HasCharityAttribution  bool `json:"hasCharityAttribution"`
	HasPrioritySupport     bool `json:"hasPrioritySupport"`

	IsPopular bool `json:"isPopular,omitempty"`
	SortOrder int  `json:"sortOrder"`
	IsActive  bool `json:"-"`
}

// PriceFor returns the amount for the given rail, or 0 when the rail is
// not supported.
func (p *Product) PriceFor(payType PayType) int64 {
	switch payType {
	case PayTypeWechat:
		return p.WechatPrice
	case PayTypeAlipay:
		return p.AlipayPrice
	default:
		return 0
	}
}
