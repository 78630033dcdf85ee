package catalog

import "github.com/zhiweijz/membership-payments/internal/core/datamodel/product"

// ProductPrices exposes the per-rail amounts in fen.
type ProductPrices struct {
	Wechat int64 `json:"wechat"`
	Alipay int64 `json:"alipay"`
}

type ProductResponse struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Description           string        `json:"description"`
	MembershipTier        string        `json:"membership_tier"`
	Duration              string        `json:"duration"`
	Prices                ProductPrices `json:"prices"`
	DisplayPrice          string        `json:"display_price"`
	OriginalPrice         string        `json:"original_price,omitempty"`
	DiscountPercentage    int           `json:"discount_percentage,omitempty"`
	MonthlyPoints         int           `json:"monthly_points"`
	HasCharityAttribution bool          `json:"has_charity_attribution"`
	HasPrioritySupport    bool          `json:"has_priority_support"`
	IsPopular             bool          `json:"is_popular,omitempty"`
	SortOrder             int           `json:"sort_order"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Summary  Summary           `json:"summary"`
}

func NewProductResponse(p product.Product) ProductResponse {
	return ProductResponse{
		ID:                    p.ID,
		Name:                  p.Name,
		Description:           p.Description,
		MembershipTier:        p.MembershipTier,
		Duration:              string(p.Duration),
		Prices:                ProductPrices{Wechat: p.WechatPrice, Alipay: p.AlipayPrice},
		DisplayPrice:          p.DisplayPrice,
		OriginalPrice:         p.OriginalPrice,
		DiscountPercentage:    p.DiscountPercentage,
		MonthlyPoints:         p.MonthlyPoints,
		HasCharityAttribution: p.HasCharityAttribution,
		HasPrioritySupport:    p.HasPrioritySupport,
		IsPopular:             p.IsPopular,
		SortOrder:             p.SortOrder,
	}
}
