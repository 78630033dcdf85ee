package catalog

import (
	"github.com/zhiweijz/membership-payments/internal/core/datamodel/product"
)

// The H5 channel sells the same six donation memberships as the iOS app.
// Monthly members accrue 1000 points per month, yearly members 1500; tiers
// two and three add charity attribution, tier three adds priority support.
var defaultProducts = []product.Product{
	{
		ID:             "zhiweijz_donation_one_monthly",
		IOSProductID:   "cn.jacksonz.zhiweijz.donation.one.monthly",
		Name:           "捐赠会员（壹）",
		Description:    "1000点/月会员记账点，支持应用发展",
		MembershipTier: "DONATION_ONE",
		Duration:       product.DurationMonthly,
		WechatPrice:    500,
		AlipayPrice:    500,
		DisplayPrice:   "¥5",
		MonthlyPoints:  1000,
		SortOrder:      1,
		IsActive:       true,
	},
	{
		ID:                    "zhiweijz_donation_two_monthly",
		IOSProductID:          "cn.jacksonz.zhiweijz.donation.two.monthly",
		Name:                  "捐赠会员（贰）",
		Description:           "1000点/月会员记账点，50%费用（税后）用于公益事业，并获取署名权",
		MembershipTier:        "DONATION_TWO",
		Duration:              product.DurationMonthly,
		WechatPrice:           1000,
		AlipayPrice:           1000,
		DisplayPrice:          "¥10",
		MonthlyPoints:         1000,
		HasCharityAttribution: true,
		IsPopular:             true,
		SortOrder:             2,
		IsActive:              true,
	},
	{
		ID:                    "zhiweijz_donation_three_monthly",
		IOSProductID:          "cn.jacksonz.zhiweijz.donation.three.monthly",
		Name:                  "捐赠会员（叁）",
		Description:           "1000点/月会员记账点，50%费用（税后）用于公益事业，并获取署名权，优先客服支持",
		MembershipTier:        "DONATION_THREE",
		Duration:              product.DurationMonthly,
		WechatPrice:           1500,
		AlipayPrice:           1500,
		DisplayPrice:          "¥15",
		MonthlyPoints:         1000,
		HasCharityAttribution: true,
		HasPrioritySupport:    true,
		SortOrder:             3,
		IsActive:              true,
	},
	{
		ID:                 "zhiweijz_donation_one_yearly",
		IOSProductID:       "cn.jacksonz.zhiweijz.donation.one.yearly",
		Name:               "年费捐赠会员（壹）",
		Description:        "1500点/月会员记账点，年付更优惠",
		MembershipTier:     "DONATION_ONE",
		Duration:           product.DurationYearly,
		WechatPrice:        5500,
		AlipayPrice:        5500,
		DisplayPrice:       "¥55",
		OriginalPrice:      "¥60",
		DiscountPercentage: 8,
		MonthlyPoints:      1500,
		SortOrder:          4,
		IsActive:           true,
	},
	{
		ID:                    "zhiweijz_donation_two_yearly",
		IOSProductID:          "cn.jacksonz.zhiweijz.donation.two.yearly",
		Name:                  "年费捐赠会员（贰）",
		Description:           "1500点/月会员记账点，50%费用（税后）用于公益事业，并获取署名权，年付更优惠",
		MembershipTier:        "DONATION_TWO",
		Duration:              product.DurationYearly,
		WechatPrice:           11000,
		AlipayPrice:           11000,
		DisplayPrice:          "¥110",
		OriginalPrice:         "¥120",
		DiscountPercentage:    8,
		MonthlyPoints:         1500,
		HasCharityAttribution: true,
		SortOrder:             5,
		IsActive:              true,
	},
	{
		ID:                    "zhiweijz_donation_three_yearly",
		IOSProductID:          "cn.jacksonz.zhiweijz.donation.three.yearly",
		Name:                  "年费捐赠会员（叁）",
		Description:           "1500点/月会员记账点，50%费用（税后）用于公益事业，并获取署名权，优先客服支持，年付更优惠",
		MembershipTier:        "DONATION_THREE",
		Duration:              product.DurationYearly,
		WechatPrice:           16500,
		AlipayPrice:           16500,
		DisplayPrice:          "¥165",
		OriginalPrice:         "¥180",
		DiscountPercentage:    8,
		MonthlyPoints:         1500,
		HasCharityAttribution: true,
		HasPrioritySupport:    true,
		SortOrder:             6,
		IsActive:              true,
	},
}
