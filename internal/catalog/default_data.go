package catalog

import (
	"github.com/banking/fincrime-service/internal/domain"
)

// The service operates in SGD across all monitored jurisdictions.
const defaultCurrency = "SGD"

var lowRiskCountries = []string{
	"USA", "Canada", "United Kingdom", "Germany", "France", "Japan",
	"Australia", "New Zealand", "Sweden", "Norway", "Denmark", "Finland",
}

var mediumRiskCountries = []string{
	"Mexico", "Brazil", "India", "China", "South Africa", "Turkey",
	"Saudi Arabia", "UAE", "Thailand", "Malaysia",
}

var highRiskCountries = []string{
	"Russia", "Belarus", "North Korea", "Iran", "Afghanistan", "Syria",
	"Venezuela", "Cayman Islands", "Panama", "Cyprus",
}

var merchantCategories = []string{
	"Retail", "Technology", "Financial Services", "Healthcare", "Travel",
	"Entertainment", "Manufacturing", "Energy", "Construction", "Telecommunications",
	"Real Estate", "Hospitality", "Mining", "Logistics", "Gambling",
}

var accountTypes = []string{
	"Personal", "Business", "Private Banking", "Corporate",
}

// DefaultData returns the built-in risk tables. The high-risk floor of
// each type doubles as the normal range's ceiling, so the two buckets
// partition the amount axis per type.
func DefaultData() Data {
	countries := make(map[string]CountryProfile, 32)
	for _, name := range lowRiskCountries {
		countries[name] = CountryProfile{Tier: domain.TierLow, Currency: defaultCurrency}
	}
	for _, name := range mediumRiskCountries {
		countries[name] = CountryProfile{Tier: domain.TierMedium, Currency: defaultCurrency}
	}
	for _, name := range highRiskCountries {
		countries[name] = CountryProfile{Tier: domain.TierHigh, Currency: defaultCurrency}
	}

	return Data{
		Countries: countries,
		Ranges: map[domain.TransactionType]TypeRanges{
			domain.TypeTransfer: {
				Normal:   AmountRange{Floor: 500, Ceiling: 50_000},
				HighRisk: AmountRange{Floor: 50_000, Ceiling: 2_000_000},
			},
			domain.TypeDeposit: {
				Normal:   AmountRange{Floor: 200, Ceiling: 25_000},
				HighRisk: AmountRange{Floor: 25_000, Ceiling: 800_000},
			},
			domain.TypeWithdrawal: {
				Normal:   AmountRange{Floor: 100, Ceiling: 15_000},
				HighRisk: AmountRange{Floor: 15_000, Ceiling: 200_000},
			},
			domain.TypePayment: {
				Normal:   AmountRange{Floor: 50, Ceiling: 5_000},
				HighRisk: AmountRange{Floor: 5_000, Ceiling: 150_000},
			},
		},
		MerchantCategories: merchantCategories,
		AccountTypes:       accountTypes,
		Thresholds: Thresholds{
			CTRAmount:         10_000,
			CrossBorderAmount: 3_000,
			HomeCountry:       "Singapore",
		},
	}
}
