// Package catalog holds the read-only risk knowledge base: jurisdiction
// tiers, per-type amount ranges, merchant categories, and compliance
// thresholds. A Catalog is constructed once at startup and injected;
// there is no package-level singleton so tests can substitute alternate
// risk tables.
package catalog

import (
	"fmt"
	"sort"

	"github.com/banking/fincrime-service/internal/domain"
)

// AmountRange bounds transaction amounts for one (type, risk bucket)
type AmountRange struct {
	Floor   float64
	Ceiling float64
}

// Contains reports whether amount falls within [Floor, Ceiling]
func (r AmountRange) Contains(amount float64) bool {
	return amount >= r.Floor && amount <= r.Ceiling
}

// TypeRanges holds the normal and high-risk amount ranges for one
// transaction type. The two must not overlap: HighRisk.Floor is the
// high-risk threshold for the type.
type TypeRanges struct {
	Normal   AmountRange
	HighRisk AmountRange
}

// CountryProfile tags one jurisdiction with its risk tier and
// operating currency
type CountryProfile struct {
	Tier     domain.RiskTier
	Currency string
}

// Thresholds holds the compliance rule constants
type Thresholds struct {
	// CTRAmount is the currency-transaction-report threshold.
	CTRAmount float64
	// CrossBorderAmount is the secondary threshold for cross-border
	// transfers.
	CrossBorderAmount float64
	// HomeCountry is the operating jurisdiction; transfers elsewhere
	// count as cross-border.
	HomeCountry string
}

// Data is the raw material a Catalog is built from
type Data struct {
	Countries          map[string]CountryProfile
	Ranges             map[domain.TransactionType]TypeRanges
	MerchantCategories []string
	AccountTypes       []string
	Thresholds         Thresholds
}

// Catalog is the validated, immutable lookup layer
type Catalog struct {
	countries       map[string]CountryProfile
	countriesByTier map[domain.RiskTier][]string
	ranges          map[domain.TransactionType]TypeRanges
	categories      []string
	accountTypes    []string
	thresholds      Thresholds
}

// New validates data and builds a Catalog. Malformed ranges or
// countries return a configuration error; the caller must treat that
// as fatal and refuse to serve.
func New(data Data) (*Catalog, error) {
	if len(data.Countries) == 0 {
		return nil, fmt.Errorf("%w: no countries defined", domain.ErrConfiguration)
	}
	if len(data.Ranges) == 0 {
		return nil, fmt.Errorf("%w: no amount ranges defined", domain.ErrConfiguration)
	}

	byTier := make(map[domain.RiskTier][]string)
	for name, profile := range data.Countries {
		switch profile.Tier {
		case domain.TierLow, domain.TierMedium, domain.TierHigh:
		default:
			return nil, fmt.Errorf("%w: country %q has unknown risk tier %q", domain.ErrConfiguration, name, profile.Tier)
		}
		if profile.Currency == "" {
			return nil, fmt.Errorf("%w: country %q has no currency", domain.ErrConfiguration, name)
		}
		byTier[profile.Tier] = append(byTier[profile.Tier], name)
	}
	// Stable iteration order for generators and tests.
	for tier := range byTier {
		sort.Strings(byTier[tier])
	}

	for txType, ranges := range data.Ranges {
		if !txType.Valid() {
			return nil, fmt.Errorf("%w: ranges defined for unknown transaction type %q", domain.ErrConfiguration, txType)
		}
		if err := validateRange("normal", txType, ranges.Normal); err != nil {
			return nil, err
		}
		if err := validateRange("high-risk", txType, ranges.HighRisk); err != nil {
			return nil, err
		}
		if ranges.HighRisk.Floor < ranges.Normal.Ceiling {
			return nil, fmt.Errorf("%w: %s high-risk floor %.2f below normal ceiling %.2f",
				domain.ErrConfiguration, txType, ranges.HighRisk.Floor, ranges.Normal.Ceiling)
		}
	}
	for _, txType := range domain.TransactionTypes {
		if _, ok := data.Ranges[txType]; !ok {
			return nil, fmt.Errorf("%w: no amount ranges for transaction type %q", domain.ErrConfiguration, txType)
		}
	}

	if data.Thresholds.CTRAmount <= 0 {
		return nil, fmt.Errorf("%w: CTR threshold must be positive, got %.2f", domain.ErrConfiguration, data.Thresholds.CTRAmount)
	}
	if data.Thresholds.CrossBorderAmount <= 0 {
		return nil, fmt.Errorf("%w: cross-border threshold must be positive, got %.2f", domain.ErrConfiguration, data.Thresholds.CrossBorderAmount)
	}

	return &Catalog{
		countries:       data.Countries,
		countriesByTier: byTier,
		ranges:          data.Ranges,
		categories:      append([]string(nil), data.MerchantCategories...),
		accountTypes:    append([]string(nil), data.AccountTypes...),
		thresholds:      data.Thresholds,
	}, nil
}

func validateRange(label string, txType domain.TransactionType, r AmountRange) error {
	if r.Floor <= 0 {
		return fmt.Errorf("%w: %s %s range floor must be positive, got %.2f", domain.ErrConfiguration, txType, label, r.Floor)
	}
	if r.Floor > r.Ceiling {
		return fmt.Errorf("%w: %s %s range floor %.2f above ceiling %.2f", domain.ErrConfiguration, txType, label, r.Floor, r.Ceiling)
	}
	return nil
}

// Tier returns the risk tier for a country
func (c *Catalog) Tier(country string) (domain.RiskTier, bool) {
	profile, ok := c.countries[country]
	return profile.Tier, ok
}

// Currency returns the operating currency for a country
func (c *Catalog) Currency(country string) (string, bool) {
	profile, ok := c.countries[country]
	return profile.Currency, ok
}

// IsHighRiskCountry reports whether a country sits in the high tier
func (c *Catalog) IsHighRiskCountry(country string) bool {
	tier, ok := c.Tier(country)
	return ok && tier == domain.TierHigh
}

// Countries returns the jurisdictions in a tier, sorted by name
func (c *Catalog) Countries(tier domain.RiskTier) []string {
	return c.countriesByTier[tier]
}

// Ranges returns the amount ranges for a transaction type
func (c *Catalog) Ranges(txType domain.TransactionType) (TypeRanges, bool) {
	r, ok := c.ranges[txType]
	return r, ok
}

// HighRiskFloor returns the high-risk amount threshold for a type
func (c *Catalog) HighRiskFloor(txType domain.TransactionType) (float64, bool) {
	r, ok := c.ranges[txType]
	if !ok {
		return 0, false
	}
	return r.HighRisk.Floor, true
}

// MerchantCategories returns the known merchant categories
func (c *Catalog) MerchantCategories() []string {
	return c.categories
}

// AccountTypes returns the known customer account types
func (c *Catalog) AccountTypes() []string {
	return c.accountTypes
}

// Thresholds returns the compliance thresholds
func (c *Catalog) Thresholds() Thresholds {
	return c.thresholds
}
