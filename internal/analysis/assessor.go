package analysis

import (
	"fmt"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/domain"
)

// maxRiskScore caps every score in the pipeline
const maxRiskScore = 100

// Score weights per dimension. A dimension contributing zero points
// contributes no factor statement either.
var (
	countryTierPoints = map[domain.RiskTier]int{
		domain.TierLow:    0,
		domain.TierMedium: 15,
		domain.TierHigh:   35,
	}
	riskProfilePoints = map[domain.RiskProfile]int{
		domain.ProfileLow:    0,
		domain.ProfileMedium: 10,
		domain.ProfileHigh:   25,
	}
	amountBandPoints = map[AmountBand]int{
		AmountBandLow:      0,
		AmountBandMedium:   10,
		AmountBandHigh:     25,
		AmountBandVeryHigh: 40,
	}
)

// RiskPoints is the assessor's weighted contribution to the risk score
type RiskPoints struct {
	Score   int      `json:"score"` // 0-100
	Factors []string `json:"factors"`
}

// Assessor scores customer, geography, and amount risk for one
// transaction. Deterministic given identical inputs.
type Assessor struct {
	cat *catalog.Catalog
}

// NewAssessor creates a risk assessor
func NewAssessor(cat *catalog.Catalog) *Assessor {
	return &Assessor{cat: cat}
}

// Assess computes the weighted risk points and one human-readable
// factor statement per nonzero contributor. Rule evaluation order is
// fixed: amount band, country tier, customer profile, transaction type.
func (a *Assessor) Assess(tx *domain.Transaction, signals StructuralSignals) (RiskPoints, error) {
	score := 0
	factors := make([]string, 0, 4)

	// 1. Amount band for the transaction type
	if pts := amountBandPoints[signals.AmountBand]; pts > 0 {
		score += pts
		factors = append(factors, a.amountFactor(tx, signals.AmountBand))
	}

	// 2. Country risk tier
	if tier, ok := a.cat.Tier(tx.Country); ok {
		if pts := countryTierPoints[tier]; pts > 0 {
			score += pts
			factors = append(factors, countryFactor(tier, tx.Country))
		}
	}

	// 3. Customer risk profile, when present
	if pts := riskProfilePoints[tx.Profile()]; pts > 0 {
		score += pts
		factors = append(factors, profileFactor(tx.Profile()))
	}

	// 4. Transaction type baseline
	if signals.TypeRiskWeight > 0 {
		score += signals.TypeRiskWeight
		factors = append(factors, fmt.Sprintf("Higher-risk transaction type (%s)", tx.Type))
	}

	if score > maxRiskScore {
		score = maxRiskScore
	}

	return RiskPoints{Score: score, Factors: factors}, nil
}

func (a *Assessor) amountFactor(tx *domain.Transaction, band AmountBand) string {
	amount := tx.AmountString()
	switch band {
	case AmountBandVeryHigh:
		return fmt.Sprintf("Very large %s amount (%s)", tx.Type, amount)
	case AmountBandHigh:
		return fmt.Sprintf("Large %s amount (%s)", tx.Type, amount)
	default:
		return fmt.Sprintf("Elevated %s amount (%s)", tx.Type, amount)
	}
}

func countryFactor(tier domain.RiskTier, country string) string {
	if tier == domain.TierHigh {
		return fmt.Sprintf("High-risk jurisdiction (%s)", country)
	}
	return fmt.Sprintf("Medium-risk jurisdiction (%s)", country)
}

func profileFactor(profile domain.RiskProfile) string {
	if profile == domain.ProfileHigh {
		return "Customer has high risk profile"
	}
	return "Customer has medium risk profile"
}
