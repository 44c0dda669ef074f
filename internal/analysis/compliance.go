package analysis

import (
	"fmt"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/domain"
)

// ComplianceResult holds the triggered rules for one transaction. Any
// breach forces the recommended action to Escalate downstream,
// regardless of the numeric score.
type ComplianceResult struct {
	Breaches         []domain.ComplianceBreach `json:"breaches"`
	ForcedEscalation bool                      `json:"forcedEscalation"`
}

// Checker evaluates hard compliance rules against one transaction.
// Thresholds come from the catalog; rules run in a fixed order so
// breach descriptions land in a deterministic sequence.
type Checker struct {
	thresholds catalog.Thresholds
	cat        *catalog.Catalog
}

// NewChecker creates a compliance checker
func NewChecker(cat *catalog.Catalog) *Checker {
	return &Checker{
		thresholds: cat.Thresholds(),
		cat:        cat,
	}
}

// Check evaluates the compliance rules in order: CTR threshold,
// high-risk jurisdiction, cross-border transfer. Never fails for
// well-formed input.
func (c *Checker) Check(tx *domain.Transaction) (ComplianceResult, error) {
	var breaches []domain.ComplianceBreach

	// 1. Currency transaction reporting threshold
	if tx.Amount >= c.thresholds.CTRAmount {
		breaches = append(breaches, domain.ComplianceBreach{
			Rule: domain.RuleCTRThreshold,
			Description: fmt.Sprintf("Amount meets the CTR reporting threshold (%s)",
				domain.FormatAmount(tx.Currency, c.thresholds.CTRAmount)),
		})
	}

	// 2. High-risk jurisdiction list
	if c.cat.IsHighRiskCountry(tx.Country) {
		breaches = append(breaches, domain.ComplianceBreach{
			Rule:        domain.RuleHighRiskJurisdiction,
			Description: fmt.Sprintf("Transaction involves high-risk jurisdiction (%s)", tx.Country),
		})
	}

	// 3. Cross-border transfer above the secondary threshold
	if tx.Type == domain.TypeTransfer && tx.Country != c.thresholds.HomeCountry && tx.Amount >= c.thresholds.CrossBorderAmount {
		breaches = append(breaches, domain.ComplianceBreach{
			Rule: domain.RuleCrossBorderTransfer,
			Description: fmt.Sprintf("Cross-border transfer above the secondary reporting threshold (%s)",
				domain.FormatAmount(tx.Currency, c.thresholds.CrossBorderAmount)),
		})
	}

	return ComplianceResult{
		Breaches:         breaches,
		ForcedEscalation: len(breaches) > 0,
	}, nil
}
