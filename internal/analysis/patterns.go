package analysis

import (
	"fmt"
	"time"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
)

// Per-pattern score contributions
const (
	structuringPoints = 30
	velocityPoints    = 20
	roundTripPoints   = 25
)

// PatternResult holds the detected patterns and their capped score
// contribution
type PatternResult struct {
	Patterns []domain.PatternMatch `json:"patterns"`
	Points   int                   `json:"points"`
}

// PatternEngine detects behavioral patterns in a customer's prior
// transactions. Every rule consults history only, never the analyzed
// transaction's own amount, so growing an amount can never shrink the
// score. Without history the engine reports nothing; it never
// fabricates findings.
type PatternEngine struct {
	cfg          config.PatternsConfig
	ctrThreshold float64
}

// NewPatternEngine creates a pattern engine. The structuring rule keys
// off the catalog's CTR threshold.
func NewPatternEngine(cat *catalog.Catalog, cfg config.PatternsConfig) *PatternEngine {
	return &PatternEngine{
		cfg:          cfg,
		ctrThreshold: cat.Thresholds().CTRAmount,
	}
}

// Detect evaluates structuring, velocity, and round-tripping against
// the customer's prior transactions
func (e *PatternEngine) Detect(tx *domain.Transaction, history []domain.Transaction) (PatternResult, error) {
	if len(history) == 0 {
		return PatternResult{}, nil
	}

	var patterns []domain.PatternMatch
	points := 0

	if match, ok := e.detectStructuring(tx, history); ok {
		patterns = append(patterns, match)
		points += structuringPoints
	}
	if match, ok := e.detectVelocity(tx, history); ok {
		patterns = append(patterns, match)
		points += velocityPoints
	}
	if match, ok := e.detectRoundTripping(tx, history); ok {
		patterns = append(patterns, match)
		points += roundTripPoints
	}

	if e.cfg.MaxPoints > 0 && points > e.cfg.MaxPoints {
		points = e.cfg.MaxPoints
	}

	return PatternResult{Patterns: patterns, Points: points}, nil
}

// detectStructuring looks for repeated prior amounts parked just below
// the reporting threshold inside the structuring window.
func (e *PatternEngine) detectStructuring(tx *domain.Transaction, history []domain.Transaction) (domain.PatternMatch, bool) {
	lower := e.cfg.StructuringNearFraction * e.ctrThreshold

	var related []string
	for _, prior := range e.priorsWithin(tx, history, e.cfg.StructuringWindowHours) {
		if prior.Amount >= lower && prior.Amount < e.ctrThreshold {
			related = append(related, prior.ID)
		}
	}
	if len(related) < e.cfg.StructuringMinTxCount {
		return domain.PatternMatch{}, false
	}

	return domain.PatternMatch{
		PatternType: domain.PatternStructuring,
		Description: fmt.Sprintf("Potential structuring: %d prior transactions just below the reporting threshold within %dh",
			len(related), e.cfg.StructuringWindowHours),
		RelatedTxIDs: related,
	}, true
}

// detectVelocity looks for a transaction-count spike for the customer
// inside the velocity window.
func (e *PatternEngine) detectVelocity(tx *domain.Transaction, history []domain.Transaction) (domain.PatternMatch, bool) {
	priors := e.priorsWithin(tx, history, e.cfg.VelocityWindowHours)
	if len(priors) <= e.cfg.VelocityMaxTxCount {
		return domain.PatternMatch{}, false
	}

	related := make([]string, 0, len(priors))
	for _, prior := range priors {
		related = append(related, prior.ID)
	}

	return domain.PatternMatch{
		PatternType: domain.PatternVelocitySpike,
		Description: fmt.Sprintf("Unusual velocity: %d transactions for the customer within %dh",
			len(priors), e.cfg.VelocityWindowHours),
		RelatedTxIDs: related,
	}, true
}

// detectRoundTripping looks for a material prior flow in the opposite
// direction against the same jurisdiction inside the circularity
// window.
func (e *PatternEngine) detectRoundTripping(tx *domain.Transaction, history []domain.Transaction) (domain.PatternMatch, bool) {
	for _, prior := range e.priorsWithin(tx, history, e.cfg.CircularityWindowHours) {
		if prior.Country != tx.Country || prior.Amount < e.cfg.CircularityMinAmount {
			continue
		}
		if prior.Type.Inbound() == tx.Type.Inbound() {
			continue
		}

		return domain.PatternMatch{
			PatternType: domain.PatternRoundTripping,
			Description: fmt.Sprintf("Opposite-direction flow with the same jurisdiction within %dh suggests round-tripping",
				e.cfg.CircularityWindowHours),
			RelatedTxIDs: []string{prior.ID},
		}, true
	}
	return domain.PatternMatch{}, false
}

// priorsWithin returns the customer's transactions strictly inside the
// trailing window before the analyzed transaction, excluding the
// analyzed transaction itself when the history contains it.
func (e *PatternEngine) priorsWithin(tx *domain.Transaction, history []domain.Transaction, hours int) []domain.Transaction {
	cutoff := tx.Timestamp.Add(-time.Duration(hours) * time.Hour)

	var priors []domain.Transaction
	for _, prior := range history {
		if prior.ID == tx.ID || prior.CustomerID != tx.CustomerID {
			continue
		}
		if prior.Timestamp.After(tx.Timestamp) || !prior.Timestamp.After(cutoff) {
			continue
		}
		priors = append(priors, prior)
	}
	return priors
}
