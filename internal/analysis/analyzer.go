// Package analysis implements the risk-analysis pipeline: four
// deterministic sub-analyses (structural, weighted assessment,
// compliance rules, behavioral patterns) fused by a coordinator into
// one explainable result per transaction.
package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
)

// ErrInvalidTransaction is returned when a transaction is structurally
// unfit for analysis. It wraps domain.ErrInvalidArgument so callers can
// map it uniformly at the API boundary.
var ErrInvalidTransaction = fmt.Errorf("invalid transaction: %w", domain.ErrInvalidArgument)

// AmountBand positions an amount within the catalog ranges for its
// transaction type. Bands are ordered low to very high.
type AmountBand int

const (
	AmountBandLow AmountBand = iota
	AmountBandMedium
	AmountBandHigh
	AmountBandVeryHigh
)

// String returns the band name
func (b AmountBand) String() string {
	switch b {
	case AmountBandVeryHigh:
		return "veryHigh"
	case AmountBandHigh:
		return "high"
	case AmountBandMedium:
		return "medium"
	default:
		return "low"
	}
}

const (
	// defaultVeryHighMultiplier scales the high-risk floor to the very
	// high band when the configured multiplier is unusable.
	defaultVeryHighMultiplier = 2.0

	// roundAmountUnit is the divisor for the round-amount structuring
	// signal.
	roundAmountUnit = 1000

	// Off-hours window, hour of day in the transaction's own location.
	offHoursStart = 22
	offHoursEnd   = 6
)

// Baseline score offsets per transaction type. Transfers move funds
// between parties and carry the highest inherent exposure.
var typeRiskWeights = map[domain.TransactionType]int{
	domain.TypeTransfer:   10,
	domain.TypeDeposit:    5,
	domain.TypeWithdrawal: 5,
	domain.TypePayment:    0,
}

// StructuralSignals are the observations extracted from a single
// transaction without reference to customer history.
type StructuralSignals struct {
	// AmountBand positions the amount against the type's catalog ranges.
	AmountBand AmountBand
	// IsRoundAmount is set when the amount divides evenly by a large
	// round unit, a classic structuring signal.
	IsRoundAmount bool
	// IsOffHours is set when the timestamp falls between 22:00 and 06:00.
	IsOffHours bool
	// TypeRiskWeight is the baseline score offset for the type.
	TypeRiskWeight int
}

// Elevated reports whether the structural signals alone point at
// elevated risk.
func (s StructuralSignals) Elevated() bool {
	return s.AmountBand >= AmountBandHigh || s.IsRoundAmount || s.IsOffHours
}

// Analyzer extracts structural signals from one transaction. Pure
// function of its input: no side effects, no history.
type Analyzer struct {
	cat                *catalog.Catalog
	veryHighMultiplier float64
}

// NewAnalyzer creates a transaction analyzer
func NewAnalyzer(cat *catalog.Catalog, cfg config.AnalysisConfig) *Analyzer {
	multiplier := cfg.VeryHighAmountMultiplier
	if multiplier <= 1 {
		multiplier = defaultVeryHighMultiplier
	}
	return &Analyzer{cat: cat, veryHighMultiplier: multiplier}
}

// Analyze extracts structural signals from a transaction. Well-formed
// input never fails; a non-positive amount, unknown type or country, or
// a currency inconsistent with the catalog returns ErrInvalidTransaction.
func (a *Analyzer) Analyze(tx *domain.Transaction) (StructuralSignals, error) {
	if tx == nil {
		return StructuralSignals{}, fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)
	}
	if tx.Amount <= 0 {
		return StructuralSignals{}, fmt.Errorf("%w: amount must be positive, got %.2f", ErrInvalidTransaction, tx.Amount)
	}
	ranges, ok := a.cat.Ranges(tx.Type)
	if !ok {
		return StructuralSignals{}, fmt.Errorf("%w: unknown transaction type %q", ErrInvalidTransaction, tx.Type)
	}
	currency, ok := a.cat.Currency(tx.Country)
	if !ok {
		return StructuralSignals{}, fmt.Errorf("%w: unknown country %q", ErrInvalidTransaction, tx.Country)
	}
	if tx.Currency != currency {
		return StructuralSignals{}, fmt.Errorf("%w: currency %s inconsistent with %s (expected %s)",
			ErrInvalidTransaction, tx.Currency, tx.Country, currency)
	}

	return StructuralSignals{
		AmountBand:     a.amountBand(tx.Amount, ranges),
		IsRoundAmount:  math.Mod(tx.Amount, roundAmountUnit) == 0,
		IsOffHours:     isOffHours(tx.Timestamp),
		TypeRiskWeight: typeRiskWeights[tx.Type],
	}, nil
}

func (a *Analyzer) amountBand(amount float64, ranges catalog.TypeRanges) AmountBand {
	floor := ranges.HighRisk.Floor
	switch {
	case amount >= floor*a.veryHighMultiplier:
		return AmountBandVeryHigh
	case amount >= floor:
		return AmountBandHigh
	case amount >= ranges.Normal.Ceiling/2:
		return AmountBandMedium
	default:
		return AmountBandLow
	}
}

func isOffHours(ts time.Time) bool {
	hour := ts.Hour()
	return hour >= offHoursStart || hour < offHoursEnd
}
