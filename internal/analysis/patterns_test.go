package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
)

func testPatternsConfig() config.PatternsConfig {
	return config.PatternsConfig{
		StructuringWindowHours:  24,
		StructuringMinTxCount:   3,
		StructuringNearFraction: 0.8,
		VelocityWindowHours:     24,
		VelocityMaxTxCount:      5,
		CircularityWindowHours:  72,
		CircularityMinAmount:    1000,
		MaxPoints:               40,
	}
}

func testPatternEngine(t *testing.T) *PatternEngine {
	t.Helper()
	return NewPatternEngine(testCatalog(t), testPatternsConfig())
}

// priorTx builds a history entry for the same customer and country as
// tx, timestamped age before it.
func priorTx(id string, tx *domain.Transaction, txType domain.TransactionType, amount float64, age time.Duration) domain.Transaction {
	return domain.Transaction{
		ID:            id,
		CustomerID:    tx.CustomerID,
		Amount:        amount,
		Currency:      tx.Currency,
		Country:       tx.Country,
		Type:          txType,
		RiskIndicator: domain.RiskNormal,
		Status:        domain.StatusFlagged,
		Timestamp:     tx.Timestamp.Add(-age),
	}
}

func patternTypes(result PatternResult) []domain.PatternType {
	types := make([]domain.PatternType, 0, len(result.Patterns))
	for _, p := range result.Patterns {
		types = append(types, p.PatternType)
	}
	return types
}

func TestDetectEmptyHistory(t *testing.T) {
	engine := testPatternEngine(t)

	result, err := engine.Detect(testTx(domain.TypePayment, 9500, "Japan"), nil)
	require.NoError(t, err)

	assert.Empty(t, result.Patterns)
	assert.Zero(t, result.Points)
}

func TestDetectStructuring(t *testing.T) {
	engine := testPatternEngine(t)
	tx := testTx(domain.TypePayment, 9500, "Japan")

	t.Run("three near-threshold priors", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-PRIOR001", tx, domain.TypePayment, 8500, 1*time.Hour),
			priorTx("TXN-PRIOR002", tx, domain.TypePayment, 9000, 2*time.Hour),
			priorTx("TXN-PRIOR003", tx, domain.TypePayment, 9900, 3*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)

		require.Len(t, result.Patterns, 1)
		match := result.Patterns[0]
		assert.Equal(t, domain.PatternStructuring, match.PatternType)
		assert.Equal(t, "Potential structuring: 3 prior transactions just below the reporting threshold within 24h", match.Description)
		assert.ElementsMatch(t, []string{"TXN-PRIOR001", "TXN-PRIOR002", "TXN-PRIOR003"}, match.RelatedTxIDs)
		assert.Equal(t, 30, result.Points)
	})

	t.Run("two priors is not enough", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-PRIOR001", tx, domain.TypePayment, 8500, 1*time.Hour),
			priorTx("TXN-PRIOR002", tx, domain.TypePayment, 9000, 2*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})

	t.Run("amounts outside the near band do not count", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-PRIOR001", tx, domain.TypePayment, 8500, 1*time.Hour),
			priorTx("TXN-PRIOR002", tx, domain.TypePayment, 9000, 2*time.Hour),
			// At the threshold: reportable, not structuring.
			priorTx("TXN-PRIOR003", tx, domain.TypeDeposit, 10000, 3*time.Hour),
			// Below the near fraction.
			priorTx("TXN-PRIOR004", tx, domain.TypePayment, 7999.99, 4*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.NotContains(t, patternTypes(result), domain.PatternStructuring)
	})

	t.Run("priors outside the window do not count", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-PRIOR001", tx, domain.TypePayment, 8500, 1*time.Hour),
			priorTx("TXN-PRIOR002", tx, domain.TypePayment, 9000, 2*time.Hour),
			priorTx("TXN-PRIOR003", tx, domain.TypePayment, 9900, 25*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.NotContains(t, patternTypes(result), domain.PatternStructuring)
	})
}

func TestDetectVelocity(t *testing.T) {
	engine := testPatternEngine(t)
	tx := testTx(domain.TypePayment, 300, "Japan")

	buildPriors := func(n int) []domain.Transaction {
		history := make([]domain.Transaction, 0, n)
		for i := 0; i < n; i++ {
			id := string(rune('A' + i))
			history = append(history, priorTx("TXN-VEL"+id, tx, domain.TypePayment, 150, time.Duration(i+1)*time.Hour))
		}
		return history
	}

	t.Run("six priors in the window", func(t *testing.T) {
		result, err := engine.Detect(tx, buildPriors(6))
		require.NoError(t, err)

		require.Len(t, result.Patterns, 1)
		match := result.Patterns[0]
		assert.Equal(t, domain.PatternVelocitySpike, match.PatternType)
		assert.Equal(t, "Unusual velocity: 6 transactions for the customer within 24h", match.Description)
		assert.Len(t, match.RelatedTxIDs, 6)
		assert.Equal(t, 20, result.Points)
	})

	t.Run("five priors stays quiet", func(t *testing.T) {
		result, err := engine.Detect(tx, buildPriors(5))
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})
}

func TestDetectRoundTripping(t *testing.T) {
	engine := testPatternEngine(t)
	tx := testTx(domain.TypeWithdrawal, 2500, "Japan")

	t.Run("opposite direction same jurisdiction", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-RT000001", tx, domain.TypeDeposit, 2400, 48*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)

		require.Len(t, result.Patterns, 1)
		match := result.Patterns[0]
		assert.Equal(t, domain.PatternRoundTripping, match.PatternType)
		assert.Equal(t, []string{"TXN-RT000001"}, match.RelatedTxIDs)
		assert.Equal(t, 25, result.Points)
	})

	t.Run("same direction does not pair", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-RT000001", tx, domain.TypePayment, 2400, 48*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})

	t.Run("different jurisdiction does not pair", func(t *testing.T) {
		prior := priorTx("TXN-RT000001", tx, domain.TypeDeposit, 2400, 48*time.Hour)
		prior.Country = "Germany"

		result, err := engine.Detect(tx, []domain.Transaction{prior})
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})

	t.Run("immaterial amount does not pair", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-RT000001", tx, domain.TypeDeposit, 999.99, 48*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})

	t.Run("stale prior does not pair", func(t *testing.T) {
		history := []domain.Transaction{
			priorTx("TXN-RT000001", tx, domain.TypeDeposit, 2400, 73*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})
}

func TestDetectPointsCapped(t *testing.T) {
	engine := testPatternEngine(t)
	tx := testTx(domain.TypeWithdrawal, 500, "Japan")

	// Deposits in the structuring band trip structuring and round-tripping;
	// six priors trip velocity. 30+20+25 exceeds the cap.
	history := []domain.Transaction{
		priorTx("TXN-CAP00001", tx, domain.TypeDeposit, 8500, 1*time.Hour),
		priorTx("TXN-CAP00002", tx, domain.TypeDeposit, 9000, 2*time.Hour),
		priorTx("TXN-CAP00003", tx, domain.TypeDeposit, 9900, 3*time.Hour),
		priorTx("TXN-CAP00004", tx, domain.TypePayment, 100, 4*time.Hour),
		priorTx("TXN-CAP00005", tx, domain.TypePayment, 100, 5*time.Hour),
		priorTx("TXN-CAP00006", tx, domain.TypePayment, 100, 6*time.Hour),
	}

	result, err := engine.Detect(tx, history)
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.PatternType{
		domain.PatternStructuring,
		domain.PatternVelocitySpike,
		domain.PatternRoundTripping,
	}, patternTypes(result))
	assert.Equal(t, 40, result.Points)
}

func TestDetectScopesHistory(t *testing.T) {
	engine := testPatternEngine(t)
	tx := testTx(domain.TypePayment, 9500, "Japan")

	t.Run("other customers excluded", func(t *testing.T) {
		history := make([]domain.Transaction, 0, 3)
		for i, amount := range []float64{8500, 9000, 9900} {
			prior := priorTx("TXN-OTHER00"+string(rune('1'+i)), tx, domain.TypePayment, amount, time.Duration(i+1)*time.Hour)
			prior.CustomerID = "CUST-STRANGER"
			history = append(history, prior)
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.Empty(t, result.Patterns)
	})

	t.Run("analyzed transaction excluded from its own history", func(t *testing.T) {
		history := []domain.Transaction{
			*tx,
			priorTx("TXN-SELF0001", tx, domain.TypePayment, 8500, 1*time.Hour),
			priorTx("TXN-SELF0002", tx, domain.TypePayment, 9000, 2*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.NotContains(t, patternTypes(result), domain.PatternStructuring)
	})

	t.Run("later transactions excluded", func(t *testing.T) {
		later := priorTx("TXN-LATER001", tx, domain.TypePayment, 9000, -time.Hour)
		history := []domain.Transaction{
			later,
			priorTx("TXN-SELF0001", tx, domain.TypePayment, 8500, 1*time.Hour),
			priorTx("TXN-SELF0002", tx, domain.TypePayment, 9000, 2*time.Hour),
		}

		result, err := engine.Detect(tx, history)
		require.NoError(t, err)
		assert.NotContains(t, patternTypes(result), domain.PatternStructuring)
	})
}
