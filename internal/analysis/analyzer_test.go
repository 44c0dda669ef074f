package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	cat, err := catalog.New(catalog.DefaultData())
	require.NoError(t, err)
	return cat
}

func testAnalysisConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		BandVeryHigh:             80,
		BandHigh:                 60,
		BandMedium:               40,
		ActionEscalate:           70,
		ActionMonitor:            40,
		VeryHighAmountMultiplier: 2.0,
		BaseConfidence:           60,
		AgreementConfidence:      10,
		DegradedConfidenceCap:    50,
		MaxLatency:               200 * time.Millisecond,
	}
}

// businessHours is a weekday mid-afternoon timestamp
var businessHours = time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

func testTx(txType domain.TransactionType, amount float64, country string) *domain.Transaction {
	return &domain.Transaction{
		ID:            "TXN-0000000A",
		CustomerID:    "CUST-0000000A",
		Amount:        amount,
		Currency:      "SGD",
		Country:       country,
		Type:          txType,
		RiskIndicator: domain.RiskNormal,
		Status:        domain.StatusFlagged,
		Timestamp:     businessHours,
	}
}

func TestAnalyzeAmountBands(t *testing.T) {
	analyzer := NewAnalyzer(testCatalog(t), testAnalysisConfig())

	tests := []struct {
		name   string
		txType domain.TransactionType
		amount float64
		want   AmountBand
	}{
		{"deposit below half normal ceiling", domain.TypeDeposit, 12000, AmountBandLow},
		{"deposit at half normal ceiling", domain.TypeDeposit, 12500, AmountBandMedium},
		{"deposit just under high floor", domain.TypeDeposit, 24999.99, AmountBandMedium},
		{"deposit at high floor", domain.TypeDeposit, 25000, AmountBandHigh},
		{"deposit at twice high floor", domain.TypeDeposit, 50000, AmountBandVeryHigh},
		{"deposit well past twice high floor", domain.TypeDeposit, 75000, AmountBandVeryHigh},
		{"withdrawal small", domain.TypeWithdrawal, 1200, AmountBandLow},
		{"transfer at high floor", domain.TypeTransfer, 50000, AmountBandHigh},
		{"transfer at very high", domain.TypeTransfer, 100000, AmountBandVeryHigh},
		{"payment at high floor", domain.TypePayment, 5000, AmountBandHigh},
		{"payment at very high", domain.TypePayment, 10000, AmountBandVeryHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals, err := analyzer.Analyze(testTx(tt.txType, tt.amount, "Japan"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, signals.AmountBand)
		})
	}
}

func TestAnalyzeStructuralSignals(t *testing.T) {
	analyzer := NewAnalyzer(testCatalog(t), testAnalysisConfig())

	t.Run("round amounts", func(t *testing.T) {
		round, err := analyzer.Analyze(testTx(domain.TypeDeposit, 9000, "Japan"))
		require.NoError(t, err)
		assert.True(t, round.IsRoundAmount)

		odd, err := analyzer.Analyze(testTx(domain.TypeDeposit, 9123.45, "Japan"))
		require.NoError(t, err)
		assert.False(t, odd.IsRoundAmount)
	})

	t.Run("off hours window", func(t *testing.T) {
		tests := []struct {
			hour int
			want bool
		}{
			{23, true},
			{3, true},
			{22, true},
			{6, false},
			{12, false},
			{21, false},
		}
		for _, tt := range tests {
			tx := testTx(domain.TypePayment, 200, "Japan")
			tx.Timestamp = time.Date(2025, 6, 10, tt.hour, 15, 0, 0, time.UTC)
			signals, err := analyzer.Analyze(tx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, signals.IsOffHours, "hour %d", tt.hour)
		}
	})

	t.Run("type risk weights", func(t *testing.T) {
		weights := map[domain.TransactionType]int{
			domain.TypeTransfer:   10,
			domain.TypeDeposit:    5,
			domain.TypeWithdrawal: 5,
			domain.TypePayment:    0,
		}
		for txType, want := range weights {
			signals, err := analyzer.Analyze(testTx(txType, 600, "Japan"))
			require.NoError(t, err)
			assert.Equal(t, want, signals.TypeRiskWeight, "type %s", txType)
		}
	})
}

func TestAnalyzeElevated(t *testing.T) {
	analyzer := NewAnalyzer(testCatalog(t), testAnalysisConfig())

	high, err := analyzer.Analyze(testTx(domain.TypeDeposit, 30000, "Japan"))
	require.NoError(t, err)
	assert.True(t, high.Elevated())

	quiet, err := analyzer.Analyze(testTx(domain.TypeWithdrawal, 1234.56, "Japan"))
	require.NoError(t, err)
	assert.False(t, quiet.Elevated())
}

func TestAnalyzeInvalidTransaction(t *testing.T) {
	analyzer := NewAnalyzer(testCatalog(t), testAnalysisConfig())

	tests := []struct {
		name   string
		mutate func(*domain.Transaction)
	}{
		{"zero amount", func(tx *domain.Transaction) { tx.Amount = 0 }},
		{"negative amount", func(tx *domain.Transaction) { tx.Amount = -5 }},
		{"unknown type", func(tx *domain.Transaction) { tx.Type = "loan" }},
		{"unknown country", func(tx *domain.Transaction) { tx.Country = "Atlantis" }},
		{"currency mismatch", func(tx *domain.Transaction) { tx.Currency = "USD" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := testTx(domain.TypeDeposit, 500, "Japan")
			tt.mutate(tx)

			_, err := analyzer.Analyze(tx)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransaction)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}

	t.Run("nil transaction", func(t *testing.T) {
		_, err := analyzer.Analyze(nil)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}
