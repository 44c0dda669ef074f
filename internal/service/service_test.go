package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banking/fincrime-service/internal/alerts"
	"github.com/banking/fincrime-service/internal/analysis"
	"github.com/banking/fincrime-service/internal/cache"
	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
	"github.com/banking/fincrime-service/internal/narrative"
	"github.com/banking/fincrime-service/internal/pkg/logger"
	"github.com/banking/fincrime-service/internal/store"
)

var serviceTime = time.Date(2025, 6, 10, 14, 30, 0, 0, time.UTC)

// countingRenderer counts Render calls so tests can tell a cached
// analysis from a recomputed one.
type countingRenderer struct {
	inner narrative.Renderer
	calls int
}

func (r *countingRenderer) Render(ctx context.Context, input narrative.RenderInput) (string, error) {
	r.calls++
	return r.inner.Render(ctx, input)
}

func (r *countingRenderer) Name() string { return r.inner.Name() }

type capturePublisher struct {
	events []alerts.Event
	err    error
}

func (p *capturePublisher) Publish(event alerts.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

type fixture struct {
	svc       *Service
	store     *store.TransactionStore
	renderer  *countingRenderer
	publisher *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cat, err := catalog.New(catalog.DefaultData())
	require.NoError(t, err)

	analysisCfg := config.AnalysisConfig{
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
	patternsCfg := config.PatternsConfig{
		StructuringWindowHours:  24,
		StructuringMinTxCount:   3,
		StructuringNearFraction: 0.8,
		VelocityWindowHours:     24,
		VelocityMaxTxCount:      5,
		CircularityWindowHours:  72,
		CircularityMinAmount:    1000,
		MaxPoints:               40,
	}

	log := logger.NewNop()
	renderer := &countingRenderer{inner: narrative.NewTemplateRenderer()}
	coord := analysis.NewCoordinator(
		analysis.NewAnalyzer(cat, analysisCfg),
		analysis.NewAssessor(cat),
		analysis.NewChecker(cat),
		analysis.NewPatternEngine(cat, patternsCfg),
		renderer,
		cat,
		analysisCfg,
		log,
	)

	txStore := store.New()
	publisher := &capturePublisher{}
	genCfg := config.GeneratorConfig{WindowDays: 30, MaxBatchSize: 100}

	svc := New(cat, txStore, coord, cache.NewMemoryCache(time.Hour), publisher, renderer, genCfg, log)
	return &fixture{svc: svc, store: txStore, renderer: renderer, publisher: publisher}
}

func serviceTx(id string, txType domain.TransactionType, amount float64, country string) *domain.Transaction {
	return &domain.Transaction{
		ID:            id,
		CustomerID:    "CUST-" + id,
		Amount:        amount,
		Currency:      "SGD",
		Country:       country,
		Type:          txType,
		RiskIndicator: domain.RiskNormal,
		Status:        domain.StatusFlagged,
		Timestamp:     serviceTime,
	}
}

func TestGenerateTransactionsStoresBatch(t *testing.T) {
	fx := newFixture(t)
	seed := int64(42)

	txs, err := fx.svc.GenerateTransactions(context.Background(), 20, 0.3, &seed)
	require.NoError(t, err)
	require.Len(t, txs, 20)
	assert.Equal(t, 20, fx.store.Len())

	highRisk := 0
	for _, tx := range txs {
		if tx.IsHighRisk() {
			highRisk++
		}
		stored, err := fx.svc.GetTransaction(context.Background(), tx.ID)
		require.NoError(t, err)
		assert.Equal(t, tx.Amount, stored.Amount)
		assert.Equal(t, domain.StatusFlagged, stored.Status)
	}
	assert.Equal(t, 6, highRisk)
}

func TestGenerateTransactionsSeededDeterminism(t *testing.T) {
	seed := int64(7)

	first, err := newFixture(t).svc.GenerateTransactions(context.Background(), 15, 0.4, &seed)
	require.NoError(t, err)
	second, err := newFixture(t).svc.GenerateTransactions(context.Background(), 15, 0.4, &seed)
	require.NoError(t, err)
	require.Len(t, second, len(first))

	// Timestamps carry the wall clock, so compare the stable fields
	// after aligning on id.
	byID := func(txs []domain.Transaction) {
		sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
	}
	byID(first)
	byID(second)

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].CustomerID, second[i].CustomerID)
		assert.Equal(t, first[i].Type, second[i].Type)
		assert.Equal(t, first[i].Amount, second[i].Amount)
		assert.Equal(t, first[i].Country, second[i].Country)
		assert.Equal(t, first[i].Currency, second[i].Currency)
		assert.Equal(t, first[i].RiskIndicator, second[i].RiskIndicator)
	}
}

func TestGenerateTransactionsRejectsBadParameters(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.GenerateTransactions(context.Background(), 101, 0.3, nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = fx.svc.GenerateTransactions(context.Background(), 10, 1.5, nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, 0, fx.store.Len())
}

func TestAnalyzeTransactionCachesResult(t *testing.T) {
	fx := newFixture(t)
	tx := serviceTx("TXN-CACHE001", domain.TypeWithdrawal, 1200, "United Kingdom")
	tx.CustomerInfo = &domain.CustomerInfo{Name: "Sarah Wong", AccountType: "Personal", RiskProfile: domain.ProfileLow}
	require.NoError(t, fx.store.Add(tx))

	first, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, first.RiskScore)
	assert.Equal(t, domain.ActionDismiss, first.RecommendedAction)

	second, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fx.renderer.calls)
}

func TestAnalyzeTransactionUnknownID(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.AnalyzeTransaction(context.Background(), "TXN-MISSING1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAnalyzeEscalationPublishesAlert(t *testing.T) {
	fx := newFixture(t)
	tx := serviceTx("TXN-ESCAL001", domain.TypeDeposit, 75000, "Cayman Islands")
	tx.RiskIndicator = domain.RiskHigh
	require.NoError(t, fx.store.Add(tx))

	result, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ActionEscalate, result.RecommendedAction)

	require.Len(t, fx.publisher.events, 1)
	event := fx.publisher.events[0]
	assert.Equal(t, tx.ID, event.TransactionID)
	assert.Equal(t, tx.CustomerID, event.CustomerID)
	assert.Equal(t, 80, event.RiskScore)
	assert.Equal(t, "Very high risk - deposit in Cayman Islands from high-risk entity", event.RiskAssessment)
	assert.Equal(t, domain.ActionEscalate, event.RecommendedAction)
	assert.Equal(t, result.Factors, event.Factors)

	// A cache hit returns before the alert stage, so re-reading the
	// analysis never duplicates the event.
	_, err = fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Len(t, fx.publisher.events, 1)
}

func TestAnalyzeDismissedTransactionDoesNotAlert(t *testing.T) {
	fx := newFixture(t)
	tx := serviceTx("TXN-QUIET001", domain.TypeWithdrawal, 1200, "United Kingdom")
	require.NoError(t, fx.store.Add(tx))

	result, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ActionDismiss, result.RecommendedAction)
	assert.Empty(t, fx.publisher.events)
}

func TestAnalyzePublishFailureDoesNotFailAnalysis(t *testing.T) {
	fx := newFixture(t)
	fx.publisher.err = errors.New("broker unreachable")
	tx := serviceTx("TXN-ESCAL002", domain.TypeDeposit, 75000, "Cayman Islands")
	require.NoError(t, fx.store.Add(tx))

	result, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionEscalate, result.RecommendedAction)
	assert.Empty(t, fx.publisher.events)
}

func TestUpdateStatusInvalidatesCachedAnalysis(t *testing.T) {
	fx := newFixture(t)
	tx := serviceTx("TXN-REVIEW01", domain.TypeWithdrawal, 1200, "United Kingdom")
	require.NoError(t, fx.store.Add(tx))

	_, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fx.renderer.calls)

	updated, err := fx.svc.UpdateStatus(context.Background(), tx.ID, domain.StatusReviewed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReviewed, updated.Status)

	_, err = fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.renderer.calls)
}

func TestUpdateStatusUnknownID(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.UpdateStatus(context.Background(), "TXN-MISSING1", domain.StatusReviewed)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueryTransactionsAppliesFilter(t *testing.T) {
	fx := newFixture(t)
	flagged := serviceTx("TXN-AAAA0001", domain.TypePayment, 250, "Japan")
	reviewed := serviceTx("TXN-BBBB0002", domain.TypePayment, 250, "Germany")
	reviewed.Status = domain.StatusReviewed
	require.NoError(t, fx.store.Add(flagged))
	require.NoError(t, fx.store.Add(reviewed))

	got := fx.svc.QueryTransactions(context.Background(), store.Filter{Status: string(domain.StatusReviewed)})
	require.Len(t, got, 1)
	assert.Equal(t, reviewed.ID, got[0].ID)

	all := fx.svc.QueryTransactions(context.Background(), store.Filter{})
	assert.Len(t, all, 2)
}

func TestSubmitBackfillsIdentityAndDefaults(t *testing.T) {
	fx := newFixture(t)

	tx, result, err := fx.svc.Submit(context.Background(), &domain.Transaction{
		Amount:  75000,
		Country: "Cayman Islands",
		Type:    domain.TypeDeposit,
	})
	require.NoError(t, err)

	assert.Regexp(t, `^TXN-[0-9A-F]{8}$`, tx.ID)
	assert.Regexp(t, `^CUST-[0-9A-F]{8}$`, tx.CustomerID)
	assert.Equal(t, "SGD", tx.Currency)
	assert.WithinDuration(t, time.Now().UTC(), tx.Timestamp, 5*time.Second)
	assert.Equal(t, domain.RiskHigh, tx.RiskIndicator)
	assert.Equal(t, domain.StatusFlagged, tx.Status)

	require.NotNil(t, result)
	assert.Equal(t, 80, result.RiskScore)
	assert.Equal(t, domain.ActionEscalate, result.RecommendedAction)
	assert.Equal(t, 90, result.Confidence)

	stored, err := fx.svc.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx, stored)

	require.Len(t, fx.publisher.events, 1)
	assert.Equal(t, tx.ID, fx.publisher.events[0].TransactionID)

	// The submission analysis is cached; reading it back does not
	// recompute.
	calls := fx.renderer.calls
	again, err := fx.svc.AnalyzeTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Equal(t, calls, fx.renderer.calls)
}

func TestSubmitDerivesRiskIndicator(t *testing.T) {
	cases := []struct {
		name      string
		txType    domain.TransactionType
		amount    float64
		country   string
		submitted domain.RiskIndicator
		want      domain.RiskIndicator
	}{
		{"small amount in low-tier country stays normal", domain.TypePayment, 100, "Japan", domain.RiskHigh, domain.RiskNormal},
		{"amount at the high-risk floor flips high", domain.TypePayment, 5000, "Japan", domain.RiskNormal, domain.RiskHigh},
		{"high-tier country flips high", domain.TypePayment, 100, "Panama", domain.RiskNormal, domain.RiskHigh},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)

			tx, _, err := fx.svc.Submit(context.Background(), &domain.Transaction{
				Amount:        tc.amount,
				Country:       tc.country,
				Type:          tc.txType,
				RiskIndicator: tc.submitted,
				Status:        domain.StatusReviewed,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, tx.RiskIndicator)
			assert.Equal(t, domain.StatusFlagged, tx.Status)
		})
	}
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		tx   *domain.Transaction
	}{
		{"nil transaction", nil},
		{"unknown type", &domain.Transaction{Amount: 100, Country: "Japan", Type: domain.TransactionType("loan")}},
		{"unknown country", &domain.Transaction{Amount: 100, Country: "Atlantis", Type: domain.TypePayment}},
		{"non-positive amount", &domain.Transaction{Amount: -5, Country: "Japan", Type: domain.TypeDeposit}},
		{"currency mismatch", &domain.Transaction{Amount: 100, Country: "Japan", Type: domain.TypePayment, Currency: "USD"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t)

			_, _, err := fx.svc.Submit(context.Background(), tc.tx)
			require.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Equal(t, 0, fx.store.Len())
			assert.Empty(t, fx.publisher.events)
		})
	}
}

func TestSubmitPreservesProvidedIdentity(t *testing.T) {
	fx := newFixture(t)
	submitted := serviceTx("TXN-PROVIDED", domain.TypePayment, 250, "Germany")

	tx, _, err := fx.svc.Submit(context.Background(), submitted)
	require.NoError(t, err)
	assert.Equal(t, "TXN-PROVIDED", tx.ID)
	assert.Equal(t, "CUST-TXN-PROVIDED", tx.CustomerID)
	assert.True(t, tx.Timestamp.Equal(serviceTime))

	// A second submission with the same id is a duplicate.
	_, _, err = fx.svc.Submit(context.Background(), submitted)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Equal(t, 1, fx.store.Len())
}

func TestRendererName(t *testing.T) {
	fx := newFixture(t)
	assert.Equal(t, "deterministic-template", fx.svc.RendererName())
}
