// Package service wires the analysis engines to the store, cache, and
// alert publisher. Every HTTP operation lands here; the handlers stay
// transport-only and the core packages stay free of I/O.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/banking/fincrime-service/internal/alerts"
	"github.com/banking/fincrime-service/internal/cache"
	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
	"github.com/banking/fincrime-service/internal/generator"
	"github.com/banking/fincrime-service/internal/narrative"
	"github.com/banking/fincrime-service/internal/pkg/logger"
	"github.com/banking/fincrime-service/internal/store"
)

// AnalysisCoordinator produces the fused analysis for one transaction
type AnalysisCoordinator interface {
	Coordinate(ctx context.Context, tx *domain.Transaction, history []domain.Transaction) (*domain.AIAnalysis, error)
}

// Service implements the monitoring operations behind the HTTP surface
type Service struct {
	cat       *catalog.Catalog
	store     *store.TransactionStore
	coord     AnalysisCoordinator
	cache     cache.AnalysisCache
	publisher alerts.Publisher
	renderer  narrative.Renderer
	genCfg    config.GeneratorConfig
	log       *logger.Logger
	tracer    trace.Tracer
}

// New creates the monitoring service
func New(
	cat *catalog.Catalog,
	txStore *store.TransactionStore,
	coord AnalysisCoordinator,
	analysisCache cache.AnalysisCache,
	publisher alerts.Publisher,
	renderer narrative.Renderer,
	genCfg config.GeneratorConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		cat:       cat,
		store:     txStore,
		coord:     coord,
		cache:     analysisCache,
		publisher: publisher,
		renderer:  renderer,
		genCfg:    genCfg,
		log:       log.Named("service"),
		tracer:    otel.Tracer("fincrime-service/service"),
	}
}

// RendererName reports which reasoning renderer is active
func (s *Service) RendererName() string {
	return s.renderer.Name()
}

// GenerateTransactions creates a synthetic batch and adds it to the
// population. A non-nil seed makes the batch reproducible.
func (s *Service) GenerateTransactions(ctx context.Context, count int, highRiskFraction float64, seed *int64) ([]domain.Transaction, error) {
	_, span := s.tracer.Start(ctx, "service.generate_transactions",
		trace.WithAttributes(
			attribute.Int("generate.count", count),
			attribute.Float64("generate.high_risk_fraction", highRiskFraction),
		))
	defer span.End()

	if s.genCfg.MaxBatchSize > 0 && count > s.genCfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: count %d exceeds the batch limit %d",
			domain.ErrInvalidArgument, count, s.genCfg.MaxBatchSize)
	}

	var opts []generator.Option
	if seed != nil {
		opts = append(opts, generator.WithSeed(*seed))
	}
	gen, err := generator.New(s.cat, s.genCfg, opts...)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	txs, err := gen.Generate(count, highRiskFraction)
	if err != nil {
		return nil, err
	}

	highRisk := 0
	for i := range txs {
		if txs[i].IsHighRisk() {
			highRisk++
		}
		if err := s.store.Add(&txs[i]); err != nil {
			return nil, fmt.Errorf("failed to store generated transaction: %w", err)
		}
	}

	s.log.GenerationCompleted(len(txs), highRisk, time.Since(start).Milliseconds())
	return txs, nil
}

// GetTransaction returns one transaction by id
func (s *Service) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	_, span := s.tracer.Start(ctx, "service.get_transaction",
		trace.WithAttributes(attribute.String("transaction.id", id)))
	defer span.End()

	return s.store.Get(id)
}

// QueryTransactions returns the transactions passing the filter
func (s *Service) QueryTransactions(ctx context.Context, filter store.Filter) []domain.Transaction {
	_, span := s.tracer.Start(ctx, "service.query_transactions")
	defer span.End()

	return s.store.Query(filter)
}

// AnalyzeTransaction returns the risk analysis for a stored
// transaction, computing and caching it when absent. An analysis
// ending in escalation is published as an alert.
func (s *Service) AnalyzeTransaction(ctx context.Context, id string) (*domain.AIAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "service.analyze_transaction",
		trace.WithAttributes(attribute.String("transaction.id", id)))
	defer span.End()

	tx, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}

	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.log.Warn("analysis cache read failed", logger.ErrorField(err))
	} else if cached != nil {
		return cached, nil
	}

	history := s.store.ForCustomer(tx.CustomerID)
	result, err := s.coord.Coordinate(ctx, tx, history)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, id, result); err != nil {
		s.log.Warn("analysis cache write failed", logger.ErrorField(err))
	}

	s.publishEscalation(tx, result)
	return result, nil
}

// UpdateStatus moves a transaction through the review workflow and
// invalidates its cached analysis
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.TransactionStatus) (*domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "service.update_status",
		trace.WithAttributes(
			attribute.String("transaction.id", id),
			attribute.String("transaction.status", string(status)),
		))
	defer span.End()

	prior, _ := s.store.Get(id)

	updated, err := s.store.UpdateStatus(id, status)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("analysis cache invalidation failed", logger.ErrorField(err))
	}

	from := ""
	if prior != nil {
		from = string(prior.Status)
	}
	s.log.StatusUpdated(id, from, string(status))
	return updated, nil
}

// Submit accepts an externally sourced transaction: identifiers and
// defaults are backfilled, the risk indicator is always derived (the
// submitted value is never trusted), and the transaction is analyzed
// before it joins the population so nothing malformed is ever stored.
func (s *Service) Submit(ctx context.Context, submitted *domain.Transaction) (*domain.Transaction, *domain.AIAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "service.submit")
	defer span.End()

	if submitted == nil {
		return nil, nil, fmt.Errorf("%w: transaction is nil", domain.ErrInvalidArgument)
	}

	tx := submitted.Clone()

	// 1. Backfill identifiers and defaults.
	if tx.ID == "" {
		tx.ID = newID("TXN-")
	}
	if tx.CustomerID == "" {
		tx.CustomerID = newID("CUST-")
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if tx.Currency == "" {
		if currency, ok := s.cat.Currency(tx.Country); ok {
			tx.Currency = currency
		}
	}

	// 2. Derive the risk classification from the catalog.
	floor, okFloor := s.cat.HighRiskFloor(tx.Type)
	if !okFloor {
		return nil, nil, fmt.Errorf("%w: unknown transaction type %q", domain.ErrInvalidArgument, tx.Type)
	}
	tier, okTier := s.cat.Tier(tx.Country)
	if !okTier {
		return nil, nil, fmt.Errorf("%w: unknown country %q", domain.ErrInvalidArgument, tx.Country)
	}

	tx.RiskIndicator = domain.RiskNormal
	if tx.Amount >= floor || tier == domain.TierHigh {
		tx.RiskIndicator = domain.RiskHigh
	}
	tx.Status = domain.StatusFlagged

	// 3. Analyze before storing; a transaction the analyzer rejects
	// never joins the population.
	history := s.store.ForCustomer(tx.CustomerID)
	result, err := s.coord.Coordinate(ctx, tx, history)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.Add(tx); err != nil {
		return nil, nil, err
	}

	if err := s.cache.Set(ctx, tx.ID, result); err != nil {
		s.log.Warn("analysis cache write failed", logger.ErrorField(err))
	}

	s.publishEscalation(tx, result)
	return tx, result, nil
}

// publishEscalation hands an escalated analysis to the alert publisher.
// Publishing failures degrade to a log line; they never fail the
// analysis.
func (s *Service) publishEscalation(tx *domain.Transaction, result *domain.AIAnalysis) {
	if !result.RequiresEscalation() {
		return
	}

	event := alerts.NewEvent(tx, result)
	if err := s.publisher.Publish(event); err != nil {
		s.log.Warn("alert publish failed", logger.ErrorField(err))
		return
	}
	s.log.AlertPublished(event.EventID, tx.ID, result.RiskScore)
}

func newID(prefix string) string {
	return prefix + strings.ToUpper(uuid.New().String()[:8])
}
