package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banking/fincrime-service/internal/catalog"
	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
	"github.com/banking/fincrime-service/internal/narrative"
	"github.com/banking/fincrime-service/internal/pkg/logger"
)

// maxConfidence caps the confidence value
const maxConfidence = 100

// degradedEntry replaces a sub-report entry whose dimension failed
const degradedEntry = "Unavailable - sub-analysis degraded"

// Sub-analysis dimension names, used for degradation tracking and logs
const (
	dimAnalyzer   = "analyzer"
	dimAssessor   = "assessor"
	dimCompliance = "compliance"
	dimPatterns   = "patterns"
)

// TransactionAnalyzer extracts structural signals from one transaction
type TransactionAnalyzer interface {
	Analyze(tx *domain.Transaction) (StructuralSignals, error)
}

// RiskAssessor scores a transaction given its structural signals
type RiskAssessor interface {
	Assess(tx *domain.Transaction, signals StructuralSignals) (RiskPoints, error)
}

// ComplianceChecker evaluates hard compliance rules
type ComplianceChecker interface {
	Check(tx *domain.Transaction) (ComplianceResult, error)
}

// PatternDetector detects behavioral patterns against customer history
type PatternDetector interface {
	Detect(tx *domain.Transaction, history []domain.Transaction) (PatternResult, error)
}

// Coordinator fuses the four sub-analyses into one AIAnalysis. The
// sub-analyses share no mutable state and run in parallel. A dimension
// that fails unexpectedly is excluded from the result and the capped
// confidence makes the omission visible; partial analysis beats no
// analysis.
type Coordinator struct {
	analyzer   TransactionAnalyzer
	assessor   RiskAssessor
	compliance ComplianceChecker
	patterns   PatternDetector
	renderer   narrative.Renderer
	fallback   narrative.Renderer

	cat     *catalog.Catalog
	bands   domain.ScoreBands
	actions domain.ActionThresholds
	cfg     config.AnalysisConfig
	log     *logger.Logger
}

// NewCoordinator creates an analysis coordinator
func NewCoordinator(
	analyzer TransactionAnalyzer,
	assessor RiskAssessor,
	compliance ComplianceChecker,
	patterns PatternDetector,
	renderer narrative.Renderer,
	cat *catalog.Catalog,
	cfg config.AnalysisConfig,
	log *logger.Logger,
) *Coordinator {
	return &Coordinator{
		analyzer:   analyzer,
		assessor:   assessor,
		compliance: compliance,
		patterns:   patterns,
		renderer:   renderer,
		fallback:   narrative.NewTemplateRenderer(),
		cat:        cat,
		bands:      domain.ScoreBands{VeryHigh: cfg.BandVeryHigh, High: cfg.BandHigh, Medium: cfg.BandMedium},
		actions:    domain.ActionThresholds{Escalate: cfg.ActionEscalate, Monitor: cfg.ActionMonitor},
		cfg:        cfg,
		log:        log.Named("analysis_coordinator"),
	}
}

// analysisContext holds intermediate results while the sub-analyses run
type analysisContext struct {
	tx      *domain.Transaction
	history []domain.Transaction

	signals    StructuralSignals
	points     RiskPoints
	compliance ComplianceResult
	patterns   PatternResult

	// degraded maps a failed dimension to its error
	degraded map[string]error

	mu sync.Mutex
}

func (actx *analysisContext) fail(dimension string, err error) {
	actx.mu.Lock()
	actx.degraded[dimension] = err
	actx.mu.Unlock()
}

func (actx *analysisContext) healthy(dimension string) bool {
	actx.mu.Lock()
	defer actx.mu.Unlock()
	_, failed := actx.degraded[dimension]
	return !failed
}

// Coordinate runs the four sub-analyses on a transaction and fuses
// their results. history holds the customer's other transactions for
// pattern detection; it may be empty. The only error returned is an
// invalid transaction; sub-analysis failures degrade the result
// instead of aborting it.
func (c *Coordinator) Coordinate(ctx context.Context, tx *domain.Transaction, history []domain.Transaction) (*domain.AIAnalysis, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)
	}

	start := time.Now()
	c.log.AnalysisStarted(tx.ID)

	actx := &analysisContext{
		tx:       tx,
		history:  history,
		degraded: make(map[string]error),
	}

	// Structural signals come first: they gate the assessor and verify
	// the transaction is analyzable at all.
	signals, err := c.analyzer.Analyze(tx)
	switch {
	case err == nil:
		actx.signals = signals
	case errors.Is(err, domain.ErrInvalidArgument):
		return nil, err
	default:
		// Unexpected analyzer failure: the assessor depends on its
		// signals, so both dimensions are excluded.
		c.log.Warn("transaction analyzer failed", logger.ErrorField(err))
		actx.fail(dimAnalyzer, err)
		actx.fail(dimAssessor, err)
	}

	// The remaining sub-analyses are order-independent; fan out.
	var g errgroup.Group

	g.Go(func() error {
		return c.runAssessor(actx)
	})
	g.Go(func() error {
		return c.runCompliance(actx)
	})
	g.Go(func() error {
		return c.runPatterns(actx)
	})

	if err := g.Wait(); err != nil {
		c.log.Warn("analysis sub-checks reported errors", logger.ErrorField(err))
	}

	result, input := c.fuse(actx)
	result.Reasoning = c.render(ctx, input)

	durationMs := time.Since(start).Milliseconds()
	if budget := c.cfg.MaxLatency.Milliseconds(); budget > 0 && durationMs > budget {
		c.log.LatencyWarning("full_analysis", durationMs, budget)
	}
	c.log.AnalysisCompleted(tx.ID, string(result.RecommendedAction), result.RiskScore, durationMs)

	return result, nil
}

// runAssessor computes the weighted risk points
func (c *Coordinator) runAssessor(actx *analysisContext) error {
	if !actx.healthy(dimAssessor) {
		return nil
	}

	points, err := c.assessor.Assess(actx.tx, actx.signals)
	if err != nil {
		c.log.Warn("risk assessor failed", logger.ErrorField(err))
		actx.fail(dimAssessor, err)
		return nil
	}

	actx.mu.Lock()
	actx.points = points
	actx.mu.Unlock()

	return nil
}

// runCompliance evaluates the hard compliance rules
func (c *Coordinator) runCompliance(actx *analysisContext) error {
	result, err := c.compliance.Check(actx.tx)
	if err != nil {
		c.log.Warn("compliance check failed", logger.ErrorField(err))
		actx.fail(dimCompliance, err)
		return nil
	}

	actx.mu.Lock()
	actx.compliance = result
	actx.mu.Unlock()

	for _, breach := range result.Breaches {
		c.log.ComplianceBreach(actx.tx.ID, string(breach.Rule))
	}

	return nil
}

// runPatterns detects behavioral patterns against the history
func (c *Coordinator) runPatterns(actx *analysisContext) error {
	result, err := c.patterns.Detect(actx.tx, actx.history)
	if err != nil {
		c.log.Warn("pattern detection failed", logger.ErrorField(err))
		actx.fail(dimPatterns, err)
		return nil
	}

	actx.mu.Lock()
	actx.patterns = result
	actx.mu.Unlock()

	for _, pattern := range result.Patterns {
		c.log.PatternDetected(actx.tx.CustomerID, string(pattern.PatternType))
	}

	return nil
}

// fuse combines the sub-results into the final analysis, leaving only
// the reasoning text for the renderer
func (c *Coordinator) fuse(actx *analysisContext) (*domain.AIAnalysis, narrative.RenderInput) {
	actx.mu.Lock()
	defer actx.mu.Unlock()

	tx := actx.tx
	healthy := func(dimension string) bool {
		_, failed := actx.degraded[dimension]
		return !failed
	}

	// 1. Numeric score: assessor points plus pattern points, clamped.
	score := 0
	if healthy(dimAssessor) {
		score += actx.points.Score
	}
	if healthy(dimPatterns) {
		score += actx.patterns.Points
	}
	score = clampScore(score)

	band := c.bands.BandFor(score)

	// 2. Action from the cut points, then the hard compliance override.
	action := c.actions.ActionFor(score)
	if healthy(dimCompliance) && actx.compliance.ForcedEscalation {
		action = domain.ActionEscalate
	}

	// 3. Confidence: base plus one step per healthy dimension whose
	// elevation agrees with the action's direction.
	confidence := c.confidence(actx, healthy, action)

	// 4. Factors in fixed order: assessment, compliance, patterns.
	factors := make([]string, 0, len(actx.points.Factors)+len(actx.compliance.Breaches)+len(actx.patterns.Patterns))
	if healthy(dimAssessor) {
		factors = append(factors, actx.points.Factors...)
	}
	if healthy(dimCompliance) {
		for _, breach := range actx.compliance.Breaches {
			factors = append(factors, breach.Description)
		}
	}
	if healthy(dimPatterns) {
		for _, pattern := range actx.patterns.Patterns {
			factors = append(factors, pattern.Description)
		}
	}
	factors = dedupe(factors)

	result := &domain.AIAnalysis{
		TransactionID:     tx.ID,
		RiskScore:         score,
		RiskAssessment:    c.assessmentText(band, tx),
		RecommendedAction: action,
		Confidence:        confidence,
		Factors:           factors,
		Degraded:          len(actx.degraded) > 0,
		GeneratedAt:       generatedAt(tx),
		AgentAnalysis:     c.buildAgentAnalysis(actx, healthy),
	}

	tier, _ := c.cat.Tier(tx.Country)
	input := narrative.RenderInput{
		Transaction:    tx,
		RiskScore:      score,
		Band:           band,
		Action:         action,
		Factors:        factors,
		AmountElevated: healthy(dimAnalyzer) && actx.signals.AmountBand >= AmountBandHigh,
		CountryTier:    tier,
	}

	return result, input
}

// render produces the reasoning text; on renderer failure it falls back
// to the deterministic template
func (c *Coordinator) render(ctx context.Context, input narrative.RenderInput) string {
	reasoning, err := c.renderer.Render(ctx, input)
	if err != nil {
		c.log.Warn("reasoning renderer failed, falling back to template", logger.ErrorField(err))
		reasoning, _ = c.fallback.Render(ctx, input)
	}
	return reasoning
}

// confidence scores agreement between the healthy dimensions and the
// final action. A dimension is elevated when it alone points at risk;
// the action is elevated when it is anything but Dismiss.
func (c *Coordinator) confidence(actx *analysisContext, healthy func(string) bool, action domain.RecommendedAction) int {
	actionElevated := action != domain.ActionDismiss

	confidence := c.cfg.BaseConfidence
	agree := func(elevated bool) {
		if elevated == actionElevated {
			confidence += c.cfg.AgreementConfidence
		}
	}

	if healthy(dimAnalyzer) {
		agree(actx.signals.Elevated())
	}
	if healthy(dimAssessor) {
		agree(actx.points.Score >= c.actions.Monitor)
	}
	if healthy(dimCompliance) {
		agree(actx.compliance.ForcedEscalation)
	}
	if healthy(dimPatterns) {
		agree(len(actx.patterns.Patterns) > 0)
	}

	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	if len(actx.degraded) > 0 && confidence > c.cfg.DegradedConfidenceCap {
		confidence = c.cfg.DegradedConfidenceCap
	}
	return confidence
}

// assessmentText maps a score band to its human-readable summary
func (c *Coordinator) assessmentText(band domain.ScoreBand, tx *domain.Transaction) string {
	switch band {
	case domain.BandVeryHigh:
		text := fmt.Sprintf("Very high risk - %s in %s", tx.Type, tx.Country)
		if tx.IsHighRisk() {
			text += " from high-risk entity"
		}
		return text
	case domain.BandHigh:
		return fmt.Sprintf("High risk %s", tx.Type)
	case domain.BandMedium:
		return fmt.Sprintf("Medium risk %s requiring review", tx.Type)
	default:
		return "Low risk transaction within normal parameters"
	}
}

// buildAgentAnalysis assembles the four specialist sub-reports from the
// sub-results. Entries for degraded dimensions are marked unavailable.
func (c *Coordinator) buildAgentAnalysis(actx *analysisContext, healthy func(string) bool) domain.AgentAnalysis {
	tx := actx.tx

	report := domain.AgentAnalysis{
		TransactionAnalysis: domain.TransactionAnalysisReport{
			AmountRisk:    degradedEntry,
			TimingRisk:    degradedEntry,
			FrequencyRisk: degradedEntry,
		},
		RiskAssessment: domain.RiskAssessmentReport{
			CustomerRisk:   customerRiskEntry(tx),
			GeographicRisk: geographicRiskEntry(c.cat, tx),
			BehavioralRisk: degradedEntry,
		},
		ComplianceCheck: domain.ComplianceCheckReport{
			SanctionsScreening: degradedEntry,
			AMLRequirements:    degradedEntry,
			RegulatoryStatus:   degradedEntry,
		},
		PatternDetection: domain.PatternDetectionReport{
			StructuringIndicators: degradedEntry,
			LayeringPatterns:      degradedEntry,
			VelocityConcerns:      degradedEntry,
		},
	}

	if healthy(dimAnalyzer) {
		report.TransactionAnalysis.AmountRisk = amountRiskEntry(tx, actx.signals)
		report.TransactionAnalysis.TimingRisk = timingRiskEntry(actx.signals)
	}
	if healthy(dimPatterns) {
		report.TransactionAnalysis.FrequencyRisk = frequencyRiskEntry(actx.patterns)
		report.PatternDetection = domain.PatternDetectionReport{
			StructuringIndicators: detectionEntry(actx.patterns, domain.PatternStructuring),
			LayeringPatterns:      detectionEntry(actx.patterns, domain.PatternRoundTripping),
			VelocityConcerns:      frequencyRiskEntry(actx.patterns),
		}
	}
	if healthy(dimAnalyzer) || healthy(dimPatterns) {
		report.RiskAssessment.BehavioralRisk = behavioralRiskEntry(actx, healthy)
	}
	if healthy(dimCompliance) {
		report.ComplianceCheck = complianceReport(actx.compliance)
	}

	return report
}

func amountRiskEntry(tx *domain.Transaction, signals StructuralSignals) string {
	if signals.AmountBand >= AmountBandHigh {
		return fmt.Sprintf("High - %s", tx.AmountString())
	}
	return fmt.Sprintf("Normal - %s", tx.AmountString())
}

func timingRiskEntry(signals StructuralSignals) string {
	if signals.IsOffHours {
		return "Medium - outside business hours"
	}
	return "Low - within normal hours"
}

func frequencyRiskEntry(patterns PatternResult) string {
	if hasPattern(patterns, domain.PatternVelocitySpike) {
		return "High - unusual transaction velocity"
	}
	return "Low - normal transaction velocity"
}

func customerRiskEntry(tx *domain.Transaction) string {
	if profile := tx.Profile(); profile != "" {
		return string(profile)
	}
	return "Unknown"
}

func geographicRiskEntry(cat *catalog.Catalog, tx *domain.Transaction) string {
	tier, ok := cat.Tier(tx.Country)
	if !ok {
		return "Unknown"
	}
	switch tier {
	case domain.TierHigh:
		return "High"
	case domain.TierMedium:
		return "Medium"
	default:
		return "Low"
	}
}

func behavioralRiskEntry(actx *analysisContext, healthy func(string) bool) string {
	if healthy(dimPatterns) && len(actx.patterns.Patterns) > 0 {
		return "High - behavioral patterns detected"
	}
	if healthy(dimAnalyzer) && (actx.signals.IsRoundAmount || actx.signals.IsOffHours) {
		return "Medium - deviation from expected behavior"
	}
	return "Low - consistent with expected behavior"
}

func complianceReport(result ComplianceResult) domain.ComplianceCheckReport {
	report := domain.ComplianceCheckReport{
		SanctionsScreening: "Clear - no matches found",
		AMLRequirements:    "Standard monitoring",
		RegulatoryStatus:   "Compliant with current regulations",
	}
	if hasBreach(result, domain.RuleHighRiskJurisdiction) {
		report.SanctionsScreening = "Review - high-risk jurisdiction exposure"
	}
	if result.ForcedEscalation {
		report.AMLRequirements = "Requires SAR filing"
		report.RegulatoryStatus = "Requires additional documentation"
	}
	return report
}

func detectionEntry(patterns PatternResult, patternType domain.PatternType) string {
	if hasPattern(patterns, patternType) {
		return "Detected"
	}
	return "None detected"
}

func hasPattern(result PatternResult, patternType domain.PatternType) bool {
	for _, p := range result.Patterns {
		if p.PatternType == patternType {
			return true
		}
	}
	return false
}

func hasBreach(result ComplianceResult, rule domain.RuleID) bool {
	for _, b := range result.Breaches {
		if b.Rule == rule {
			return true
		}
	}
	return false
}

// generatedAt never predates the transaction it analyzes
func generatedAt(tx *domain.Transaction) time.Time {
	now := time.Now().UTC()
	if tx.Timestamp.After(now) {
		return tx.Timestamp
	}
	return now
}

func clampScore(score int) int {
	if score > maxRiskScore {
		return maxRiskScore
	}
	if score < 0 {
		return 0
	}
	return score
}

// dedupe removes repeated factor statements preserving first occurrence
func dedupe(factors []string) []string {
	seen := make(map[string]struct{}, len(factors))
	out := make([]string, 0, len(factors))
	for _, factor := range factors {
		if _, ok := seen[factor]; ok {
			continue
		}
		seen[factor] = struct{}{}
		out = append(out, factor)
	}
	return out
}
