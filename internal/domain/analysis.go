package domain

import (
	"time"
)

// RecommendedAction represents the disposition the analysis recommends
type RecommendedAction string

const (
	ActionEscalate RecommendedAction = "Escalate"
	ActionMonitor  RecommendedAction = "Monitor"
	ActionDismiss  RecommendedAction = "Dismiss"
)

// ScoreBand represents the narrative severity band of a risk score
type ScoreBand string

const (
	BandVeryHigh ScoreBand = "very high"
	BandHigh     ScoreBand = "high"
	BandMedium   ScoreBand = "medium"
	BandLow      ScoreBand = "low"
)

// RuleID identifies a compliance rule
type RuleID string

const (
	RuleCTRThreshold         RuleID = "CTR_THRESHOLD"
	RuleHighRiskJurisdiction RuleID = "HIGH_RISK_JURISDICTION"
	RuleCrossBorderTransfer  RuleID = "CROSS_BORDER_TRANSFER"
)

// PatternType represents types of suspicious activity patterns
type PatternType string

const (
	PatternStructuring   PatternType = "STRUCTURING"
	PatternVelocitySpike PatternType = "VELOCITY_SPIKE"
	PatternRoundTripping PatternType = "ROUND_TRIPPING"
)

// RiskFactor represents a factor contributing to the risk score
type RiskFactor struct {
	Factor      string `json:"factor"`
	Weight      int    `json:"weight"` // Points added to risk score
	Description string `json:"description"`
	Details     string `json:"details,omitempty"`
}

// ComplianceBreach records one triggered compliance rule
type ComplianceBreach struct {
	Rule        RuleID `json:"rule"`
	Description string `json:"description"`
}

// PatternMatch represents a detected suspicious activity pattern
type PatternMatch struct {
	PatternType  PatternType `json:"pattern_type"`
	Description  string      `json:"description"`
	RelatedTxIDs []string    `json:"related_tx_ids,omitempty"`
}

// ScoreBands holds the cut points mapping a risk score to its band.
// Scores at or above VeryHigh map to BandVeryHigh, and so on down.
type ScoreBands struct {
	VeryHigh int
	High     int
	Medium   int
}

// BandFor returns the band for a score
func (b ScoreBands) BandFor(score int) ScoreBand {
	switch {
	case score >= b.VeryHigh:
		return BandVeryHigh
	case score >= b.High:
		return BandHigh
	case score >= b.Medium:
		return BandMedium
	default:
		return BandLow
	}
}

// ActionThresholds holds the cut points mapping a risk score to a
// recommended action. Compliance overrides are applied downstream.
type ActionThresholds struct {
	Escalate int
	Monitor  int
}

// ActionFor returns the action for a score
func (t ActionThresholds) ActionFor(score int) RecommendedAction {
	switch {
	case score >= t.Escalate:
		return ActionEscalate
	case score >= t.Monitor:
		return ActionMonitor
	default:
		return ActionDismiss
	}
}

// TransactionAnalysisReport is the structural sub-report of an analysis
type TransactionAnalysisReport struct {
	AmountRisk    string `json:"amount_risk"`
	TimingRisk    string `json:"timing_risk"`
	FrequencyRisk string `json:"frequency_risk"`
}

// RiskAssessmentReport is the customer/geography sub-report
type RiskAssessmentReport struct {
	CustomerRisk   string `json:"customer_risk"`
	GeographicRisk string `json:"geographic_risk"`
	BehavioralRisk string `json:"behavioral_risk"`
}

// ComplianceCheckReport is the regulatory sub-report
type ComplianceCheckReport struct {
	SanctionsScreening string `json:"sanctions_screening"`
	AMLRequirements    string `json:"aml_requirements"`
	RegulatoryStatus   string `json:"regulatory_status"`
}

// PatternDetectionReport is the behavioral-pattern sub-report
type PatternDetectionReport struct {
	StructuringIndicators string `json:"structuring_indicators"`
	LayeringPatterns      string `json:"layering_patterns"`
	VelocityConcerns      string `json:"velocity_concerns"`
}

// AgentAnalysis groups the four specialist sub-reports
type AgentAnalysis struct {
	TransactionAnalysis TransactionAnalysisReport `json:"transaction_analysis"`
	RiskAssessment      RiskAssessmentReport      `json:"risk_assessment"`
	ComplianceCheck     ComplianceCheckReport     `json:"compliance_check"`
	PatternDetection    PatternDetectionReport    `json:"pattern_detection"`
}

// AIAnalysis is the fused result of the four sub-analyses for one
// transaction. Recomputed on demand and keyed 1:1 by TransactionID;
// it never outlives a mutation of its transaction.
type AIAnalysis struct {
	TransactionID     string            `json:"transactionId"`
	RiskScore         int               `json:"riskScore"` // 0-100
	RiskAssessment    string            `json:"riskAssessment"`
	RecommendedAction RecommendedAction `json:"recommendedAction"`
	Confidence        int               `json:"confidence"` // 0-100

	// Explainability
	Factors   []string `json:"factors"`
	Reasoning string   `json:"reasoning"`

	// Degraded is set when a sub-analysis failed and its contribution
	// was excluded; confidence is capped while it is true.
	Degraded bool `json:"degraded,omitempty"`

	GeneratedAt   time.Time     `json:"generatedAt"`
	AgentAnalysis AgentAnalysis `json:"agentAnalysis"`
}

// RequiresEscalation returns true if the recommended action is Escalate
func (a *AIAnalysis) RequiresEscalation() bool {
	return a.RecommendedAction == ActionEscalate
}
