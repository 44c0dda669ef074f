package logger

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with monitoring-specific functionality
type Logger struct {
	*zap.Logger
	serviceName string
}

// ContextKey for request context values
type ContextKey string

const (
	RequestIDKey  ContextKey = "request_id"
	CustomerIDKey ContextKey = "customer_id"
	TraceIDKey    ContextKey = "trace_id"
	SpanIDKey     ContextKey = "span_id"
)

// New creates a new logger instance
func New(serviceName, environment string, debug bool) (*Logger, error) {
	var config zap.Config

	if environment == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	// Add service metadata
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
		"env":     environment,
		"pid":     os.Getpid(),
	}

	zapLogger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{
		Logger:      zapLogger,
		serviceName: serviceName,
	}, nil
}

// NewNop returns a logger that discards all output, for tests
func NewNop() *Logger {
	return &Logger{
		Logger:      zap.NewNop(),
		serviceName: "nop",
	}
}

// Named returns a named sub-logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		Logger:      l.Logger.Named(name),
		serviceName: l.serviceName,
	}
}

// WithContext returns a logger with context values
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if customerID, ok := ctx.Value(CustomerIDKey).(string); ok && customerID != "" {
		fields = append(fields, zap.String("customer_id", customerID))
	}
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok && traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if spanID, ok := ctx.Value(SpanIDKey).(string); ok && spanID != "" {
		fields = append(fields, zap.String("span_id", spanID))
	}

	return &Logger{
		Logger:      l.With(fields...),
		serviceName: l.serviceName,
	}
}

// WithTransaction returns a logger with transaction context
func (l *Logger) WithTransaction(txID, customerID string) *Logger {
	return &Logger{
		Logger: l.With(
			zap.String("transaction_id", txID),
			zap.String("customer_id", customerID),
		),
		serviceName: l.serviceName,
	}
}

// AnalysisStarted logs the start of a transaction analysis
func (l *Logger) AnalysisStarted(txID string) {
	l.Info("analysis started",
		zap.String("transaction_id", txID),
	)
}

// AnalysisCompleted logs the completion of a transaction analysis
func (l *Logger) AnalysisCompleted(txID, action string, riskScore int, durationMs int64) {
	l.Info("analysis completed",
		zap.String("transaction_id", txID),
		zap.String("recommended_action", action),
		zap.Int("risk_score", riskScore),
		zap.Int64("duration_ms", durationMs),
	)
}

// GenerationCompleted logs a synthetic population run
func (l *Logger) GenerationCompleted(count, highRiskCount int, durationMs int64) {
	l.Info("generation completed",
		zap.Int("count", count),
		zap.Int("high_risk_count", highRiskCount),
		zap.Int64("duration_ms", durationMs),
	)
}

// PatternDetected logs a detected behavioral pattern
func (l *Logger) PatternDetected(customerID, patternType string) {
	l.Warn("suspicious pattern detected",
		zap.String("customer_id", customerID),
		zap.String("pattern_type", patternType),
	)
}

// ComplianceBreach logs a triggered compliance rule
func (l *Logger) ComplianceBreach(txID, rule string) {
	l.Warn("compliance rule breached",
		zap.String("transaction_id", txID),
		zap.String("rule", rule),
	)
}

// AlertPublished logs an escalation alert handed to the broker
func (l *Logger) AlertPublished(eventID, txID string, riskScore int) {
	l.Info("escalation alert published",
		zap.String("event_id", eventID),
		zap.String("transaction_id", txID),
		zap.Int("risk_score", riskScore),
	)
}

// StatusUpdated logs a review status transition
func (l *Logger) StatusUpdated(txID, from, to string) {
	l.Info("transaction status updated",
		zap.String("transaction_id", txID),
		zap.String("from", from),
		zap.String("to", to),
	)
}

// LatencyWarning logs when an operation exceeds its latency budget
func (l *Logger) LatencyWarning(operation string, durationMs, thresholdMs int64) {
	l.Warn("latency threshold exceeded",
		zap.String("operation", operation),
		zap.Int64("duration_ms", durationMs),
		zap.Int64("threshold_ms", thresholdMs),
	)
}

// Helper field functions

// ErrorField creates an error field
func ErrorField(err error) zap.Field {
	return zap.Error(err)
}

// DurationField creates a duration field
func DurationField(name string, d time.Duration) zap.Field {
	return zap.Duration(name, d)
}

// StringField creates a string field
func StringField(key, value string) zap.Field {
	return zap.String(key, value)
}

// IntField creates an int field
func IntField(key string, value int) zap.Field {
	return zap.Int(key, value)
}
