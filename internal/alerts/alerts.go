// Package alerts publishes escalation events to the case-management
// topic. Publishing is fire-and-forget: a broker outage must never
// block or fail an analysis request.
package alerts

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/banking/fincrime-service/internal/config"
	"github.com/banking/fincrime-service/internal/domain"
	"github.com/banking/fincrime-service/internal/pkg/logger"
)

// Event is the escalation alert emitted when an analysis recommends
// escalation
type Event struct {
	EventID           string                   `json:"eventId"`
	TransactionID     string                   `json:"transactionId"`
	CustomerID        string                   `json:"customerId"`
	RiskScore         int                      `json:"riskScore"`
	RiskAssessment    string                   `json:"riskAssessment"`
	RecommendedAction domain.RecommendedAction `json:"recommendedAction"`
	Factors           []string                 `json:"factors"`
	Timestamp         time.Time                `json:"timestamp"`
}

// NewEvent builds an escalation event from a transaction and its
// analysis
func NewEvent(tx *domain.Transaction, analysis *domain.AIAnalysis) Event {
	return Event{
		EventID:           uuid.New().String(),
		TransactionID:     tx.ID,
		CustomerID:        tx.CustomerID,
		RiskScore:         analysis.RiskScore,
		RiskAssessment:    analysis.RiskAssessment,
		RecommendedAction: analysis.RecommendedAction,
		Factors:           analysis.Factors,
		Timestamp:         time.Now().UTC(),
	}
}

// Publisher delivers escalation events
type Publisher interface {
	Publish(event Event) error
	Close() error
}

// KafkaPublisher publishes events through a sarama async producer
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewKafkaPublisher connects a publisher to the configured brokers
func NewKafkaPublisher(cfg config.KafkaConfig, log *logger.Logger) (*KafkaPublisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Compression = sarama.CompressionSnappy
	saramaCfg.Producer.Flush.Frequency = 500 * time.Millisecond
	saramaCfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return newKafkaPublisher(producer, cfg.AlertsTopic, log), nil
}

func newKafkaPublisher(producer sarama.AsyncProducer, topic string, log *logger.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log.Named("alert_publisher"),
	}
	p.wg.Add(1)
	go p.drainErrors()
	return p
}

// drainErrors logs delivery failures until the producer closes
func (p *KafkaPublisher) drainErrors() {
	defer p.wg.Done()
	for err := range p.producer.Errors() {
		p.log.Error("alert delivery failed", logger.ErrorField(err))
	}
}

// Publish hands an event to the async producer. Keyed by customer so
// alerts for one customer keep their order.
func (p *KafkaPublisher) Publish(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode alert event: %w", err)
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.CustomerID),
		Value: sarama.ByteEncoder(payload),
	}
	return nil
}

// Close flushes pending events and stops the error drain
func (p *KafkaPublisher) Close() error {
	err := p.producer.Close()
	p.wg.Wait()
	return err
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(Event) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }
