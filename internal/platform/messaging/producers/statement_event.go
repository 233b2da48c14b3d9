package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fincore-statement-engine/internal/config"
	"github.com/fincore-statement-engine/internal/domain/statement"
)

// statementEvent is the wire envelope published for every statement
// lifecycle change and per-recipient distribution.
type statementEvent struct {
	Recipient      string    `json:"recipient"`
	StatementID    string    `json:"statement_id"`
	OrganizationID string    `json:"organization_id"`
	Status         string    `json:"status"`
	PeriodEndDate  time.Time `json:"period_end_date"`
	IsBalanced     bool      `json:"is_balanced"`
	PublishedAt    time.Time `json:"published_at"`
}

type StatementEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	dlq    DeadLetterPublisher
	topic  string
}

// NewStatementEventProducer creates the statement notifier and ensures its
// topic exists. dlq may be nil when the dead letter queue is disabled.
func NewStatementEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig, dlq DeadLetterPublisher) (*StatementEventProducer, error) {
	if cfg.StatementTopic == "" {
		return nil, fmt.Errorf("kafka statement topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for statement event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.StatementTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure statement topic %s exists: %w", cfg.StatementTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.StatementTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.MaxWait,
	}

	return &StatementEventProducer{
		logger: logger,
		writer: writer,
		dlq:    dlq,
		topic:  cfg.StatementTopic,
	}, nil
}

// Deliver publishes one statement event for a recipient. Undeliverable
// events are routed to the dead letter queue when one is configured; the
// original error is still returned so callers decide per-recipient policy.
func (p *StatementEventProducer) Deliver(ctx context.Context, recipient string, st *statement.Statement) error {
	event := statementEvent{
		Recipient:      recipient,
		StatementID:    st.ID.String(),
		OrganizationID: st.OrganizationID.String(),
		Status:         string(st.Status),
		PeriodEndDate:  st.PeriodEndDate,
		IsBalanced:     st.Totals.IsBalanced,
		PublishedAt:    time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal statement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(st.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "recipient", Value: []byte(recipient)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish statement event",
			"topic", p.topic,
			"statement_id", st.ID.String(),
			"recipient", recipient,
			"error", err,
		)
		if p.dlq != nil {
			if dlqErr := p.dlq.PublishToDLQ(ctx, st.ID.String(), value, err.Error()); dlqErr != nil {
				p.logger.Error("Failed to publish statement event to DLQ",
					"statement_id", st.ID.String(),
					"error", dlqErr,
				)
			}
		}
		return fmt.Errorf("failed to publish statement event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published statement event",
		"topic", p.topic,
		"statement_id", st.ID.String(),
		"recipient", recipient,
	)
	return nil
}

func (p *StatementEventProducer) Close() error {
	p.logger.Info("Closing statement event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
