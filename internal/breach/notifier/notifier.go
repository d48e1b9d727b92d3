// Package notifier contains NotificationGateway adapters for the breach
// register.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"consentd/internal/breach/models"
	"consentd/internal/platform/kafka/producer"
)

// Producer is the slice of the Kafka producer the notifier needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaNotifier publishes breach notifications to a Kafka topic where a
// downstream service handles regulator delivery.
type KafkaNotifier struct {
	producer Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaNotifier(p Producer, topic string, logger *slog.Logger) *KafkaNotifier {
	if p == nil {
		panic("kafka notifier requires a producer")
	}
	return &KafkaNotifier{producer: p, topic: topic, logger: logger}
}

// notification is the wire payload on the breach topic.
type notification struct {
	BreachID            string    `json:"breach_id"`
	Severity            string    `json:"severity"`
	Type                string    `json:"type"`
	BreachDate          time.Time `json:"breach_date"`
	DiscoveryDate       time.Time `json:"discovery_date"`
	AffectedSubjects    int       `json:"affected_subjects"`
	DataCategories      []string  `json:"data_categories"`
	Description         string    `json:"description"`
	SubjectNotification bool      `json:"subject_notification"`
	// Deadline is 72 hours after discovery (GDPR Art. 33).
	Deadline time.Time `json:"deadline"`
}

// RegulatorDeadline is how long after discovery the regulator must be told.
const RegulatorDeadline = 72 * time.Hour

// ScheduleRegulatoryNotification produces the breach synchronously so a
// broker failure is visible to the caller.
func (n *KafkaNotifier) ScheduleRegulatoryNotification(ctx context.Context, b *models.Breach) error {
	payload, err := json.Marshal(notification{
		BreachID:            b.ID.String(),
		Severity:            string(b.Severity),
		Type:                string(b.Type),
		BreachDate:          b.BreachDate,
		DiscoveryDate:       b.DiscoveryDate,
		AffectedSubjects:    b.AffectedSubjects,
		DataCategories:      b.DataCategories,
		Description:         b.Description,
		SubjectNotification: b.SubjectNotification,
		Deadline:            b.DiscoveryDate.Add(RegulatorDeadline),
	})
	if err != nil {
		return fmt.Errorf("marshal breach notification: %w", err)
	}
	msg := &producer.Message{
		Topic: n.topic,
		Key:   []byte(b.ID.String()),
		Value: payload,
		Headers: map[string]string{
			"event_type": "breach.regulatory_notification",
			"severity":   string(b.Severity),
		},
	}
	if err := n.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish breach notification: %w", err)
	}
	if n.logger != nil {
		n.logger.InfoContext(ctx, "breach notification published",
			"breach_id", b.ID,
			"topic", n.topic,
		)
	}
	return nil
}

// LogNotifier only logs. Used in development when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) ScheduleRegulatoryNotification(ctx context.Context, b *models.Breach) error {
	n.logger.WarnContext(ctx, "regulatory notification required",
		"breach_id", b.ID,
		"severity", b.Severity,
		"deadline", b.DiscoveryDate.Add(RegulatorDeadline),
	)
	return nil
}
