// Package publisher emits analysis results as Kafka events.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"GannCycles/internal/model"
)

// Event types.
const (
	EventReportCreated     = "REPORT_CREATED"
	EventStrongConvergence = "STRONG_CONVERGENCE"
)

// ReportEvent is the message value of every published event.
type ReportEvent struct {
	EventType   string                  `json:"event_type"`
	RunID       string                  `json:"run_id"`
	Symbol      string                  `json:"symbol,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
	Report      *model.Report           `json:"report,omitempty"`
	Convergence *model.ConvergencePoint `json:"convergence,omitempty"`
}

// messageWriter is the subset of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ReportPublisher publishes reports to a Kafka topic.
type ReportPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewReportPublisher creates a publisher writing to topic on brokers.
func NewReportPublisher(brokers []string, topic string) *ReportPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &ReportPublisher{writer: writer, topic: topic, now: time.Now}
}

// PublishReport writes one REPORT_CREATED event carrying the whole report, followed by one
// STRONG_CONVERGENCE event per strong point. All events are keyed by run ID so they share a partition.
func (p *ReportPublisher) PublishReport(ctx context.Context, report *model.Report) error {
	ts := p.now().UTC()
	events := []ReportEvent{{
		EventType: EventReportCreated,
		RunID:     report.RunID,
		Symbol:    report.Symbol,
		Timestamp: ts,
		Report:    report,
	}}
	for i := range report.Convergences {
		cp := report.Convergences[i]
		if cp.Score < model.StrongScore {
			continue
		}
		events = append(events, ReportEvent{
			EventType:   EventStrongConvergence,
			RunID:       report.RunID,
			Symbol:      report.Symbol,
			Timestamp:   ts,
			Convergence: &cp,
		})
	}
	return p.publish(ctx, report.RunID, events)
}

func (p *ReportPublisher) publish(ctx context.Context, key string, events []ReportEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(key),
			Value:   data,
			Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}
	return nil
}

// Close closes the Kafka writer.
func (p *ReportPublisher) Close() error {
	return p.writer.Close()
}
