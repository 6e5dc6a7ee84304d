package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/config"
	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const publishTimeout = 10 * time.Second

// Writer produces submitted-report events to a Kafka topic.
// It implements pipeline.ReportNotifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSubmitted publishes one accepted report, keyed by its request ID.
// Each submission attempt has its own request ID.
func (w *Writer) PublishSubmitted(ctx context.Context, report domain.SubmittedReport) error {
	msg, err := serializeToMessage(report)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish submitted report: %w", err)
	}
	w.logger.Debug("submitted report published", "request_id", report.RequestID, "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SubmittedReport into a Kafka message.
func serializeToMessage(report domain.SubmittedReport) (kafkago.Message, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize submitted report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(report.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "report_type", Value: []byte(report.Payload.ReportType)},
			{Key: "submitted_at", Value: []byte(report.SubmittedAt.Format(time.RFC3339))},
		},
	}, nil
}
