package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/monsoon-report-client/internal/config"
	"github.com/couchcryptid/monsoon-report-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 8, 14, 16, 42, 10, 0, time.UTC)
	report := domain.SubmittedReport{
		RequestID: "2f1c7c0e-8d5b-4c1e-9a77-3f2b9d7f0a11",
		ReportID:  "66bc1f",
		Payload: domain.ReportPayload{
			Lat:        28.6139,
			Lon:        77.2090,
			Severity:   "High",
			ReportType: "Drainage Block",
			EventDate:  "2025-08-14",
			EventTime:  "16:42",
			ImageURL:   "https://monsoon-backend.onrender.com/uploads/abc.jpg",
		},
		SubmittedAt: now,
	}

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte(report.RequestID), msg.Key)
	assert.Contains(t, string(msg.Value), `"request_id":"2f1c7c0e-8d5b-4c1e-9a77-3f2b9d7f0a11"`)
	assert.Contains(t, string(msg.Value), `"reportType":"Drainage Block"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "report_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("Drainage Block"), msg.Headers[0].Value)
	assert.Equal(t, "submitted_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestNewWriter_UsesReportTopic(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaReportTopic: "submitted-reports"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	assert.Equal(t, "submitted-reports", w.writer.Topic)
}

func TestPublishSubmitted_CancelledContext(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaReportTopic: "submitted-reports"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.PublishSubmitted(ctx, domain.SubmittedReport{RequestID: "r1"})
	assert.Error(t, err)
}
