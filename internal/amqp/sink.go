package amqp

import (
	"context"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

type sink struct {
	client *Client
	logger *log.Logger
}

// NewSink adapts the client to the activity log. Publish failures are logged
// and dropped so a broker outage never blocks message handling.
func NewSink(client *Client, logger *log.Logger) audit.Sink {
	return &sink{
		client: client,
		logger: logger.WithComponent(log.ComponentAMQP),
	}
}

func (s *sink) Record(ctx context.Context, e audit.Entry) {
	msg := NewActivityMessage(e.UserID, e.ChatJID, e.Label, e.Detail)
	if err := s.client.PublishActivity(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Activity publish failed",
			log.FieldUserID, e.UserID,
			"label", e.Label,
			log.FieldError, err)
	}
}
