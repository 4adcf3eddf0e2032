package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender writes notifications to the log instead of a transport. Used for local development.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs msg
func (s LogSender) Send(_ context.Context, msg OutboundMessage) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info("notification",
		zap.Int64("cfsId", msg.CallID),
		zap.String("channel", string(msg.Channel)),
		zap.String("tag", msg.Tag),
		zap.String("reportNumber", msg.Metadata[MetaReportNumber]),
	)
	return nil
}
