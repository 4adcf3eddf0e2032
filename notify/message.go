package notify

import (
	"context"

	"github.com/linesmerrill/cfs-intake-api/models"
)

// Metadata keys carried on every outbound message
const (
	MetaReportNumber = "report_number"
	MetaTrackingCode = "tracking_code"
	MetaTrackingURL  = "tracking_url"
)

// OutboundMessage is a single notification ready for a transport
type OutboundMessage struct {
	CallID   int64                `json:"cfs_id"`
	Channel  models.NotifyChannel `json:"channel"`
	Target   string               `json:"target"`
	Subject  string               `json:"subject,omitempty"`
	Body     string               `json:"body"`
	HTML     string               `json:"html,omitempty"`
	Tag      string               `json:"tag"`
	Metadata map[string]string    `json:"metadata"`
}

// Sender hands an outbound message to a transport
type Sender interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// SenderFunc adapts a function to a Sender
type SenderFunc func(ctx context.Context, msg OutboundMessage) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, msg OutboundMessage) error {
	return f(ctx, msg)
}
