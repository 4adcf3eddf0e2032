package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/linesmerrill/cfs-intake-api/models"
)

// EmailClient is the part of the sendgrid client used to send mail
type EmailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridEmail delivers email notifications through SendGrid
type SendgridEmail struct {
	client   EmailClient
	fromName string
	fromAddr string
}

// NewSendgridEmail creates an email sender using apiKey
func NewSendgridEmail(apiKey, fromName, fromAddr string) *SendgridEmail {
	return &SendgridEmail{
		client:   sendgrid.NewSendClient(apiKey),
		fromName: fromName,
		fromAddr: fromAddr,
	}
}

// Send sends msg as a single email
func (s *SendgridEmail) Send(_ context.Context, msg OutboundMessage) error {
	from := mail.NewEmail(s.fromName, s.fromAddr)
	to := mail.NewEmail("", msg.Target)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.HTML)
	message.SetHeader("X-Report-Number", msg.Metadata[MetaReportNumber])

	response, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

type smsRequest struct {
	To       string            `json:"to"`
	Body     string            `json:"body"`
	Tag      string            `json:"tag"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RestySMS delivers text messages by posting to an SMS gateway
type RestySMS struct {
	client *resty.Client
	url    string
}

// NewRestySMS creates an SMS sender posting to gatewayURL with a bearer token
func NewRestySMS(gatewayURL, token string) *RestySMS {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &RestySMS{client: client, url: gatewayURL}
}

// Send posts msg to the gateway
func (s *RestySMS) Send(ctx context.Context, msg OutboundMessage) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(smsRequest{
			To:       msg.Target,
			Body:     msg.Body,
			Tag:      msg.Tag,
			Metadata: msg.Metadata,
		}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("failed to call sms gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode())
	}
	return nil
}

// DirectSender routes each message to the transport for its channel
type DirectSender struct {
	Email Sender
	SMS   Sender
}

// Send dispatches msg by channel
func (d DirectSender) Send(ctx context.Context, msg OutboundMessage) error {
	var s Sender
	switch msg.Channel {
	case models.ChannelEmail:
		s = d.Email
	case models.ChannelSMS:
		s = d.SMS
	}
	if s == nil {
		return fmt.Errorf("no transport configured for channel %q", msg.Channel)
	}
	return s.Send(ctx, msg)
}
