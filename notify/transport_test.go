package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/cfs-intake-api/models"
)

type fakeWriter struct {
	mock.Mock
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return f.Called(ctx, msgs).Error(0)
}

func (f *fakeWriter) Close() error {
	return f.Called().Error(0)
}

type fakeEmailClient struct {
	mock.Mock
}

func (f *fakeEmailClient) Send(email *mail.SGMailV3) (*rest.Response, error) {
	ret := f.Called(email)
	resp, _ := ret.Get(0).(*rest.Response)
	return resp, ret.Error(1)
}

func sampleMessage(channel models.NotifyChannel, target string) OutboundMessage {
	return OutboundMessage{
		CallID:   12,
		Channel:  channel,
		Target:   target,
		Subject:  "We received your request",
		Body:     "Thank you for reaching out.",
		HTML:     "<p>Thank you</p>",
		Tag:      TagReceived,
		Metadata: map[string]string{MetaReportNumber: "CFS-2026-000012"},
	}
}

func TestNewKafkaSenderRequiresBrokers(t *testing.T) {
	_, err := NewKafkaSender(nil, "cfs.notifications")
	assert.Error(t, err)

	_, err = NewKafkaSender([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}

func TestKafkaSenderKeysByCall(t *testing.T) {
	w := &fakeWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "12" {
			return false
		}
		headers := map[string]string{}
		for _, h := range msgs[0].Headers {
			headers[h.Key] = string(h.Value)
		}
		var body OutboundMessage
		if err := json.Unmarshal(msgs[0].Value, &body); err != nil {
			return false
		}
		return headers[HeaderChannel] == "sms" && headers[HeaderTag] == TagReceived && body.Target == "+15551234567"
	})).Return(nil)

	sender := &KafkaSender{writer: w}
	require.NoError(t, sender.Send(context.Background(), sampleMessage(models.ChannelSMS, "+15551234567")))
	w.AssertExpectations(t)
}

func TestKafkaSenderWrapsWriteError(t *testing.T) {
	w := &fakeWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("mocked-error"))

	sender := &KafkaSender{writer: w}
	err := sender.Send(context.Background(), sampleMessage(models.ChannelEmail, "a@b.org"))
	assert.ErrorContains(t, err, "mocked-error")
}

func TestSendgridEmailSend(t *testing.T) {
	client := &fakeEmailClient{}
	client.On("Send", mock.MatchedBy(func(m *mail.SGMailV3) bool {
		return m.Subject == "We received your request" &&
			len(m.Personalizations) == 1 &&
			m.Personalizations[0].To[0].Address == "reporter@example.org"
	})).Return(&rest.Response{StatusCode: http.StatusAccepted}, nil)

	s := &SendgridEmail{client: client, fromName: "Community Intake", fromAddr: "intake@example.org"}
	require.NoError(t, s.Send(context.Background(), sampleMessage(models.ChannelEmail, "reporter@example.org")))
	client.AssertExpectations(t)
}

func TestSendgridEmailRejectedStatus(t *testing.T) {
	client := &fakeEmailClient{}
	client.On("Send", mock.Anything).Return(&rest.Response{StatusCode: http.StatusBadRequest, Body: "bad request"}, nil)

	s := &SendgridEmail{client: client}
	err := s.Send(context.Background(), sampleMessage(models.ChannelEmail, "reporter@example.org"))
	assert.ErrorContains(t, err, "400")
}

func TestRestySMSPostsToGateway(t *testing.T) {
	var got smsRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewRestySMS(srv.URL+"/messages", "secret")
	require.NoError(t, s.Send(context.Background(), sampleMessage(models.ChannelSMS, "+15551234567")))
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "+15551234567", got.To)
	assert.Equal(t, "CFS-2026-000012", got.Metadata[MetaReportNumber])
}

func TestRestySMSGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewRestySMS(srv.URL, "")
	err := s.Send(context.Background(), sampleMessage(models.ChannelSMS, "+15551234567"))
	assert.ErrorContains(t, err, "422")
}

func TestDirectSenderRoutesByChannel(t *testing.T) {
	email := &recordingSender{}
	sms := &recordingSender{}
	d := DirectSender{Email: email, SMS: sms}

	require.NoError(t, d.Send(context.Background(), sampleMessage(models.ChannelEmail, "a@b.org")))
	require.NoError(t, d.Send(context.Background(), sampleMessage(models.ChannelSMS, "+15550000000")))
	assert.Len(t, email.messages(), 1)
	assert.Len(t, sms.messages(), 1)

	err := DirectSender{Email: email}.Send(context.Background(), sampleMessage(models.ChannelSMS, "+15550000000"))
	assert.Error(t, err)
}
