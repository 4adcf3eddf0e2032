package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/metrics"
	"github.com/linesmerrill/cfs-intake-api/models"
	templates "github.com/linesmerrill/cfs-intake-api/templates/html"
)

// ProfileLoader returns the current notification profile of a call
type ProfileLoader interface {
	GetNotifyProfile(ctx context.Context, id int64) (*models.NotifyProfile, error)
}

// Notifier accepts notification requests without blocking the caller
type Notifier interface {
	Notify(callID int64, tmpl Template)
}

// ErrNoRecipient is returned by Deliver when the reporter cannot or does not want to be reached
var ErrNoRecipient = errors.New("no notification recipient")

// Options tunes the dispatcher queue
type Options struct {
	QueueSize       int
	Workers         int
	Timeout         time.Duration
	TrackingBaseURL string
}

type job struct {
	callID int64
	tmpl   Template
}

// Dispatcher delivers reporter notifications from a bounded queue. Jobs are
// dropped when the queue is full so a slow transport never holds up a request.
type Dispatcher struct {
	profiles ProfileLoader
	sender   Sender
	logger   *zap.Logger
	opts     Options

	queue  chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker goroutines. Call Close to drain and stop them.
func NewDispatcher(profiles ProfileLoader, sender Sender, logger *zap.Logger, opts Options) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		profiles: profiles,
		sender:   sender,
		logger:   logger,
		opts:     opts,
		queue:    make(chan job, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify queues a notification for the reporter of callID. It never blocks.
func (d *Dispatcher) Notify(callID int64, tmpl Template) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.NotificationsTotal.WithLabelValues(tmpl.Tag, metrics.OutcomeDropped).Inc()
		return
	}

	// counted before the send so a worker's Dec never runs ahead of it
	metrics.NotifyQueueDepth.Inc()
	select {
	case d.queue <- job{callID: callID, tmpl: tmpl}:
	default:
		metrics.NotifyQueueDepth.Dec()
		metrics.NotificationsTotal.WithLabelValues(tmpl.Tag, metrics.OutcomeDropped).Inc()
		d.logger.Warn("notification queue full, dropping",
			zap.Int64("cfsId", callID),
			zap.String("tag", tmpl.Tag),
		)
	}
}

// Close stops accepting jobs and waits for the queued ones to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		metrics.NotifyQueueDepth.Dec()
		d.run(j)
	}
}

func (d *Dispatcher) run(j job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationsTotal.WithLabelValues(j.tmpl.Tag, metrics.OutcomePanicked).Inc()
			d.logger.Error("notification worker recovered from panic",
				zap.Int64("cfsId", j.callID),
				zap.String("tag", j.tmpl.Tag),
				zap.Any("panic", r),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()

	err := d.Deliver(ctx, j.callID, j.tmpl)
	switch {
	case err == nil:
		metrics.NotificationsTotal.WithLabelValues(j.tmpl.Tag, metrics.OutcomeSent).Inc()
	case errors.Is(err, ErrNoRecipient):
		metrics.NotificationsTotal.WithLabelValues(j.tmpl.Tag, metrics.OutcomeSkipped).Inc()
	default:
		metrics.NotificationsTotal.WithLabelValues(j.tmpl.Tag, metrics.OutcomeFailed).Inc()
		d.logger.Warn("failed to deliver notification",
			zap.Int64("cfsId", j.callID),
			zap.String("tag", j.tmpl.Tag),
			zap.Error(err),
		)
	}
}

// Deliver sends tmpl to the reporter of callID synchronously. The profile is
// loaded at send time so consent withdrawn after queuing is honored.
func (d *Dispatcher) Deliver(ctx context.Context, callID int64, tmpl Template) error {
	profile, err := d.profiles.GetNotifyProfile(ctx, callID)
	if err != nil {
		return err
	}
	if profile == nil {
		return ErrNoRecipient
	}
	msg, ok := d.Compose(*profile, tmpl)
	if !ok {
		return ErrNoRecipient
	}
	return d.sender.Send(ctx, msg)
}

// Compose builds the outbound message for a profile. ok is false when the
// reporter has not opted in or left no usable target.
func (d *Dispatcher) Compose(profile models.NotifyProfile, tmpl Template) (OutboundMessage, bool) {
	if !profile.OptIn || profile.Channel == models.ChannelNone || profile.Target == nil {
		return OutboundMessage{}, false
	}
	target := strings.TrimSpace(*profile.Target)
	if target == "" {
		return OutboundMessage{}, false
	}

	meta := map[string]string{MetaReportNumber: profile.ReportNumber}
	var trackingURL string
	if profile.TrackingCode != nil && *profile.TrackingCode != "" {
		meta[MetaTrackingCode] = *profile.TrackingCode
		if d.opts.TrackingBaseURL != "" {
			trackingURL = strings.TrimRight(d.opts.TrackingBaseURL, "/") + "/" + *profile.TrackingCode
			meta[MetaTrackingURL] = trackingURL
		}
	}

	msg := OutboundMessage{
		CallID:   profile.CFSID,
		Channel:  profile.Channel,
		Target:   target,
		Tag:      tmpl.Tag,
		Metadata: meta,
	}
	switch profile.Channel {
	case models.ChannelSMS:
		msg.Body = tmpl.ShortBody
		if msg.Body == "" {
			msg.Body = tmpl.Body
		}
	case models.ChannelEmail:
		msg.Subject = tmpl.Subject
		msg.Body = tmpl.Body
		msg.HTML = templates.RenderNotificationEmail(tmpl.Subject, tmpl.Body, profile.ReportNumber, trackingURL)
	default:
		return OutboundMessage{}, false
	}
	return msg, true
}
