// Package services – Pipeline
//
// This file implements the top-level webhook pipeline: classify the event,
// buffer a new submission or complete a pending one, run the submission
// saga, and message the sender with the outcome. Every failure path ends in
// a log line; nothing escapes to the webhook handler, whose response is
// always 200.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/assistec/wpp-os-gateway/internal/buffer"
	"github.com/assistec/wpp-os-gateway/internal/domain"
)

// Notifier is the one-way chat-send capability used to message senders.
// It never participates in the saga's success or failure determination.
type Notifier interface {
	// Send delivers a text message to the given number.
	Send(ctx context.Context, number, message string) error
}

// Submitter runs a completed payload through the deduplication gate and the
// submission saga. Satisfied by *OrderService.
type Submitter interface {
	Submit(ctx context.Context, payload domain.OrderPayload) (*domain.ServiceOrder, error)
}

// Pipeline orchestrates webhook handling end to end.
type Pipeline struct {
	// Buf is the shared correlation buffer.
	Buf *buffer.Buffer
	// Orders runs the submission saga.
	Orders Submitter
	// Notify is the outbound chat-send sink.
	Notify Notifier
}

// NewPipeline constructs a Pipeline.
func NewPipeline(buf *buffer.Buffer, orders Submitter, notify Notifier) *Pipeline {
	return &Pipeline{Buf: buf, Orders: orders, Notify: notify}
}

// Handle processes one inbound webhook event. It never returns an error:
// classification failures drop the event, saga failures are reported to the
// sender over chat, and notification failures are logged only. Expired
// buffer entries are swept on every invocation regardless of outcome.
func (p *Pipeline) Handle(ctx context.Context, ev domain.WebhookEvent) {
	defer p.Buf.SweepExpired()

	cls, err := Classify(ev, p.Buf.Len() > 0)
	if err != nil {
		webhookEvents.WithLabelValues("classification_error").Inc()
		log.Warn().Err(err).Str("type", ev.Type).Msg("event dropped")
		return
	}

	switch cls.Kind {
	case KindStart:
		webhookEvents.WithLabelValues("start").Inc()
		p.Buf.Store(cls.Payload)
		log.Info().Str("sender_id", cls.SenderID).Str("cs_id", cls.Payload.CSID).
			Msg("submission started")
		p.send(ctx, ev, msgAskProblem(cls.Payload.Nome))

	case KindContinuation:
		webhookEvents.WithLabelValues("continuation").Inc()
		p.complete(ctx, ev, cls)

	default:
		webhookEvents.WithLabelValues("none").Inc()
	}
}

// complete pops the sender's oldest buffered start, attaches the
// description, and runs the saga. The sender lock spans the buffer match
// through record creation so two concurrent continuations for the same
// sender cannot both pass the deduplication gate.
func (p *Pipeline) complete(ctx context.Context, ev domain.WebhookEvent, cls Classification) {
	release := p.Buf.LockSender(cls.SenderID)
	defer release()

	entry, ok := p.Buf.TakeMatching(cls.SenderID)
	if !ok {
		orderOutcomes.WithLabelValues("unmatched").Inc()
		return
	}

	payload := entry.Payload
	desc := cls.Description
	payload.DescricaoProblema = &desc

	_, err := p.Orders.Submit(ctx, payload)
	switch {
	case err == nil:
		orderOutcomes.WithLabelValues("opened").Inc()
		p.send(ctx, ev, msgSuccess)
	case errors.Is(err, ErrDuplicateOrder):
		orderOutcomes.WithLabelValues("duplicate").Inc()
		p.send(ctx, ev, msgDuplicate)
	default:
		orderOutcomes.WithLabelValues("failed").Inc()
		log.Error().Err(err).Str("sender_id", cls.SenderID).Str("cs_id", payload.CSID).
			Msg("submission failed")
		p.send(ctx, ev, msgFailure)
	}
}

// send messages the event's sender, logging (never propagating) failures.
func (p *Pipeline) send(ctx context.Context, ev domain.WebhookEvent, message string) {
	number := senderNumber(ev)
	if number == "" {
		log.Warn().Msg("no routable sender address, notification skipped")
		return
	}
	if err := p.Notify.Send(ctx, number, message); err != nil {
		log.Error().Err(err).Str("number", number).Msg("notification failed")
	}
}

// senderNumber extracts the routable number from the event, preferring
// RemoteJid (the conversation address) over SenderJid.
func senderNumber(ev domain.WebhookEvent) string {
	if n, err := domain.ParseJID(ev.Body.Info.RemoteJid); err == nil {
		return n
	}
	if n, err := domain.ParseJID(ev.Body.Info.SenderJid); err == nil {
		return n
	}
	return ""
}
