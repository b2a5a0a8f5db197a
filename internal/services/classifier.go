package services

import (
	"fmt"
	"strings"

	"github.com/assistec/wpp-os-gateway/internal/domain"
)

// TriggerMarker is the literal first line that starts a new conversational
// submission.
const TriggerMarker = "*Ordem de servico*"

// Kind is the classification outcome for an inbound webhook event.
type Kind int

const (
	// KindNone means the event is irrelevant to the pipeline (wrong type,
	// empty text, or no pending submission to continue).
	KindNone Kind = iota
	// KindStart means the event opens a new submission.
	KindStart
	// KindContinuation means the event carries the free-text description for
	// a previously started submission.
	KindContinuation
)

// Classification is the result of inspecting an inbound event.
type Classification struct {
	Kind Kind

	// Payload is the partially-completed submission (start only), with
	// DescricaoProblema still nil.
	Payload domain.OrderPayload

	// SenderID is the numeric sender identity (start and continuation).
	SenderID string

	// Description is the raw message text (continuation only).
	Description string
}

// Classify inspects an inbound webhook event and decides whether it starts a
// new submission, continues a pending one, or is irrelevant.
//
// bufferNonEmpty gates the continuation branch: free-text messages are only
// treated as continuations while at least one submission is buffered;
// otherwise ordinary chatter would be misread as descriptions.
//
// A returned error is a classification error for this event only (malformed
// address, missing trigger lines); the caller logs and drops the event.
func Classify(ev domain.WebhookEvent, bufferNonEmpty bool) (Classification, error) {
	if ev.Type != domain.EventTypeReceivedMessage || ev.Body.Text == "" {
		return Classification{Kind: KindNone}, nil
	}

	lines := strings.Split(ev.Body.Text, "\n")
	if lines[0] == TriggerMarker {
		if len(lines) < 3 {
			return Classification{}, fmt.Errorf("classify: trigger message has %d line(s), need 3", len(lines))
		}
		sender, err := domain.ParseJID(ev.Body.Info.SenderJid)
		if err != nil {
			return Classification{}, fmt.Errorf("classify: %w", err)
		}
		return Classification{
			Kind:     KindStart,
			SenderID: sender,
			Payload: domain.OrderPayload{
				Nome:     ev.Body.Info.PushName,
				WhatsApp: sender,
				CSID:     strings.TrimSpace(lines[1]),
				NumRota:  lines[2],
			},
		}, nil
	}

	if ev.Body.Info.SenderJid != "" && bufferNonEmpty {
		sender, err := domain.ParseJID(ev.Body.Info.SenderJid)
		if err != nil {
			return Classification{}, fmt.Errorf("classify: %w", err)
		}
		return Classification{
			Kind:        KindContinuation,
			SenderID:    sender,
			Description: ev.Body.Text,
		}, nil
	}

	return Classification{Kind: KindNone}, nil
}
