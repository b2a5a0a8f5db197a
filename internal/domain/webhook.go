package domain

// EventTypeReceivedMessage is the event type the chat platform declares for
// inbound messages. The misspelling is the platform's, not ours; it is the
// exact literal present on the wire.
const EventTypeReceivedMessage = "receveid_message"

// WebhookEvent is the inbound webhook body posted by the chat platform.
// Field names are capitalized on the wire.
type WebhookEvent struct {
	Type string      `json:"Type"`
	Body WebhookBody `json:"Body"`
}

// WebhookBody carries the message text and its routing metadata.
type WebhookBody struct {
	Text string      `json:"Text"`
	Info WebhookInfo `json:"Info"`
}

// WebhookInfo identifies the sender of an inbound message.
//
// RemoteJid and SenderJid are platform addresses of the form
// "<digits>@<domain>"; the numeric prefix is the sender identity.
type WebhookInfo struct {
	PushName  string `json:"PushName"`
	RemoteJid string `json:"RemoteJid"`
	SenderJid string `json:"SenderJid"`
}
