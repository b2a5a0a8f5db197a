// Webhook HTTP handler.
//
// This file exposes the single inbound endpoint of the gateway:
//   - POST /webhook (mounted under the configured API base path)
//
// The handler is transport-thin: it decodes the platform's event envelope,
// hands it to the pipeline, and acknowledges. The contract with the chat
// platform is that the webhook ALWAYS answers 200 with an empty object:
// classification errors, duplicate submissions, and saga failures are all
// communicated to the end user over the chat channel, never via the HTTP
// status.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/assistec/wpp-os-gateway/internal/domain"
	"github.com/assistec/wpp-os-gateway/internal/http/middleware"
)

// EventPipeline processes one inbound webhook event end to end.
// Implementations never return an error; all failures are handled
// internally.
type EventPipeline interface {
	Handle(ctx context.Context, ev domain.WebhookEvent)
}

// Handlers bundles the HTTP handlers with their injected collaborators.
type Handlers struct {
	pipeline EventPipeline
}

// New constructs a Handlers instance bound to the given pipeline.
func New(pipeline EventPipeline) *Handlers {
	return &Handlers{pipeline: pipeline}
}

// Webhook godoc
// @ID          webhook
// @Summary     Receive a chat-platform event
// @Description Ingests an asynchronous message event. The response is always
// @Description 200 with an empty body; outcomes are reported to the sender
// @Description over the chat channel.
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       body  body  domain.WebhookEvent  true  "Platform event envelope"
// @Success     200  {object}  map[string]any  "Always empty"
// @Router      /webhook [post]
func (h *Handlers) Webhook(c *gin.Context) {
	var ev domain.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		// An undecodable body is a classification no-op, not a client error
		// the platform should retry.
		middleware.LoggerFrom(c).Warn().Err(err).Msg("undecodable webhook body")
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	h.pipeline.Handle(c.Request.Context(), ev)
	c.JSON(http.StatusOK, gin.H{})
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
