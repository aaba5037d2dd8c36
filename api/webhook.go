package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/squideyes/esignatures/delivery"
	"github.com/squideyes/esignatures/signature"
	"github.com/squideyes/esignatures/webhook"
)

// Callback response bodies.
const (
	msgReceived         = "Received"
	msgNoAuthorization  = "No Authorization"
	msgBadAuthorization = "Bad Authorization"
	msgInvalidStatus    = "Invalid Status Value"
	msgTooLarge         = "Payload Too Large"
	msgUnreadable       = "Unreadable Body"
	msgInternal         = "Internal Server Error"
)

// Receive results, used as the metrics label and span attribute.
const (
	ResultReceived      = "received"
	ResultUnauthorized  = "unauthorized"
	ResultInvalidStatus = "invalid_status"
	ResultBadBody       = "bad_body"
	ResultQueueError    = "queue_error"
)

type receiveResult struct {
	status int
	body   string
	result string
}

func (h *Handler) receiveWebHook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var span trace.Span
	if h.config.Tracer != nil {
		ctx, span = h.config.Tracer.StartReceiveSpan(ctx, r.RemoteAddr)
	}

	res := h.receive(ctx, w, r)

	h.config.Metrics.RecordReceive(res.result)
	if span != nil {
		h.config.Tracer.EndReceiveSpan(span, res.result, res.status)
	}
	writeText(w, res.status, res.body)
}

// receive authenticates the caller before touching the body, then queues
// the raw callback.
func (h *Handler) receive(ctx context.Context, w http.ResponseWriter, r *http.Request) receiveResult {
	if err := signature.Verify(r.Header.Get("Authorization"), h.config.Secret); err != nil {
		h.logger.WarnContext(ctx, "webhook rejected",
			"remote_addr", r.RemoteAddr, "error", err)
		if errors.Is(err, signature.ErrNoAuthorization) {
			return receiveResult{http.StatusForbidden, msgNoAuthorization, ResultUnauthorized}
		}
		return receiveResult{http.StatusForbidden, msgBadAuthorization, ResultUnauthorized}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return receiveResult{http.StatusRequestEntityTooLarge, msgTooLarge, ResultBadBody}
		}
		return receiveResult{http.StatusBadRequest, msgUnreadable, ResultBadBody}
	}

	kind, err := webhook.Status(body)
	if err != nil {
		h.logger.WarnContext(ctx, "webhook with invalid status", "error", err)
		return receiveResult{http.StatusBadRequest, msgInvalidStatus, ResultInvalidStatus}
	}

	m := delivery.NewMessage(body)
	if err := h.queue.Enqueue(ctx, m); err != nil {
		h.logger.ErrorContext(ctx, "enqueue webhook failed",
			"kind", kind, "error", err)
		return receiveResult{http.StatusInternalServerError, msgInternal, ResultQueueError}
	}

	h.logger.DebugContext(ctx, "webhook queued",
		"message_id", m.ID, "kind", kind)
	return receiveResult{http.StatusOK, msgReceived, ResultReceived}
}
