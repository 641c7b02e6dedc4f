package httpclient

import (
	"context"
	"fmt"
	"time"

	"multisender/internal/app/port"
	"multisender/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultNotifyTimeout = 5 * time.Second

// TransferEvent is the body posted for every settled transfer.
type TransferEvent struct {
	Event  string                `json:"event"`
	SentAt time.Time             `json:"sentAt"`
	Ticket entity.TransferTicket `json:"ticket"`
}

// WebhookNotifier posts settled transfer tickets to an HTTP endpoint.
type WebhookNotifier struct {
	client  *fasthttp.Client
	url     string
	timeout time.Duration
	logger  *zap.Logger
}

var _ port.TransferNotifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		client:  &fasthttp.Client{Name: "multisender"},
		url:     url,
		timeout: timeout,
		logger:  logger.Named("WebhookNotifier"),
	}
}

// NotifyTransfer implements port.TransferNotifier.
func (n *WebhookNotifier) NotifyTransfer(ctx context.Context, ticket entity.TransferTicket) error {
	body, err := json.Marshal(TransferEvent{
		Event:  "transfer." + ticket.State.String(),
		SentAt: time.Now().UTC(),
		Ticket: ticket,
	})
	if err != nil {
		return fmt.Errorf("failed to encode transfer event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(n.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBodyRaw(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline := time.Now().Add(n.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := n.client.DoDeadline(req, resp, deadline); err != nil {
		n.logger.Error("Failed to deliver transfer event", zap.String("url", n.url), zap.String("ticket", ticket.ID), zap.Error(err))
		return fmt.Errorf("failed to post transfer event to %s: %w", n.url, err)
	}

	if code := resp.StatusCode(); code < fasthttp.StatusOK || code >= fasthttp.StatusMultipleChoices {
		n.logger.Error("Webhook rejected transfer event",
			zap.String("url", n.url),
			zap.Int("statusCode", code),
			zap.ByteString("responseBody", resp.Body()),
		)
		return fmt.Errorf("webhook %s answered with status %d", n.url, code)
	}

	n.logger.Debug("Transfer event delivered", zap.String("ticket", ticket.ID), zap.String("state", ticket.State.String()))
	return nil
}
