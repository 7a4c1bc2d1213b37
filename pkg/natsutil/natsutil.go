// Package natsutil provides typed NATS request/reply helpers with
// OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Reply is the JSON envelope every responder sends back.
type Reply[T any] struct {
	Data  T      `json:"data"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// CodeBadRequest marks requests that could not be decoded.
const CodeBadRequest = "bad_request"

// RemoteError is a failure reported by a responder.
type RemoteError struct {
	Subject string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("nats %s: %s: %s", e.Subject, e.Code, e.Message)
	}
	return fmt.Sprintf("nats %s: %s", e.Subject, e.Message)
}

// Respond serves subject with h, decoding JSON requests of type Req and
// replying with a Reply[Resp]. A non-empty queue load-balances across
// responders. code, when set, classifies handler errors for the reply.
// Trace context is extracted from the request headers.
func Respond[Req, Resp any](nc *nats.Conn, subject, queue string, code func(error) string, h func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	handler := func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		var out Reply[Resp]

		var req Req
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				out.Error = "decode request: " + err.Error()
				out.Code = CodeBadRequest
				respond(msg, out)
				return
			}
		}
		resp, err := h(ctx, req)
		if err != nil {
			out.Error = err.Error()
			if code != nil {
				out.Code = code(err)
			}
		} else {
			out.Data = resp
		}
		respond(msg, out)
	}
	if queue != "" {
		return nc.QueueSubscribe(subject, queue, handler)
	}
	return nc.Subscribe(subject, handler)
}

func respond[T any](msg *nats.Msg, r Reply[T]) {
	data, err := json.Marshal(r)
	if err != nil {
		data, _ = json.Marshal(Reply[struct{}]{Error: "encode reply: " + err.Error()})
	}
	_ = msg.Respond(data)
}

// Request sends a JSON-encoded request and decodes the Reply. The wait is
// bounded by ctx, which must carry a deadline or be cancellable. Responder
// failures are returned as *RemoteError.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	data, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("nats %s: encode request: %w", subject, err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("nats %s: %w", subject, err)
	}
	var reply Reply[Resp]
	if err := json.Unmarshal(resp.Data, &reply); err != nil {
		return zero, fmt.Errorf("nats %s: decode reply: %w", subject, err)
	}
	if reply.Error != "" {
		return zero, &RemoteError{Subject: subject, Code: reply.Code, Message: reply.Error}
	}
	return reply.Data, nil
}
