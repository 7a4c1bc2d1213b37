// Package events exposes the dashboard's read operations as NATS
// request-reply subjects.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/wessley-inspect/engine/dashboard"
	"github.com/WessleyAI/wessley-inspect/engine/domain"
	"github.com/WessleyAI/wessley-inspect/engine/inspection"
	"github.com/WessleyAI/wessley-inspect/engine/query"
	"github.com/WessleyAI/wessley-inspect/pkg/natsutil"
)

// Subjects served by Serve.
const (
	SubjectList    = "inspect.query.list"
	SubjectStats   = "inspect.query.stats"
	SubjectHistory = "inspect.query.history"
)

// QueueGroup load-balances requests across API replicas.
const QueueGroup = "inspect-api"

// Reply codes.
const (
	CodeInvalid  = "invalid"
	CodeNotFound = "not_found"
	CodeNoData   = "no_data"
	CodeUpstream = "upstream"
	CodeInternal = "internal"
)

// Service is the read side of the dashboard.
type Service interface {
	Query(query.Params) (query.Result, error)
	Stats() (inspection.Stats, error)
	History(id string) ([]dashboard.HistoryEntry, error)
}

// HistoryRequest asks for one vehicle's inspections.
type HistoryRequest struct {
	ID string `json:"id"`
}

// StatsRequest is empty; stats always describe the committed dataset.
type StatsRequest struct{}

// Server holds the responder subscriptions.
type Server struct {
	subs   []*nats.Subscription
	logger *slog.Logger
}

// Serve registers the query responders on nc.
func Serve(nc *nats.Conn, svc Service, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{logger: logger}

	list, err := natsutil.Respond(nc, SubjectList, QueueGroup, Code,
		func(_ context.Context, p query.Params) (query.Result, error) {
			return svc.Query(p)
		})
	if err != nil {
		return nil, fmt.Errorf("events: subscribe %s: %w", SubjectList, err)
	}
	s.subs = append(s.subs, list)

	stats, err := natsutil.Respond(nc, SubjectStats, QueueGroup, Code,
		func(context.Context, StatsRequest) (inspection.Stats, error) {
			return svc.Stats()
		})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("events: subscribe %s: %w", SubjectStats, err)
	}
	s.subs = append(s.subs, stats)

	history, err := natsutil.Respond(nc, SubjectHistory, QueueGroup, Code,
		func(_ context.Context, r HistoryRequest) ([]dashboard.HistoryEntry, error) {
			if domain.Normalize(r.ID) == "" {
				return nil, domain.NewValidationError("id", r.ID, domain.ErrInvalidParam)
			}
			return svc.History(r.ID)
		})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("events: subscribe %s: %w", SubjectHistory, err)
	}
	s.subs = append(s.subs, history)

	logger.Info("nats responders ready", "subjects", []string{SubjectList, SubjectStats, SubjectHistory})
	return s, nil
}

// Close unsubscribes every responder.
func (s *Server) Close() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn("nats unsubscribe", "subject", sub.Subject, "err", err)
		}
	}
	s.subs = nil
}

// Code classifies a dashboard error for a reply.
func Code(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidParam):
		return CodeInvalid
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrNoData):
		return CodeNoData
	case errors.Is(err, domain.ErrUpstream):
		return CodeUpstream
	default:
		return CodeInternal
	}
}
