// Package audit is the fire-and-forget activity log. Writes are best effort:
// a failing sink is logged and swallowed, never surfaced to the user.
package audit

import (
	"context"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

// Entry is one activity line: who did what, in free text.
type Entry struct {
	UserID  int64
	ChatJID string
	Label   string
	Detail  string
}

// Sink accepts activity entries. Implementations must not block the caller on
// failure; Record never returns an error by contract.
type Sink interface {
	Record(ctx context.Context, e Entry)
}

// Store is the persistence slice a storeSink writes through.
type Store interface {
	AppendActivity(ctx context.Context, userID int64, chatJID, label, detail string) error
}

type storeSink struct {
	store  Store
	logger *log.Logger
}

// NewStoreSink records activity into the relational store, swallowing write
// failures.
func NewStoreSink(store Store, logger *log.Logger) Sink {
	return &storeSink{
		store:  store,
		logger: logger.WithComponent(log.ComponentAudit),
	}
}

func (s *storeSink) Record(ctx context.Context, e Entry) {
	if err := s.store.AppendActivity(ctx, e.UserID, e.ChatJID, e.Label, e.Detail); err != nil {
		s.logger.WarnContext(ctx, "Activity write failed",
			log.FieldUserID, e.UserID,
			"label", e.Label,
			log.FieldError, err)
	}
}

type multiSink struct {
	sinks []Sink
}

// Fanout delivers every entry to each sink in order. Nil sinks are skipped.
func Fanout(sinks ...Sink) Sink {
	var kept []Sink
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &multiSink{sinks: kept}
}

func (m *multiSink) Record(ctx context.Context, e Entry) {
	for _, s := range m.sinks {
		s.Record(ctx, e)
	}
}

// Discard drops every entry. Useful in tests.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(context.Context, Entry) {}
