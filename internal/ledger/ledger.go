// Package ledger keeps the bounded, newest-first transaction history of each
// account.
package ledger

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/subaccounts/notes-server/internal/codec"
	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/id"
	"github.com/subaccounts/notes-server/internal/sse"
	"github.com/subaccounts/notes-server/internal/store"
)

// DefaultCap is the number of records kept per account.
const DefaultCap = 50

// Ledger appends and lists TransactionRecords per account.
type Ledger struct {
	kv     store.KeyValue
	codec  *codec.Codec[domain.TransactionRecord]
	events sse.Emitter
	logger *slog.Logger
	now    func() time.Time
	cap    int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithCap overrides DefaultCap. Non-positive values are ignored.
func WithCap(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.cap = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithEmitter publishes ledger events on emitter.
func WithEmitter(emitter sse.Emitter) Option {
	return func(l *Ledger) {
		if emitter != nil {
			l.events = emitter
		}
	}
}

// New creates a Ledger over kv.
func New(kv store.KeyValue, logger *slog.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	l := &Ledger{
		kv:     kv,
		codec:  codec.Transactions(logger),
		events: sse.NoopEmitter{},
		logger: logger,
		now:    time.Now,
		cap:    DefaultCap,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cap returns the per-account bound.
func (l *Ledger) Cap() int {
	return l.cap
}

// Append records in for account, keeps only the newest Cap records and
// publishes transaction.created.
func (l *Ledger) Append(ctx context.Context, account string, in domain.TransactionInput) (domain.TransactionRecord, error) {
	if err := in.Validate(); err != nil {
		return domain.TransactionRecord{}, errors.Validation(err.Error())
	}
	account = domain.NormalizeAccount(account)

	at := l.now()
	recID, err := id.GenerateAt("tx", at)
	if err != nil {
		return domain.TransactionRecord{}, errors.Internal("failed to generate transaction id").WithCause(err)
	}

	rec := domain.TransactionRecord{
		ID:        recID,
		Hash:      strings.TrimSpace(in.Hash),
		Type:      in.Type,
		Details:   in.Details,
		Timestamp: at.UnixMilli(),
		NoteID:    in.NoteID,
		Title:     in.Title,
		Author:    in.Author,
		Amount:    in.Amount,
	}

	err = l.kv.Update(ctx, store.TransactionsKey(account), func(current string, ok bool) (string, bool, error) {
		records := append([]domain.TransactionRecord{rec}, l.codec.Decode(current, ok)...)
		sortNewestFirst(records)
		if len(records) > l.cap {
			records = records[:l.cap]
		}
		encoded, err := l.codec.Encode(records)
		return encoded, false, err
	})
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	l.logger.Info("transaction recorded",
		slog.String("account", account),
		slog.String("type", string(rec.Type)),
		slog.String("hash", rec.Hash))
	l.events.Emit(sse.NewTransactionCreatedEvent(account, rec))
	return rec, nil
}

// List returns account's records, newest first.
func (l *Ledger) List(ctx context.Context, account string) ([]domain.TransactionRecord, error) {
	raw, ok, err := l.kv.Read(ctx, store.TransactionsKey(domain.NormalizeAccount(account)))
	if err != nil {
		return nil, err
	}

	// Producers may have written out of order, so sort on every read.
	records := l.codec.Decode(raw, ok)
	sortNewestFirst(records)
	return records, nil
}

// Clear removes account's whole history.
func (l *Ledger) Clear(ctx context.Context, account string) error {
	account = domain.NormalizeAccount(account)
	if err := l.kv.Remove(ctx, store.TransactionsKey(account)); err != nil {
		return err
	}

	l.logger.Info("transaction history cleared", slog.String("account", account))
	l.events.Emit(sse.NewLedgerClearedEvent(account))
	return nil
}

func sortNewestFirst(records []domain.TransactionRecord) {
	slices.SortStableFunc(records, func(a, b domain.TransactionRecord) int {
		return cmp.Compare(b.Timestamp, a.Timestamp)
	})
}
