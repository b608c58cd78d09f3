package notes

import (
	"context"
	"log/slog"
	"slices"

	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/id"
	"github.com/subaccounts/notes-server/internal/sse"
	"github.com/subaccounts/notes-server/internal/store"
)

// Purchased is one completed purchase.
type Purchased struct {
	Source    domain.Note `json:"source"`
	Copy      domain.Note `json:"copy"`
	Reference string      `json:"reference,omitempty"` // Payment transaction hash
}

// BulkResult reports a best-effort bulk purchase.
type BulkResult struct {
	Succeeded []Purchased `json:"succeeded"`
	Failed    []string    `json:"failed"`
	Attempted int         `json:"attempted"`
}

// PaymentFunc pays for source and returns a payment reference.
type PaymentFunc func(ctx context.Context, source domain.Note) (string, error)

// PurchasedIDs returns the ids of the notes account has purchased.
func (r *Repository) PurchasedIDs(ctx context.Context, account string) ([]string, error) {
	raw, ok, err := r.kv.Read(ctx, store.PurchasesKey(domain.NormalizeAccount(account)))
	if err != nil {
		return nil, err
	}
	return r.purchases.Decode(raw, ok), nil
}

// Purchasable returns the source note when buyer may purchase it: the note
// exists, is public and priced, belongs to someone else and has not been
// purchased by buyer yet.
func (r *Repository) Purchasable(ctx context.Context, noteID, buyer string) (domain.Note, error) {
	note, err := r.Get(ctx, noteID, buyer)
	if err != nil {
		return domain.Note{}, err
	}
	if !note.IsPriced() {
		return domain.Note{}, errors.Validationf("note %s is not for sale", noteID)
	}
	if note.OwnedBy(buyer) {
		return domain.Note{}, errors.Validation("cannot purchase your own note")
	}
	if note.Unlocked {
		return domain.Note{}, errors.Conflict("note already purchased")
	}
	return note, nil
}

// Candidates returns every note buyer could purchase right now.
func (r *Repository) Candidates(ctx context.Context, buyer string) ([]domain.Note, error) {
	feed, err := r.ListPublicOthers(ctx, buyer)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Note, 0, len(feed))
	for _, n := range feed {
		if n.IsPriced() && !n.Unlocked {
			out = append(out, n)
		}
	}
	return out, nil
}

// Purchase creates a private copy of the source note owned by buyer and
// records the purchase without a payment step. The source note is left
// unchanged.
func (r *Repository) Purchase(ctx context.Context, noteID, buyer string) (domain.Note, error) {
	p, err := r.PurchaseWith(ctx, noteID, buyer, nil)
	if err != nil {
		return domain.Note{}, err
	}
	return p.Copy, nil
}

// PurchaseWith reserves noteID in buyer's purchase record, pays through pay
// and then writes buyer's copy. A purchase of a note buyer already holds, or
// one racing with it, fails with CONFLICT before pay runs. The reservation is
// released when payment or the copy fails, so the record and the copy are
// only ever present together.
func (r *Repository) PurchaseWith(ctx context.Context, noteID, buyer string, pay PaymentFunc) (Purchased, error) {
	buyer = domain.NormalizeAccount(buyer)

	source, err := r.Purchasable(ctx, noteID, buyer)
	if err != nil {
		return Purchased{}, err
	}

	if err := r.reserve(ctx, buyer, noteID); err != nil {
		return Purchased{}, err
	}

	var ref string
	if pay != nil {
		if ref, err = pay(ctx, source); err != nil {
			r.release(ctx, buyer, noteID)
			return Purchased{}, err
		}
	}

	purchased, err := r.writeCopy(ctx, noteID, buyer)
	if err != nil {
		r.release(ctx, buyer, noteID)
		if ref != "" {
			r.logger.Error("paid purchase not completed",
				slog.String("note_id", noteID),
				slog.String("buyer", buyer),
				slog.String("reference", ref),
				slog.String("error", err.Error()))
		}
		return Purchased{}, err
	}

	r.logger.Info("note purchased",
		slog.String("source_id", noteID),
		slog.String("copy_id", purchased.ID),
		slog.String("buyer", buyer))
	r.events.Emit(sse.NewNotePurchasedEvent(noteID, purchased))

	source.Unlocked = true
	return Purchased{Source: source, Copy: purchased, Reference: ref}, nil
}

// writeCopy appends buyer's private copy of the source note.
func (r *Repository) writeCopy(ctx context.Context, noteID, buyer string) (domain.Note, error) {
	copyID, err := id.GenerateAt("note", r.now())
	if err != nil {
		return domain.Note{}, errors.Internal("failed to generate note id").WithCause(err)
	}

	var purchased domain.Note
	err = r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		idx := indexOf(all, noteID)
		if idx < 0 {
			return nil, errors.NotFoundf("note %s not found", noteID)
		}
		source := all[idx]
		if !source.IsPriced() {
			return nil, errors.Validationf("note %s is not for sale", noteID)
		}

		now := r.now().UnixMilli()
		purchased = domain.Note{
			ID:       copyID,
			Title:    source.Title,
			Content:  source.Content,
			Created:  now,
			Updated:  now,
			IsPublic: false,
			Owner:    buyer,
			Author:   source.DisplayAuthor(),
		}
		return append(all, purchased), nil
	})
	return purchased, err
}

// BulkPurchase pays for and purchases each note independently. A failure on
// one note is logged and recorded in Failed; the remaining notes are still
// attempted.
func (r *Repository) BulkPurchase(ctx context.Context, noteIDs []string, buyer string, pay PaymentFunc) BulkResult {
	result := BulkResult{
		Succeeded: make([]Purchased, 0, len(noteIDs)),
		Failed:    make([]string, 0),
	}

	for _, noteID := range noteIDs {
		if ctx.Err() != nil {
			result.Failed = append(result.Failed, noteID)
			result.Attempted++
			continue
		}
		result.Attempted++

		p, err := r.PurchaseWith(ctx, noteID, buyer, pay)
		if err != nil {
			r.logger.Warn("bulk purchase entry failed",
				slog.String("note_id", noteID),
				slog.String("buyer", buyer),
				slog.String("error", err.Error()))
			result.Failed = append(result.Failed, noteID)
			continue
		}
		result.Succeeded = append(result.Succeeded, p)
	}

	r.logger.Info("bulk purchase finished",
		slog.String("buyer", buyer),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("attempted", result.Attempted))
	return result
}

// reserve adds noteID to buyer's purchase record, failing with CONFLICT when
// it is already there.
func (r *Repository) reserve(ctx context.Context, buyer, noteID string) error {
	return r.kv.Update(ctx, store.PurchasesKey(buyer), func(current string, ok bool) (string, bool, error) {
		ids := r.purchases.Decode(current, ok)
		if slices.Contains(ids, noteID) {
			return "", false, errors.Conflict("note already purchased")
		}
		encoded, err := r.purchases.Encode(append(ids, noteID))
		return encoded, false, err
	})
}

// release drops noteID from buyer's purchase record. It runs even when ctx
// has been canceled.
func (r *Repository) release(ctx context.Context, buyer, noteID string) {
	err := r.kv.Update(context.WithoutCancel(ctx), store.PurchasesKey(buyer), func(current string, ok bool) (string, bool, error) {
		ids := slices.DeleteFunc(r.purchases.Decode(current, ok), func(v string) bool { return v == noteID })
		if len(ids) == 0 {
			return "", true, nil
		}
		encoded, err := r.purchases.Encode(ids)
		return encoded, false, err
	})
	if err != nil {
		r.logger.Error("failed to release purchase reservation",
			slog.String("note_id", noteID),
			slog.String("buyer", buyer),
			slog.String("error", err.Error()))
	}
}
