// Package notes owns the single note collection shared by every account and
// the per-account purchase records derived from it.
package notes

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

// Repository provides per-account views and mutations over the note collection.
type Repository struct {
	kv        store.KeyValue
	notes     *codec.Codec[domain.Note]
	purchases *codec.Codec[string]
	events    sse.Emitter
	logger    *slog.Logger
	now       func() time.Time
	seed      bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

// WithSampleSeeding enables synthesizing sample public notes when an
// account's public feed is empty.
func WithSampleSeeding(enabled bool) Option {
	return func(r *Repository) {
		r.seed = enabled
	}
}

// WithEmitter publishes note events on emitter.
func WithEmitter(emitter sse.Emitter) Option {
	return func(r *Repository) {
		if emitter != nil {
			r.events = emitter
		}
	}
}

// NewRepository creates a Repository over kv.
func NewRepository(kv store.KeyValue, logger *slog.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Repository{
		kv:        kv,
		notes:     codec.Notes(logger),
		purchases: codec.NoteIDs(logger),
		events:    sse.NoopEmitter{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// All returns every persisted note.
func (r *Repository) All(ctx context.Context) ([]domain.Note, error) {
	raw, ok, err := r.kv.Read(ctx, store.NotesKey)
	if err != nil {
		return nil, err
	}
	return r.notes.Decode(raw, ok), nil
}

// ListMine returns every note owned by account, most recently updated first.
func (r *Repository) ListMine(ctx context.Context, account string) ([]domain.Note, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	mine := make([]domain.Note, 0)
	for _, n := range all {
		if n.OwnedBy(account) {
			mine = append(mine, n)
		}
	}
	sortByUpdated(mine)
	return mine, nil
}

// ListPublicOthers returns the public notes of every other account, with
// Unlocked set on those account has purchased. When the feed is empty and
// seeding is enabled the sample notes are persisted first.
func (r *Repository) ListPublicOthers(ctx context.Context, account string) ([]domain.Note, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}

	others := publicOthers(all, account)
	if len(others) == 0 && r.seed {
		if err := r.SeedPublicSamples(ctx); err != nil {
			return nil, err
		}
		if all, err = r.All(ctx); err != nil {
			return nil, err
		}
		others = publicOthers(all, account)
	}

	purchased, err := r.PurchasedIDs(ctx, account)
	if err != nil {
		return nil, err
	}
	for i := range others {
		others[i].Unlocked = slices.Contains(purchased, others[i].ID)
	}

	sortByUpdated(others)
	return others, nil
}

// Get returns the note with noteID as seen by viewer.
func (r *Repository) Get(ctx context.Context, noteID, viewer string) (domain.Note, error) {
	all, err := r.All(ctx)
	if err != nil {
		return domain.Note{}, err
	}

	idx := indexOf(all, noteID)
	if idx < 0 {
		return domain.Note{}, errors.NotFoundf("note %s not found", noteID)
	}
	note := all[idx]

	if !note.OwnedBy(viewer) {
		purchased, err := r.PurchasedIDs(ctx, viewer)
		if err != nil {
			return domain.Note{}, err
		}
		note.Unlocked = slices.Contains(purchased, note.ID)
	}
	return note, nil
}

// Create validates draft and appends a new note owned by account.
func (r *Repository) Create(ctx context.Context, draft domain.NoteDraft, account string) (domain.Note, error) {
	title := domain.CleanText(draft.Title)
	content := domain.CleanText(draft.Content)
	if title == "" || content == "" {
		return domain.Note{}, errors.Validation("title and content are required")
	}

	noteID, err := id.GenerateAt("note", r.now())
	if err != nil {
		return domain.Note{}, errors.Internal("failed to generate note id").WithCause(err)
	}

	now := r.now().UnixMilli()
	note := domain.Note{
		ID:       noteID,
		Title:    title,
		Content:  content,
		Created:  now,
		Updated:  now,
		IsPublic: draft.IsPublic,
		Owner:    domain.NormalizeAccount(account),
		Author:   domain.CleanText(draft.Author),
	}
	if note.Author == "" {
		note.Author = domain.ShortAccount(note.Owner)
	}
	if note.IsPublic {
		note.PublicPrice = strings.TrimSpace(draft.PublicPrice)
	}

	err = r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		return append(all, note), nil
	})
	if err != nil {
		return domain.Note{}, err
	}

	r.logger.Info("note created",
		slog.String("note_id", note.ID),
		slog.String("owner", note.Owner),
		slog.Bool("public", note.IsPublic))
	r.events.Emit(sse.NewNoteEvent(sse.EventNoteCreated, note))
	return note, nil
}

// Update merges patch into the note and bumps its updated timestamp.
func (r *Repository) Update(ctx context.Context, noteID string, patch domain.NotePatch) (domain.Note, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return domain.Note{}, errors.Validation("title cannot be empty")
	}
	if patch.Content != nil && strings.TrimSpace(*patch.Content) == "" {
		return domain.Note{}, errors.Validation("content cannot be empty")
	}

	var updated domain.Note
	err := r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		idx := indexOf(all, noteID)
		if idx < 0 {
			return nil, errors.NotFoundf("note %s not found", noteID)
		}
		all[idx].Apply(patch)
		all[idx].Touch(r.now())
		updated = all[idx]
		return all, nil
	})
	if err != nil {
		return domain.Note{}, err
	}

	r.events.Emit(sse.NewNoteEvent(sse.EventNoteUpdated, updated))
	return updated, nil
}

// Delete removes the note when account owns it.
func (r *Repository) Delete(ctx context.Context, noteID, account string) error {
	err := r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		idx := indexOf(all, noteID)
		if idx < 0 {
			return nil, errors.NotFoundf("note %s not found", noteID)
		}
		if !all[idx].OwnedBy(account) {
			return nil, errors.Forbidden("only the owner can delete a note")
		}
		return slices.Delete(all, idx, idx+1), nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("note deleted", slog.String("note_id", noteID), slog.String("owner", account))
	r.events.Emit(sse.NewNoteDeletedEvent(noteID))
	return nil
}

// IncrementTip adds one to the note's tip count. The read-modify-write runs
// as a single store transaction so concurrent tips are not lost.
func (r *Repository) IncrementTip(ctx context.Context, noteID string) (domain.Note, error) {
	var tipped domain.Note
	err := r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		idx := indexOf(all, noteID)
		if idx < 0 {
			return nil, errors.NotFoundf("note %s not found", noteID)
		}
		all[idx].TipCount++
		tipped = all[idx]
		return all, nil
	})
	if err != nil {
		return domain.Note{}, err
	}

	r.events.Emit(sse.NewNoteEvent(sse.EventNoteTipped, tipped))
	return tipped, nil
}

// AddSamples appends the demo notes to account's own view.
func (r *Repository) AddSamples(ctx context.Context, account string) ([]domain.Note, error) {
	samples := OwnSampleNotes(account, r.now())
	for i := range samples {
		sampleID, err := id.GenerateAt("note", r.now())
		if err != nil {
			return nil, errors.Internal("failed to generate note id").WithCause(err)
		}
		samples[i].ID = sampleID
	}

	err := r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		return append(all, samples...), nil
	})
	if err != nil {
		return nil, err
	}

	for _, n := range samples {
		r.events.Emit(sse.NewNoteEvent(sse.EventNoteCreated, n))
	}
	return samples, nil
}

// SeedPublicSamples persists the sample public notes that are not stored yet.
func (r *Repository) SeedPublicSamples(ctx context.Context) error {
	samples := SampleNotes(r.now())

	var added []domain.Note
	err := r.mutate(ctx, func(all []domain.Note) ([]domain.Note, error) {
		added = added[:0]
		for _, s := range samples {
			if !hasSample(all, s) {
				all = append(all, s)
				added = append(added, s)
			}
		}
		return all, nil
	})
	if err != nil {
		return err
	}

	for _, n := range added {
		r.events.Emit(sse.NewNoteEvent(sse.EventNoteCreated, n))
	}
	r.logger.Info("seeded sample public notes", slog.Int("count", len(added)))
	return nil
}

// mutate runs fn over the decoded collection inside one store update and
// persists the result. An error from fn leaves the collection untouched.
func (r *Repository) mutate(ctx context.Context, fn func([]domain.Note) ([]domain.Note, error)) error {
	return r.kv.Update(ctx, store.NotesKey, func(current string, ok bool) (string, bool, error) {
		next, err := fn(r.notes.Decode(current, ok))
		if err != nil {
			return "", false, err
		}
		for i := range next {
			next[i] = next[i].Persisted()
		}
		encoded, err := r.notes.Encode(next)
		return encoded, false, err
	})
}

func publicOthers(all []domain.Note, account string) []domain.Note {
	out := make([]domain.Note, 0)
	for _, n := range all {
		if n.IsPublic && !n.OwnedBy(account) {
			out = append(out, n)
		}
	}
	return out
}

// hasSample matches on owner and title since sample IDs embed the seeding time.
func hasSample(all []domain.Note, sample domain.Note) bool {
	return slices.ContainsFunc(all, func(n domain.Note) bool {
		return n.Owner == sample.Owner && n.Title == sample.Title
	})
}

func indexOf(all []domain.Note, noteID string) int {
	return slices.IndexFunc(all, func(n domain.Note) bool { return n.ID == noteID })
}

func sortByUpdated(notes []domain.Note) {
	slices.SortStableFunc(notes, func(a, b domain.Note) int {
		return cmp.Compare(b.Updated, a.Updated)
	})
}
