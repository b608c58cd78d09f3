package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/subaccounts/notes-server/internal/domain"
	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/search"
	"github.com/subaccounts/notes-server/internal/service"
)

func (s *Server) registerNoteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listMyNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes",
		Summary:     "List my notes",
		Description: "Returns the caller's notes, most recently updated first",
		Tags:        []string{"Notes"},
	}, s.handleListMyNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPublicNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/public",
		Summary:     "List public notes",
		Description: "Returns other accounts' public notes with the caller's unlock state",
		Tags:        []string{"Notes"},
	}, s.handleListPublicNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchNotes",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/search",
		Summary:     "Search notes",
		Description: "Full-text search over the caller's notes and public notes, best match first",
		Tags:        []string{"Notes"},
	}, s.handleSearchNotes)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createNote",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes",
		Summary:       "Create note",
		Description:   "Creates a note owned by the caller",
		Tags:          []string{"Notes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateNote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addSampleNotes",
		Method:        http.MethodPost,
		Path:          "/api/v1/notes/samples",
		Summary:       "Add sample notes",
		Description:   "Adds the demo notes to the caller's collection",
		Tags:          []string{"Notes"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddSampleNotes)

	huma.Register(s.api, huma.Operation{
		OperationID: "purchaseAllNotes",
		Method:      http.MethodPost,
		Path:        "/api/v1/notes/purchase-all",
		Summary:     "Purchase all notes",
		Description: "Buys every priced public note the caller has not unlocked. Individual failures do not stop the rest.",
		Tags:        []string{"Notes", "Wallet"},
	}, s.handlePurchaseAll)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNote",
		Method:      http.MethodGet,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Get note",
		Description: "Returns a note by ID",
		Tags:        []string{"Notes"},
	}, s.handleGetNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateNote",
		Method:      http.MethodPatch,
		Path:        "/api/v1/notes/{id}",
		Summary:     "Update note",
		Description: "Updates the given fields of a note. Making a note private clears its price.",
		Tags:        []string{"Notes"},
	}, s.handleUpdateNote)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteNote",
		Method:        http.MethodDelete,
		Path:          "/api/v1/notes/{id}",
		Summary:       "Delete note",
		Description:   "Deletes one of the caller's notes",
		Tags:          []string{"Notes"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "tipNote",
		Method:      http.MethodPost,
		Path:        "/api/v1/notes/{id}/tip",
		Summary:     "Tip note",
		Description: "Sends a 0.0001 ETH tip to the note's owner",
		Tags:        []string{"Notes", "Wallet"},
	}, s.handleTipNote)

	huma.Register(s.api, huma.Operation{
		OperationID: "purchaseNote",
		Method:      http.MethodPost,
		Path:        "/api/v1/notes/{id}/purchase",
		Summary:     "Purchase note",
		Description: "Pays the note's price to its owner and adds a private copy to the caller's notes",
		Tags:        []string{"Notes", "Wallet"},
	}, s.handlePurchaseNote)
}

// === DTOs ===

// AccountInput identifies the caller.
type AccountInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
}

// SearchNotesInput is a full-text query.
type SearchNotesInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
	Query   string `query:"q" doc:"Search text"`
	Scope   string `query:"scope" enum:"visible,mine,public" doc:"visible (default), mine or public"`
	Limit   int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum notes returned; 20 when 0"`
}

// SearchNotesOutput wraps the search result for Huma.
type SearchNotesOutput struct {
	Body *service.NoteSearchResult
}

// NoteIDInput identifies the caller and a note.
type NoteIDInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
	ID      string `path:"id" doc:"Note ID"`
}

// NotesResponse contains a list of notes.
type NotesResponse struct {
	Notes []domain.Note `json:"notes" doc:"Notes"`
}

// NotesOutput wraps a list of notes for Huma.
type NotesOutput struct {
	Body NotesResponse
}

// NoteOutput wraps a single note for Huma.
type NoteOutput struct {
	Body domain.Note
}

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title       string `json:"title" validate:"notblank,max=200" doc:"Note title"`
	Content     string `json:"content" validate:"notblank,max=20000" doc:"Note body"`
	Author      string `json:"author,omitempty" validate:"max=80" doc:"Display name; defaults to the shortened account"`
	PublicPrice string `json:"publicPrice,omitempty" validate:"omitempty,eth_amount" doc:"Unlock price in ETH; kept only for public notes"`
	IsPublic    bool   `json:"isPublic,omitempty" doc:"Show the note in the public feed"`
}

// CreateNoteInput wraps the create note request for Huma.
type CreateNoteInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
	Body    CreateNoteRequest
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,notblank,max=200" doc:"Note title"`
	Content     *string `json:"content,omitempty" validate:"omitempty,notblank,max=20000" doc:"Note body"`
	Author      *string `json:"author,omitempty" validate:"omitempty,max=80" doc:"Display name"`
	PublicPrice *string `json:"publicPrice,omitempty" validate:"omitempty,eth_amount" doc:"Unlock price in ETH; empty string removes it"`
	IsPublic    *bool   `json:"isPublic,omitempty" doc:"Show the note in the public feed"`
}

// UpdateNoteInput wraps the update note request for Huma.
type UpdateNoteInput struct {
	Account string `header:"X-Account" doc:"Connected Sub Account address"`
	ID      string `path:"id" doc:"Note ID"`
	Body    UpdateNoteRequest
}

// TipOutput wraps the tip result for Huma.
type TipOutput struct {
	Body *service.TipResult
}

// PurchaseOutput wraps a purchase result for Huma.
type PurchaseOutput struct {
	Body *service.PurchaseResult
}

// PurchaseAllOutput wraps a bulk purchase result for Huma.
type PurchaseAllOutput struct {
	Body *service.PurchaseAllResult
}

// === Handlers ===

func (s *Server) handleListMyNotes(ctx context.Context, input *AccountInput) (*NotesOutput, error) {
	notes, err := s.services.Notes.ListMine(ctx, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &NotesOutput{Body: NotesResponse{Notes: notes}}, nil
}

func (s *Server) handleListPublicNotes(ctx context.Context, input *AccountInput) (*NotesOutput, error) {
	notes, err := s.services.Notes.ListPublicOthers(ctx, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &NotesOutput{Body: NotesResponse{Notes: notes}}, nil
}

func (s *Server) handleSearchNotes(ctx context.Context, input *SearchNotesInput) (*SearchNotesOutput, error) {
	if s.services.Search == nil {
		return nil, domainerrors.NotConfigured("search is not available")
	}
	result, err := s.services.Search.Search(ctx, account(input.Account), input.Query, search.Scope(input.Scope), input.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchNotesOutput{Body: result}, nil
}

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*NoteOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Create(ctx, domain.NoteDraft{
		Title:       input.Body.Title,
		Content:     input.Body.Content,
		Author:      input.Body.Author,
		PublicPrice: input.Body.PublicPrice,
		IsPublic:    input.Body.IsPublic,
	}, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleAddSampleNotes(ctx context.Context, input *AccountInput) (*NotesOutput, error) {
	notes, err := s.services.Notes.AddSamples(ctx, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &NotesOutput{Body: NotesResponse{Notes: notes}}, nil
}

func (s *Server) handleGetNote(ctx context.Context, input *NoteIDInput) (*NoteOutput, error) {
	note, err := s.services.Notes.Get(ctx, input.ID, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleUpdateNote(ctx context.Context, input *UpdateNoteInput) (*NoteOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	note, err := s.services.Notes.Update(ctx, input.ID, domain.NotePatch{
		Title:       input.Body.Title,
		Content:     input.Body.Content,
		Author:      input.Body.Author,
		PublicPrice: input.Body.PublicPrice,
		IsPublic:    input.Body.IsPublic,
	})
	if err != nil {
		return nil, err
	}
	return &NoteOutput{Body: note}, nil
}

func (s *Server) handleDeleteNote(ctx context.Context, input *NoteIDInput) (*struct{}, error) {
	if err := s.services.Notes.Delete(ctx, input.ID, account(input.Account)); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleTipNote(ctx context.Context, input *NoteIDInput) (*TipOutput, error) {
	result, err := s.services.Wallet.Tip(ctx, account(input.Account), input.ID)
	if err != nil {
		return nil, err
	}
	return &TipOutput{Body: result}, nil
}

func (s *Server) handlePurchaseNote(ctx context.Context, input *NoteIDInput) (*PurchaseOutput, error) {
	result, err := s.services.Wallet.Purchase(ctx, account(input.Account), input.ID)
	if err != nil {
		return nil, err
	}
	return &PurchaseOutput{Body: result}, nil
}

func (s *Server) handlePurchaseAll(ctx context.Context, input *AccountInput) (*PurchaseAllOutput, error) {
	result, err := s.services.Wallet.PurchaseAll(ctx, account(input.Account))
	if err != nil {
		return nil, err
	}
	return &PurchaseAllOutput{Body: result}, nil
}
