package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/subaccounts/notes-server/internal/domain"
	domainerrors "github.com/subaccounts/notes-server/internal/errors"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/wallet"
)

// TipAmount is the fixed tip sent to a note's owner, in ETH.
const TipAmount = "0.0001"

// TipResult is the outcome of a tip.
type TipResult struct {
	Note        domain.Note              `json:"note"`
	Transaction domain.TransactionRecord `json:"transaction"`
}

// PurchaseResult is the outcome of a single purchase.
type PurchaseResult struct {
	Source      domain.Note              `json:"source"`
	Copy        domain.Note              `json:"copy"`
	Transaction domain.TransactionRecord `json:"transaction"`
}

// PurchaseAllResult reports a best-effort purchase of every available note.
type PurchaseAllResult struct {
	Succeeded []PurchaseResult `json:"succeeded"`
	Failed    []string         `json:"failed"`
	Attempted int              `json:"attempted"`
	TotalCost string           `json:"totalCost"` // ETH spent on succeeded purchases
}

// WalletService runs wallet actions and records them: a provider call
// followed, on success, by note and ledger writes.
type WalletService struct {
	notes    *notes.Repository
	ledger   *ledger.Ledger
	provider wallet.Provider
	logger   *slog.Logger
}

// NewWalletService creates a new wallet service.
func NewWalletService(repo *notes.Repository, l *ledger.Ledger, provider wallet.Provider, logger *slog.Logger) *WalletService {
	if provider == nil {
		provider = wallet.Unconfigured{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &WalletService{notes: repo, ledger: l, provider: provider, logger: logger}
}

// Send transfers amountETH from account to recipient.
func (s *WalletService) Send(ctx context.Context, account, to, amountETH string) (domain.TransactionRecord, error) {
	if err := requireAccount(account); err != nil {
		return domain.TransactionRecord{}, err
	}
	if !common.IsHexAddress(to) {
		return domain.TransactionRecord{}, domainerrors.Validationf("invalid recipient address %q", to)
	}
	value, err := parseAmount(amountETH)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	hash, err := s.provider.SendTransaction(ctx, account, to, value)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	amount := wallet.FormatEther(value)
	return s.ledger.Append(ctx, account, domain.TransactionInput{
		Hash:    hash,
		Type:    domain.TransactionSend,
		Details: fmt.Sprintf("Sent %s ETH to %s...", amount, prefix(to, 10)),
		Amount:  amount,
	})
}

// Sign signs message with account.
func (s *WalletService) Sign(ctx context.Context, account, message string) (domain.TransactionRecord, error) {
	if err := requireAccount(account); err != nil {
		return domain.TransactionRecord{}, err
	}
	if strings.TrimSpace(message) == "" {
		return domain.TransactionRecord{}, domainerrors.Validation("message is required")
	}

	signature, err := s.provider.SignMessage(ctx, account, message)
	if err != nil {
		return domain.TransactionRecord{}, err
	}

	return s.ledger.Append(ctx, account, domain.TransactionInput{
		Hash:    signature,
		Type:    domain.TransactionSign,
		Details: fmt.Sprintf("Signed message: %s...", prefix(message, 20)),
	})
}

// Tip sends TipAmount to the note's owner and counts the tip.
func (s *WalletService) Tip(ctx context.Context, account, noteID string) (*TipResult, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}

	note, err := s.notes.Get(ctx, noteID, account)
	if err != nil {
		return nil, err
	}
	if !note.IsPublic {
		return nil, domainerrors.NotFoundf("note %s not found", noteID)
	}
	if note.OwnedBy(account) {
		return nil, domainerrors.Validation("cannot tip your own note")
	}

	value, err := wallet.ParseEther(TipAmount)
	if err != nil {
		return nil, domainerrors.Internal("invalid tip amount").WithCause(err)
	}

	hash, err := s.provider.SendTransaction(ctx, account, note.Owner, value)
	if err != nil {
		return nil, err
	}

	tipped, err := s.notes.IncrementTip(ctx, noteID)
	if err != nil {
		return nil, err
	}

	rec, err := s.ledger.Append(ctx, account, domain.TransactionInput{
		Hash:    hash,
		Type:    domain.TransactionSend,
		Details: fmt.Sprintf("Sent %s ETH tip for note: %s", TipAmount, note.Title),
		NoteID:  note.ID,
		Title:   note.Title,
		Author:  note.DisplayAuthor(),
		Amount:  TipAmount,
	})
	if err != nil {
		return nil, err
	}

	return &TipResult{Note: tipped, Transaction: rec}, nil
}

// Purchase pays the note's price to its owner and unlocks it for account.
func (s *WalletService) Purchase(ctx context.Context, account, noteID string) (*PurchaseResult, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}

	p, err := s.notes.PurchaseWith(ctx, noteID, account, func(ctx context.Context, source domain.Note) (string, error) {
		return s.pay(ctx, account, source)
	})
	if err != nil {
		return nil, err
	}

	rec, err := s.recordPurchase(ctx, account, p.Source, p.Reference)
	if err != nil {
		return nil, err
	}

	return &PurchaseResult{Source: p.Source, Copy: p.Copy, Transaction: rec}, nil
}

// PurchaseAll purchases every note account can currently buy. Individual
// failures do not stop the remaining purchases.
func (s *WalletService) PurchaseAll(ctx context.Context, account string) (*PurchaseAllResult, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}

	candidates, err := s.notes.Candidates(ctx, account)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(candidates))
	for i, n := range candidates {
		ids[i] = n.ID
	}

	bulk := s.notes.BulkPurchase(ctx, ids, account, func(ctx context.Context, source domain.Note) (string, error) {
		return s.pay(ctx, account, source)
	})

	result := &PurchaseAllResult{
		Succeeded: make([]PurchaseResult, 0, len(bulk.Succeeded)),
		Failed:    bulk.Failed,
		Attempted: bulk.Attempted,
	}

	total := new(big.Int)
	for _, p := range bulk.Succeeded {
		rec, err := s.recordPurchase(ctx, account, p.Source, p.Reference)
		if err != nil {
			s.logger.Error("failed to record purchase",
				slog.String("note_id", p.Source.ID),
				slog.String("hash", p.Reference),
				slog.String("error", err.Error()))
		}
		if price, err := wallet.ParseEther(p.Source.PublicPrice); err == nil {
			total.Add(total, price)
		}
		result.Succeeded = append(result.Succeeded, PurchaseResult{Source: p.Source, Copy: p.Copy, Transaction: rec})
	}
	result.TotalCost = wallet.FormatEther(total)

	s.logger.Info("purchase all finished",
		slog.String("account", account),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("attempted", result.Attempted),
		slog.String("total_eth", result.TotalCost))
	return result, nil
}

// pay sends the note's price to its owner.
func (s *WalletService) pay(ctx context.Context, account string, source domain.Note) (string, error) {
	price, err := parseAmount(source.PublicPrice)
	if err != nil {
		return "", err
	}
	return s.provider.SendTransaction(ctx, account, source.Owner, price)
}

func (s *WalletService) recordPurchase(ctx context.Context, account string, source domain.Note, hash string) (domain.TransactionRecord, error) {
	return s.ledger.Append(ctx, account, domain.TransactionInput{
		Hash:    hash,
		Type:    domain.TransactionSend,
		Details: fmt.Sprintf("Purchased note: %s for %s ETH", source.Title, source.PublicPrice),
		NoteID:  source.ID,
		Title:   source.Title,
		Author:  source.DisplayAuthor(),
		Amount:  source.PublicPrice,
	})
}

// requireAccount rejects actions without a connected wallet account.
func requireAccount(account string) error {
	if !common.IsHexAddress(account) {
		return domainerrors.Validation("connect a wallet account first")
	}
	return nil
}

func parseAmount(amountETH string) (*big.Int, error) {
	value, err := wallet.ParseEther(amountETH)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}
	if value.Sign() == 0 {
		return nil, domainerrors.Validation("amount must be positive")
	}
	return value, nil
}

// prefix returns the first n runes of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
