package api

import (
	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/sse"
)

// AccountHeader carries the connected Sub Account address. It identifies the
// caller; it does not authenticate them.
const AccountHeader = sse.AccountHeader

// account normalizes the X-Account header value; a missing header is the
// anonymous account.
func account(header string) string {
	return domain.NormalizeAccount(header)
}
