package ledger

import (
	"context"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/ledgerstore"
)

// TransferResult carries the sender's post-transfer balance, which is all
// the HTTP response (spec §6) needs to report back.
type TransferResult struct {
	Currency       ledgerstore.Currency
	SenderBalance  int64
}

// Transfer implements C7: a two-account atomic move with paired journal
// entries.
func (e *Engine) Transfer(ctx context.Context, senderID, recipientID string, amount int64, currency ledgerstore.Currency, description string) (*TransferResult, error) {
	if amount <= 0 {
		return nil, apierr.Validationf("amount must be positive")
	}
	if !ledgerstore.IsSupported(currency) {
		return nil, apierr.Validationf("unsupported currency " + string(currency))
	}
	if recipientID == senderID {
		return nil, apierr.Validationf("cannot transfer to self")
	}

	if _, err := e.Store.GetAccount(ctx, senderID); err != nil {
		if err == ledgerstore.ErrAccountNotFound {
			return nil, apierr.New(apierr.SenderNotFound, "sender account not found")
		}
		return nil, apierr.Internalf("read sender: " + err.Error())
	}
	if _, err := e.Store.GetAccount(ctx, recipientID); err != nil {
		if err == ledgerstore.ErrAccountNotFound {
			return nil, apierr.New(apierr.RecipientNotFound, "recipient account not found")
		}
		return nil, apierr.Internalf("read recipient: " + err.Error())
	}

	senderBalance, _, err := e.Store.Transfer(ctx, senderID, recipientID, currency, amount, description)
	if err == ledgerstore.ErrInsufficientFunds {
		return nil, apierr.InsufficientFundsf("insufficient balance for transfer")
	}
	if err != nil {
		return nil, apierr.Internalf("transfer: " + err.Error())
	}

	return &TransferResult{Currency: currency, SenderBalance: senderBalance}, nil
}
