package ledger

import (
	"context"

	"github.com/often-run/gateway/internal/apierr"
	"github.com/often-run/gateway/internal/ledgerstore"
	"github.com/shopspring/decimal"
)

// ConvertResult is what the HTTP handler needs to report a conversion
// (spec §6): the converted amount and the account's balances afterward.
type ConvertResult struct {
	Converted int64
	Balances  map[ledgerstore.Currency]int64
}

// Convert implements C8: an oracle-priced cross-currency atomic move using
// overflow-safe decimal arithmetic, never floating point in the critical
// path (spec §4.8, §9).
func (e *Engine) Convert(ctx context.Context, accountID string, from, to ledgerstore.Currency, amount int64) (*ConvertResult, error) {
	if from == to {
		return nil, apierr.Validationf("from and to currencies must differ")
	}
	if !ledgerstore.IsSupported(from) || !ledgerstore.IsSupported(to) {
		return nil, apierr.Validationf("unsupported currency")
	}
	if amount <= 0 {
		return nil, apierr.Validationf("amount must be positive")
	}

	// Rate fetch happens outside the store transaction to avoid holding a
	// write lock across a network call (spec §4.8). The quote is frozen for
	// this request.
	rateFrom, err := e.Rates.USDPrice(ctx, string(from))
	if err != nil {
		return nil, err
	}
	rateTo, err := e.Rates.USDPrice(ctx, string(to))
	if err != nil {
		return nil, err
	}

	uFrom, _ := ledgerstore.SmallestUnitPerWhole(from)
	uTo, _ := ledgerstore.SmallestUnitPerWhole(to)

	converted, rateUsed := convertAmount(amount, rateFrom, rateTo, uFrom, uTo)
	if converted <= 0 {
		return nil, apierr.Validationf("amount too small to convert")
	}

	if _, err := e.Store.GetAccount(ctx, accountID); err != nil {
		if err == ledgerstore.ErrAccountNotFound {
			return nil, apierr.NotFound("account not found")
		}
		return nil, apierr.Internalf("read account: " + err.Error())
	}

	balances, err := e.Store.Convert(ctx, accountID, from, to, amount, converted, rateUsed)
	if err == ledgerstore.ErrInsufficientFunds {
		return nil, apierr.InsufficientFundsf("insufficient balance for conversion")
	}
	if err != nil {
		return nil, apierr.Internalf("convert: " + err.Error())
	}

	return &ConvertResult{Converted: converted, Balances: balances}, nil
}

// convertAmount computes spec §4.8's
//
//	converted = (amount · from_cents · u_to) / (u_from · to_cents)   [integer division]
//
// keeping prices in hundredths and carrying the unit-scale conversion in the
// same expression. All multiplication happens in shopspring/decimal's
// arbitrary-precision representation, avoiding the overflow a 64-bit
// product of amount·rate·unit-factor could hit.
func convertAmount(amount int64, rateFrom, rateTo float64, uFrom, uTo int64) (converted int64, rateUsed float64) {
	fromCents := decimal.NewFromFloat(rateFrom).Mul(decimal.NewFromInt(100)).Round(0)
	toCents := decimal.NewFromFloat(rateTo).Mul(decimal.NewFromInt(100)).Round(0)

	numerator := decimal.NewFromInt(amount).Mul(fromCents).Mul(decimal.NewFromInt(uTo))
	denominator := decimal.NewFromInt(uFrom).Mul(toCents)

	if denominator.IsZero() {
		return 0, 0
	}

	quotient, _ := numerator.QuoRem(denominator, 0)
	return quotient.IntPart(), rateFrom / rateTo
}
