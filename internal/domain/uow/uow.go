package uow

import (
	"context"

	"frendlend-backend/internal/domain/fee"
	"frendlend-backend/internal/domain/ledger"
	"frendlend-backend/internal/domain/loan"
	"frendlend-backend/internal/domain/offer"
)

// Repos bundles every store participating in a transaction. The ledger and
// token adapters are bound to the same tx so a failed lifecycle operation
// rolls back claim and custody writes along with the loan row.
type Repos struct {
	Loans  loan.Repository
	Offers offer.Repository
	Fees   fee.Repository
	Ledger ledger.Ledger
	Tokens ledger.TokenService
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the loan row first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}
