package mysql

import (
	"context"

	"gorm.io/gorm"

	ledgerdb "frendlend-backend/internal/adapter/ledger"
	"frendlend-backend/internal/domain/loan"
	"frendlend-backend/internal/domain/uow"
)

// GormUoW binds all repositories plus the ledger and token adapters to one
// gorm transaction. serviceID is the identity the service acts under when
// consuming ledger permits.
type GormUoW struct {
	db        *gorm.DB
	serviceID string
}

func NewGormUoW(db *gorm.DB, serviceID string) *GormUoW {
	return &GormUoW{db: db, serviceID: serviceID}
}

func (u *GormUoW) repos(tx *gorm.DB) uow.Repos {
	return uow.Repos{
		Loans:  &LoanRepository{db: tx},
		Offers: &OfferRepository{db: tx},
		Fees:   &FeeRepository{db: tx},
		Ledger: ledgerdb.NewLedger(tx, u.serviceID),
		Tokens: ledgerdb.NewTokens(tx),
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.repos(tx))
	})
}

func (u *GormUoW) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := u.repos(tx)
		// lock the loan row up-front to serialize per-loan operations
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}
