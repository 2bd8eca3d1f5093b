package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the row for the duration of the enclosing
	// transaction; every mutating lifecycle operation goes through it.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	GetByClaimRef(ctx context.Context, claimRef string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
}
