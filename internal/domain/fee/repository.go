package fee

import (
	"context"
	"math/big"
)

type Repository interface {
	// GetSetting returns the current protocol fee row, creating the default
	// when none exists yet.
	GetSetting(ctx context.Context) (*Setting, error)
	SaveSetting(ctx context.Context, s *Setting) error

	// Add credits amount to the token's accumulator, creating the row on
	// first use. Zero amounts are a no-op.
	Add(ctx context.Context, token string, amount *big.Int) error
	// ListForUpdate returns all balances ordered by token with their rows
	// locked for the enclosing transaction.
	ListForUpdate(ctx context.Context) ([]Balance, error)
	Save(ctx context.Context, b *Balance) error
}
