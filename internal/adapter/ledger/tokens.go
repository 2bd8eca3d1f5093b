package ledgerdb

import (
	"context"
	"errors"
	"math/big"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"frendlend-backend/internal/domain/ledger"
	"frendlend-backend/pkg/money"
)

// Tokens implements ledger.TokenService as a simple double-entry token book.
type Tokens struct{ db *gorm.DB }

func NewTokens(db *gorm.DB) *Tokens { return &Tokens{db: db} }

func (t *Tokens) BalanceOf(ctx context.Context, token, account string) (*big.Int, error) {
	row, err := t.balance(ctx, token, account, false)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return big.NewInt(0), nil
	}
	return row.Amount.Big(), nil
}

func (t *Tokens) Transfer(ctx context.Context, token, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	src, err := t.balance(ctx, token, from, true)
	if err != nil {
		return err
	}
	if src == nil || src.Amount.Big().Cmp(amount) < 0 {
		return ledger.ErrInsufficientBalance
	}
	src.Amount = money.FromBig(new(big.Int).Sub(src.Amount.Big(), amount))
	if err := t.db.WithContext(ctx).Save(src).Error; err != nil {
		return err
	}
	return t.credit(ctx, token, to, amount)
}

func (t *Tokens) Approve(ctx context.Context, token, owner, spender string, amount *big.Int) error {
	return t.setAllowance(ctx, token, owner, spender, amount)
}

func (t *Tokens) Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error) {
	var row allowanceRow
	res := t.db.WithContext(ctx).
		Where("token = ? AND owner = ? AND spender = ?", token, owner, spender).
		First(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return row.Amount.Big(), nil
}

func (t *Tokens) TransferFrom(ctx context.Context, token, owner, spender, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	var row allowanceRow
	res := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ? AND owner = ? AND spender = ?", token, owner, spender).
		First(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return ledger.ErrInsufficientAllowance
	}
	if res.Error != nil {
		return res.Error
	}
	if row.Amount.Big().Cmp(amount) < 0 {
		return ledger.ErrInsufficientAllowance
	}
	row.Amount = money.FromBig(new(big.Int).Sub(row.Amount.Big(), amount))
	if err := t.db.WithContext(ctx).Save(&row).Error; err != nil {
		return err
	}
	return t.Transfer(ctx, token, owner, to, amount)
}

// Permit applies a pre-authorized approval. Signature verification happened
// upstream of this boundary; an expired deadline still rejects here.
func (t *Tokens) Permit(ctx context.Context, token, owner, spender string, amount *big.Int, deadline time.Time) error {
	if time.Now().UTC().After(deadline) {
		return ledger.ErrInsufficientAllowance
	}
	return t.setAllowance(ctx, token, owner, spender, amount)
}

// Mint credits fresh balance to an account. Test and bootstrap helper; real
// deployments feed balances from the chain-facing ingest instead.
func (t *Tokens) Mint(ctx context.Context, token, account string, amount *big.Int) error {
	return t.credit(ctx, token, account, amount)
}

func (t *Tokens) balance(ctx context.Context, token, account string, forUpdate bool) (*balanceRow, error) {
	var row balanceRow
	q := t.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	res := q.Where("token = ? AND account = ?", token, account).First(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &row, nil
}

func (t *Tokens) credit(ctx context.Context, token, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	row, err := t.balance(ctx, token, account, true)
	if err != nil {
		return err
	}
	if row == nil {
		row = &balanceRow{Token: token, Account: account, Amount: money.FromBig(amount)}
		return t.db.WithContext(ctx).Create(row).Error
	}
	row.Amount = money.FromBig(new(big.Int).Add(row.Amount.Big(), amount))
	return t.db.WithContext(ctx).Save(row).Error
}

func (t *Tokens) setAllowance(ctx context.Context, token, owner, spender string, amount *big.Int) error {
	var row allowanceRow
	res := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ? AND owner = ? AND spender = ?", token, owner, spender).
		First(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		row = allowanceRow{Token: token, Owner: owner, Spender: spender, Amount: money.FromBig(amount)}
		return t.db.WithContext(ctx).Create(&row).Error
	}
	if res.Error != nil {
		return res.Error
	}
	row.Amount = money.FromBig(amount)
	return t.db.WithContext(ctx).Save(&row).Error
}
