package mysql

import (
	"context"
	"errors"
	"math/big"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	feeDomain "frendlend-backend/internal/domain/fee"
	"frendlend-backend/pkg/money"
)

type FeeRepository struct{ db *gorm.DB }

func NewFeeRepository(db *gorm.DB) *FeeRepository { return &FeeRepository{db: db} }

func (r *FeeRepository) GetSetting(ctx context.Context) (*feeDomain.Setting, error) {
	var out feeDomain.Setting
	res := r.db.WithContext(ctx).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return &feeDomain.Setting{}, nil
	}
	return &out, res.Error
}

func (r *FeeRepository) SaveSetting(ctx context.Context, s *feeDomain.Setting) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// Add locks (or creates) the token's row and credits the amount exactly.
func (r *FeeRepository) Add(ctx context.Context, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	var bal feeDomain.Balance
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&bal)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		bal = feeDomain.Balance{Token: token, Amount: money.FromBig(amount)}
		return r.db.WithContext(ctx).Create(&bal).Error
	}
	if res.Error != nil {
		return res.Error
	}
	bal.Amount = money.FromBig(new(big.Int).Add(bal.Amount.Big(), amount))
	return r.db.WithContext(ctx).Save(&bal).Error
}

func (r *FeeRepository) ListForUpdate(ctx context.Context) ([]feeDomain.Balance, error) {
	var out []feeDomain.Balance
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Order("token ASC").
		Find(&out)
	return out, res.Error
}

func (r *FeeRepository) Save(ctx context.Context, b *feeDomain.Balance) error {
	return r.db.WithContext(ctx).Save(b).Error
}
