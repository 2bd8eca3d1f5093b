package admin

import (
	"context"
	"math/big"

	"github.com/sirupsen/logrus"

	"frendlend-backend/internal/domain/fee"
	"frendlend-backend/internal/domain/uow"
	"frendlend-backend/pkg/money"
)

const maxFeeBps = 10_000

// Params names the protocol's administrative identities and accounts.
type Params struct {
	AdminID string
	// FeeAccount is where payments park the protocol's cut.
	FeeAccount string
	// Treasury receives fee withdrawals.
	Treasury string
}

type Usecase struct {
	uow    uow.UnitOfWork
	params Params
	log    *logrus.Logger
}

func NewUsecase(tx uow.UnitOfWork, params Params, log *logrus.Logger) *Usecase {
	return &Usecase{uow: tx, params: params, log: log}
}

// SetProtocolFee updates the global fee rate for loans accepted from now on.
// Running loans keep the rate they snapshotted at acceptance.
func (u *Usecase) SetProtocolFee(ctx context.Context, actor string, bps uint64) (*fee.Setting, error) {
	if actor != u.params.AdminID {
		return nil, fee.ErrNotAdmin
	}
	if bps > maxFeeBps {
		return nil, fee.ErrInvalidFeeBps
	}
	var out *fee.Setting
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		s, err := r.Fees.GetSetting(ctx)
		if err != nil {
			return err
		}
		s.FeeBps = bps
		s.UpdatedBy = actor
		if err := r.Fees.SaveSetting(ctx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"fee_bps": bps, "admin": actor}).Info("protocol fee updated")
	return out, nil
}

// WithdrawalDTO reports one token's drained amount.
type WithdrawalDTO struct {
	Token  string       `json:"token"`
	Amount money.Amount `json:"amount"`
}

// WithdrawAllFees drains every token's fee accumulator to the treasury in a
// single transaction. Each balance row is locked, transferred in full, and
// zeroed; tokens with nothing accrued are skipped.
func (u *Usecase) WithdrawAllFees(ctx context.Context, actor string) ([]WithdrawalDTO, error) {
	if actor != u.params.AdminID {
		return nil, fee.ErrNotAdmin
	}
	var out []WithdrawalDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		balances, err := r.Fees.ListForUpdate(ctx)
		if err != nil {
			return err
		}
		for i := range balances {
			b := &balances[i]
			amount := b.Amount.Big()
			if amount.Sign() == 0 {
				continue
			}
			if err := r.Tokens.Transfer(ctx, b.Token, u.params.FeeAccount, u.params.Treasury, amount); err != nil {
				return err
			}
			b.Amount = money.FromBig(big.NewInt(0))
			if err := r.Fees.Save(ctx, b); err != nil {
				return err
			}
			out = append(out, WithdrawalDTO{Token: b.Token, Amount: money.FromBig(amount)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, w := range out {
		u.log.WithFields(logrus.Fields{"token": w.Token, "amount": w.Amount.String()}).Info("protocol fees withdrawn")
	}
	return out, nil
}
