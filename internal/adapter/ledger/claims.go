package ledgerdb

import (
	"context"
	"errors"
	"math/big"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"frendlend-backend/internal/domain/ledger"
	"frendlend-backend/pkg/id"
	"frendlend-backend/pkg/money"
)

// Ledger implements ledger.Ledger on a gorm handle. serviceID is the identity
// the lending service acts under; permits must name it as grantee.
type Ledger struct {
	db        *gorm.DB
	serviceID string
}

func NewLedger(db *gorm.DB, serviceID string) *Ledger {
	return &Ledger{db: db, serviceID: serviceID}
}

func (l *Ledger) CreateDebtRecord(ctx context.Context, creditor, debtor string, amount *big.Int, token, metadata string) (string, error) {
	if err := l.consumePermit(ctx, debtor, ledger.PermitCreateClaim); err != nil {
		return "", err
	}
	row := &claimRow{
		ClaimRef:    id.NewID32(),
		Creditor:    creditor,
		Debtor:      debtor,
		Token:       token,
		ClaimAmount: money.FromBig(amount),
		PaidAmount:  money.Zero(),
		Status:      string(ledger.ClaimPending),
		Metadata:    metadata,
	}
	if err := l.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", err
	}
	return row.ClaimRef, nil
}

func (l *Ledger) GetDebtRecord(ctx context.Context, claimRef string) (*ledger.DebtRecord, error) {
	row, err := l.getClaim(ctx, claimRef, false)
	if err != nil {
		return nil, err
	}
	return row.record(), nil
}

func (l *Ledger) RecordPayment(ctx context.Context, claimRef string, amount *big.Int) error {
	row, err := l.getClaim(ctx, claimRef, true)
	if err != nil {
		return err
	}
	if err := l.consumePermit(ctx, row.Debtor, ledger.PermitRecordPayment); err != nil {
		return err
	}
	row.PaidAmount = money.FromBig(new(big.Int).Add(row.PaidAmount.Big(), amount))
	if row.Status == string(ledger.ClaimPending) {
		row.Status = string(ledger.ClaimRepaying)
	}
	return l.db.WithContext(ctx).Save(row).Error
}

func (l *Ledger) TransitionToPaid(ctx context.Context, claimRef string) error {
	return l.transition(ctx, claimRef, ledger.ClaimPaid)
}

func (l *Ledger) TransitionToImpaired(ctx context.Context, claimRef string) error {
	return l.transition(ctx, claimRef, ledger.ClaimImpaired)
}

func (l *Ledger) transition(ctx context.Context, claimRef string, to ledger.ClaimStatus) error {
	row, err := l.getClaim(ctx, claimRef, true)
	if err != nil {
		return err
	}
	if err := l.consumePermit(ctx, row.Creditor, ledger.PermitTransition); err != nil {
		return err
	}
	row.Status = string(to)
	return l.db.WithContext(ctx).Save(row).Error
}

func (l *Ledger) GrantPermit(ctx context.Context, p ledger.Permit) error {
	row := &permitRow{
		Grantor:       p.Grantor,
		Grantee:       p.Grantee,
		Action:        string(p.Action),
		RemainingUses: p.RemainingUses,
		ExpiresAt:     p.ExpiresAt,
	}
	return l.db.WithContext(ctx).Create(row).Error
}

func (l *Ledger) getClaim(ctx context.Context, claimRef string, forUpdate bool) (*claimRow, error) {
	var row claimRow
	q := l.db.WithContext(ctx)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	res := q.Where("claim_ref = ?", claimRef).First(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, ledger.ErrClaimNotFound
	}
	return &row, res.Error
}

// consumePermit finds a live capability from grantor to the service for the
// action and decrements its use counter. Exhausted permits stay in place for
// audit; they simply stop matching.
func (l *Ledger) consumePermit(ctx context.Context, grantor string, action ledger.PermitAction) error {
	var row permitRow
	res := l.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("grantor = ? AND grantee = ? AND action = ? AND remaining_uses > 0 AND expires_at > ?",
			grantor, l.serviceID, string(action), time.Now().UTC()).
		Order("expires_at ASC").
		First(&row)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return ledger.ErrPermitRequired
	}
	if res.Error != nil {
		return res.Error
	}
	row.RemainingUses--
	return l.db.WithContext(ctx).Save(&row).Error
}
