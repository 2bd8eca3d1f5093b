// Package ledgerdb is the gorm-backed reference implementation of the claims
// ledger and token custody boundary. It is wired into the same transaction as
// the loan repositories so lifecycle operations stay atomic end to end.
package ledgerdb

import (
	"time"

	"gorm.io/gorm"

	"frendlend-backend/internal/domain/ledger"
	"frendlend-backend/pkg/money"
)

type claimRow struct {
	ID       uint64 `gorm:"primaryKey;column:id"`
	ClaimRef string `gorm:"size:32;uniqueIndex:ux_claims_claim_ref"`

	Creditor string `gorm:"size:32;index"`
	Debtor   string `gorm:"size:32;index"`
	Token    string `gorm:"size:64"`

	ClaimAmount money.Amount `gorm:"type:decimal(65,0)"`
	PaidAmount  money.Amount `gorm:"type:decimal(65,0)"`
	Status      string       `gorm:"size:16;default:'pending'"`
	Metadata    string       `gorm:"type:text"`

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (claimRow) TableName() string { return "claims" }

func (c *claimRow) record() *ledger.DebtRecord {
	return &ledger.DebtRecord{
		ClaimRef:    c.ClaimRef,
		Creditor:    c.Creditor,
		Debtor:      c.Debtor,
		Token:       c.Token,
		ClaimAmount: c.ClaimAmount,
		PaidAmount:  c.PaidAmount,
		Status:      ledger.ClaimStatus(c.Status),
	}
}

type permitRow struct {
	ID            uint64    `gorm:"primaryKey;column:id"`
	Grantor       string    `gorm:"size:32;index:idx_permits_lookup"`
	Grantee       string    `gorm:"size:32;index:idx_permits_lookup"`
	Action        string    `gorm:"size:32;index:idx_permits_lookup"`
	RemainingUses uint64    `gorm:"column:remaining_uses"`
	ExpiresAt     time.Time `gorm:"column:expires_at"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (permitRow) TableName() string { return "ledger_permits" }

type balanceRow struct {
	ID        uint64       `gorm:"primaryKey;column:id"`
	Token     string       `gorm:"size:64;uniqueIndex:ux_token_balances,priority:1"`
	Account   string       `gorm:"size:32;uniqueIndex:ux_token_balances,priority:2"`
	Amount    money.Amount `gorm:"type:decimal(65,0)"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}

func (balanceRow) TableName() string { return "token_balances" }

type allowanceRow struct {
	ID        uint64       `gorm:"primaryKey;column:id"`
	Token     string       `gorm:"size:64;uniqueIndex:ux_token_allowances,priority:1"`
	Owner     string       `gorm:"size:32;uniqueIndex:ux_token_allowances,priority:2"`
	Spender   string       `gorm:"size:32;uniqueIndex:ux_token_allowances,priority:3"`
	Amount    money.Amount `gorm:"type:decimal(65,0)"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}

func (allowanceRow) TableName() string { return "token_allowances" }

// Models lists the ledger-side tables for migrations and test setup.
func Models() []any {
	return []any{&claimRow{}, &permitRow{}, &balanceRow{}, &allowanceRow{}}
}
