package fee

import (
	"errors"
	"time"

	"frendlend-backend/pkg/money"
)

var (
	ErrInvalidFeeBps = errors.New("protocol fee must be at most 10000 bps")
	ErrNotAdmin      = errors.New("caller is not the protocol admin")
)

// Setting is the single admin-owned protocol fee row. Loans copy FeeBps into
// their own state at acceptance, so edits here never touch running loans.
type Setting struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	FeeBps    uint64    `gorm:"column:fee_bps" json:"fee_bps"`
	UpdatedBy string    `gorm:"size:32" json:"updated_by"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Setting) TableName() string { return "protocol_fee_setting" }

// Balance accumulates the protocol's cut of interest payments for one token.
// Additions are exact big-integer sums; withdrawal drains the row to zero.
type Balance struct {
	ID        uint64       `gorm:"primaryKey;column:id" json:"-"`
	Token     string       `gorm:"size:64;uniqueIndex:ux_fee_balances_token" json:"token"`
	Amount    money.Amount `gorm:"type:decimal(65,0)" json:"amount"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Balance) TableName() string { return "protocol_fee_balances" }
