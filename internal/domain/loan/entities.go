package loan

import (
	"errors"
	"math/big"
	"time"

	"gorm.io/gorm"

	"frendlend-backend/internal/interest"
	"frendlend-backend/pkg/money"
)

var (
	ErrNotFound        = errors.New("loan not found")
	ErrClaimNotPending = errors.New("loan is not pending or repaying")
	ErrGraceNotElapsed = errors.New("impairment grace period has not elapsed")
	ErrNotCreditor     = errors.New("caller is not the creditor of record")
	ErrZeroPayment     = errors.New("payment amount must be positive")
	ErrNothingDue      = errors.New("loan has no remaining obligation")
	ErrIncorrectFee    = errors.New("incorrect acceptance fee attached")
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRepaying Status = "repaying"
	StatusPaid     Status = "paid"
	StatusImpaired Status = "impaired"
)

// Terminal reports whether no further status transition is allowed.
func (s Status) Terminal() bool { return s == StatusPaid }

// Loan augments an external debt claim with interest accrual bookkeeping.
// One row per accepted offer; rows are never deleted, the status goes
// terminal instead.
type Loan struct {
	ID       uint64 `gorm:"primaryKey;column:id" json:"-"`
	LoanID   string `gorm:"size:32;uniqueIndex:ux_loans_loan_id_active" json:"loan_id"`
	OfferID  string `gorm:"size:32;index" json:"offer_id"`
	ClaimRef string `gorm:"size:32;uniqueIndex:ux_loans_claim_ref_active" json:"claim_ref"`

	Creditor string `gorm:"size:32;index:idx_loans_creditor_active" json:"creditor"`
	Debtor   string `gorm:"size:32;index:idx_loans_debtor_active" json:"debtor"`
	Token    string `gorm:"size:64" json:"token"`

	ClaimAmount money.Amount `gorm:"type:decimal(65,0)" json:"claim_amount"`
	PaidAmount  money.Amount `gorm:"type:decimal(65,0)" json:"paid_amount"`
	Status      Status       `gorm:"type:enum('pending','repaying','paid','impaired');default:'pending'" json:"status"`

	AcceptedAt time.Time `gorm:"column:accepted_at" json:"accepted_at"`
	DueBy      time.Time `gorm:"column:due_by" json:"due_by"`

	// Interest configuration, immutable after acceptance.
	InterestRateBps uint64 `gorm:"column:interest_rate_bps" json:"interest_rate_bps"`
	PeriodsPerYear  uint64 `gorm:"column:periods_per_year" json:"periods_per_year"`

	// Accrual state, refreshed on every payment or due-amount query.
	AccruedInterest        money.Amount `gorm:"type:decimal(65,0)" json:"accrued_interest"`
	LatestPeriodNumber     uint64       `gorm:"column:latest_period_number" json:"latest_period_number"`
	ProtocolFeeBps         uint64       `gorm:"column:protocol_fee_bps" json:"protocol_fee_bps"`
	TotalGrossInterestPaid money.Amount `gorm:"type:decimal(65,0)" json:"total_gross_interest_paid"`

	StateUpdatedAt time.Time      `gorm:"autoCreateTime" json:"state_updated_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Loan) TableName() string { return "loans" }

// RemainingPrincipal is claimAmount - paidAmount, never negative.
func (l *Loan) RemainingPrincipal() *big.Int {
	rem := new(big.Int).Sub(l.ClaimAmount.Big(), l.PaidAmount.Big())
	if rem.Sign() < 0 {
		return big.NewInt(0)
	}
	return rem
}

func (l *Loan) InterestConfig() interest.Config {
	return interest.Config{RateBps: l.InterestRateBps, PeriodsPerYear: l.PeriodsPerYear}
}

func (l *Loan) InterestState() interest.State {
	return interest.State{
		Accrued:                l.AccruedInterest.Big(),
		LatestPeriodNumber:     l.LatestPeriodNumber,
		ProtocolFeeBps:         l.ProtocolFeeBps,
		TotalGrossInterestPaid: l.TotalGrossInterestPaid.Big(),
	}
}

func (l *Loan) SetInterestState(s interest.State) {
	l.AccruedInterest = money.FromBig(s.Accrued)
	l.LatestPeriodNumber = s.LatestPeriodNumber
	l.ProtocolFeeBps = s.ProtocolFeeBps
	l.TotalGrossInterestPaid = money.FromBig(s.TotalGrossInterestPaid)
}
