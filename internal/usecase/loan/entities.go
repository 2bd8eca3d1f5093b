package loan

import (
	"time"

	"frendlend-backend/pkg/money"
)

type AcceptInput struct {
	OfferID string `json:"offer_id"`
	// Receiver optionally redirects the principal away from the debtor.
	Receiver string `json:"receiver,omitempty"`
	// Fee must match the configured fixed acceptance fee when one is set.
	Fee money.Amount `json:"fee"`
}

type BatchAcceptResult struct {
	OfferID string   `json:"offer_id"`
	Loan    *LoanDTO `json:"loan,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type LoanDTO struct {
	LoanID                 string       `json:"loan_id"`
	OfferID                string       `json:"offer_id"`
	ClaimRef               string       `json:"claim_ref"`
	Creditor               string       `json:"creditor"`
	Debtor                 string       `json:"debtor"`
	Token                  string       `json:"token"`
	ClaimAmount            money.Amount `json:"claim_amount"`
	PaidAmount             money.Amount `json:"paid_amount"`
	Status                 string       `json:"status"`
	AcceptedAt             time.Time    `json:"accepted_at"`
	DueBy                  time.Time    `json:"due_by"`
	InterestRateBps        uint64       `json:"interest_rate_bps"`
	PeriodsPerYear         uint64       `json:"periods_per_year"`
	AccruedInterest        money.Amount `json:"accrued_interest"`
	LatestPeriodNumber     uint64       `json:"latest_period_number"`
	ProtocolFeeBps         uint64       `json:"protocol_fee_bps"`
	TotalGrossInterestPaid money.Amount `json:"total_gross_interest_paid"`
}

// PaymentDTO reports the exact split of one payment. The debit equals
// interest + principal; anything above stays with the payer.
type PaymentDTO struct {
	LoanID        string       `json:"loan_id"`
	InterestPaid  money.Amount `json:"interest_paid"`
	PrincipalPaid money.Amount `json:"principal_paid"`
	ProtocolFee   money.Amount `json:"protocol_fee"`
	Refunded      money.Amount `json:"refunded"`
	Status        string       `json:"status"`
}

// AmountDueDTO returns the two debt components separately so callers can pay
// interest-only or compute their own total.
type AmountDueDTO struct {
	LoanID             string       `json:"loan_id"`
	RemainingPrincipal money.Amount `json:"remaining_principal"`
	CurrentInterest    money.Amount `json:"current_interest"`
}
