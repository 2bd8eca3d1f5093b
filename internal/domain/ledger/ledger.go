// Package ledger defines the boundary to the external claims ledger and
// token custody layer. The lifecycle processor only issues these calls; it
// never re-implements claim storage, permit verification, or token transfer
// mechanics.
package ledger

import (
	"context"
	"errors"
	"math/big"
	"time"

	"frendlend-backend/pkg/money"
)

var (
	ErrClaimNotFound         = errors.New("ledger: claim not found")
	ErrPermitRequired        = errors.New("ledger: no valid permit for this action")
	ErrInsufficientBalance   = errors.New("ledger: insufficient token balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient token allowance")
)

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimRepaying ClaimStatus = "repaying"
	ClaimPaid     ClaimStatus = "paid"
	ClaimImpaired ClaimStatus = "impaired"
)

// DebtRecord is the ledger's view of a claim backing a loan.
type DebtRecord struct {
	ClaimRef    string       `json:"claim_ref"`
	Creditor    string       `json:"creditor"`
	Debtor      string       `json:"debtor"`
	Token       string       `json:"token"`
	ClaimAmount money.Amount `json:"claim_amount"`
	PaidAmount  money.Amount `json:"paid_amount"`
	Status      ClaimStatus  `json:"status"`
}

// PermitAction enumerates the delegated operations a permit can authorize.
type PermitAction string

const (
	PermitCreateClaim   PermitAction = "create_claim"
	PermitRecordPayment PermitAction = "record_payment"
	PermitTransition    PermitAction = "transition_status"
)

// Permit is a capability: grantor authorizes grantee to perform an action a
// limited number of times until expiry. The ledger verifies and decrements
// it; callers only assume one exists.
type Permit struct {
	Grantor       string
	Grantee       string
	Action        PermitAction
	RemainingUses uint64
	ExpiresAt     time.Time
}

// Ledger is the claims-ledger surface the lifecycle processor consumes.
type Ledger interface {
	// CreateDebtRecord mints the claim backing a loan. Requires a prior
	// create_claim permit from the debtor naming this service as grantee.
	CreateDebtRecord(ctx context.Context, creditor, debtor string, amount *big.Int, token, metadata string) (string, error)
	GetDebtRecord(ctx context.Context, claimRef string) (*DebtRecord, error)
	RecordPayment(ctx context.Context, claimRef string, amount *big.Int) error
	TransitionToPaid(ctx context.Context, claimRef string) error
	TransitionToImpaired(ctx context.Context, claimRef string) error
	// GrantPermit registers a capability ahead of the delegated calls above.
	GrantPermit(ctx context.Context, p Permit) error
}

// TokenService is the custody surface for moving principal and payments.
type TokenService interface {
	BalanceOf(ctx context.Context, token, account string) (*big.Int, error)
	Transfer(ctx context.Context, token, from, to string, amount *big.Int) error
	Approve(ctx context.Context, token, owner, spender string, amount *big.Int) error
	Allowance(ctx context.Context, token, owner, spender string) (*big.Int, error)
	// TransferFrom spends the spender's allowance on the owner's balance.
	TransferFrom(ctx context.Context, token, owner, spender, to string, amount *big.Int) error
	// Permit is the gasless-approval path: a pre-authorized approval the
	// owner signed off-channel, applied in place of an explicit Approve.
	Permit(ctx context.Context, token, owner, spender string, amount *big.Int, deadline time.Time) error
}
