package loan

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/sirupsen/logrus"

	domainLoan "frendlend-backend/internal/domain/loan"
	domainOffer "frendlend-backend/internal/domain/offer"
	"frendlend-backend/internal/domain/uow"
	"frendlend-backend/internal/interest"
	"frendlend-backend/internal/notify"
	"frendlend-backend/pkg/id"
	"frendlend-backend/pkg/money"
)

const bpsDenominator = 10_000

// Params carries the processor's wiring that is fixed at startup.
type Params struct {
	// ServiceID is the identity this service spends token allowances under.
	ServiceID string
	// FeeAccount is the custody account protocol fees accumulate in until
	// the admin withdraws them.
	FeeAccount string
	// ImpairmentGracePeriod is how long past due a loan must be before the
	// creditor may impair it.
	ImpairmentGracePeriod time.Duration
	// AcceptanceFee is a fixed fee the acceptor attaches, zero to disable.
	AcceptanceFee *big.Int
}

type Usecase struct {
	uow     uow.UnitOfWork
	params  Params
	sinkFor notify.Factory
	log     *logrus.Logger
	now     func() time.Time
}

func NewUsecase(tx uow.UnitOfWork, params Params, sinkFor notify.Factory, log *logrus.Logger) *Usecase {
	if params.AcceptanceFee == nil {
		params.AcceptanceFee = big.NewInt(0)
	}
	return &Usecase{uow: tx, params: params, sinkFor: sinkFor, log: log, now: time.Now}
}

// WithClock overrides the time source. Test hook.
func (u *Usecase) WithClock(now func() time.Time) *Usecase {
	u.now = now
	return u
}

// Accept turns an open offer into a loan: it snapshots the current protocol
// fee rate, mints the backing claim, moves the principal from the creditor,
// and fires the offer's callback. Everything happens in one transaction; a
// failing callback unwinds the acceptance.
func (u *Usecase) Accept(ctx context.Context, actor string, in AcceptInput) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := u.AcceptInTx(ctx, r, actor, in)
		if err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{
		"loan_id":  dto.LoanID,
		"offer_id": dto.OfferID,
		"due_by":   dto.DueBy,
	}).Info("loan accepted")
	return dto, nil
}

// AcceptInTx is the transactional core of Accept for reuse under a
// caller-owned transaction (batches).
func (u *Usecase) AcceptInTx(ctx context.Context, r uow.Repos, actor string, in AcceptInput) (*domainLoan.Loan, error) {
	o, err := r.Offers.GetByOfferIDForUpdate(ctx, in.OfferID)
	if err != nil {
		return nil, err
	}
	if o.Status != domainOffer.StatusOffered {
		return nil, domainOffer.ErrNotOffered
	}
	if actor != o.Counterparty() {
		return nil, domainOffer.ErrWrongSide
	}
	if u.params.AcceptanceFee.Sign() > 0 && in.Fee.Big().Cmp(u.params.AcceptanceFee) != 0 {
		return nil, domainLoan.ErrIncorrectFee
	}

	setting, err := r.Fees.GetSetting(ctx)
	if err != nil {
		return nil, err
	}

	now := u.now().UTC()
	principal := o.Principal.Big()

	claimRef, err := r.Ledger.CreateDebtRecord(ctx, o.Creditor, o.Debtor, principal, o.Token, o.MetadataURI)
	if err != nil {
		return nil, err
	}

	receiver := in.Receiver
	if receiver == "" {
		receiver = o.Debtor
	}
	if err := r.Tokens.TransferFrom(ctx, o.Token, o.Creditor, u.params.ServiceID, receiver, principal); err != nil {
		return nil, err
	}
	if u.params.AcceptanceFee.Sign() > 0 {
		if err := r.Tokens.TransferFrom(ctx, o.Token, actor, u.params.ServiceID, u.params.FeeAccount, u.params.AcceptanceFee); err != nil {
			return nil, err
		}
		if err := r.Fees.Add(ctx, o.Token, u.params.AcceptanceFee); err != nil {
			return nil, err
		}
	}

	l := &domainLoan.Loan{
		LoanID:                 id.NewID32(),
		OfferID:                o.OfferID,
		ClaimRef:               claimRef,
		Creditor:               o.Creditor,
		Debtor:                 o.Debtor,
		Token:                  o.Token,
		ClaimAmount:            o.Principal,
		PaidAmount:             money.Zero(),
		Status:                 domainLoan.StatusPending,
		AcceptedAt:             now,
		DueBy:                  now.Add(o.TermLength()),
		InterestRateBps:        o.InterestRateBps,
		PeriodsPerYear:         o.PeriodsPerYear,
		AccruedInterest:        money.Zero(),
		LatestPeriodNumber:     0,
		ProtocolFeeBps:         setting.FeeBps, // snapshot, later admin edits do not apply
		TotalGrossInterestPaid: money.Zero(),
		StateUpdatedAt:         now,
	}
	if err := r.Loans.Create(ctx, l); err != nil {
		return nil, err
	}

	o.Status = domainOffer.StatusAccepted
	o.StateUpdatedAt = now
	if err := r.Offers.Save(ctx, o); err != nil {
		return nil, err
	}

	if o.CallbackURL != "" {
		ev := notify.Event{
			Kind:      "loan.accepted",
			OfferID:   o.OfferID,
			LoanID:    l.LoanID,
			ClaimRef:  claimRef,
			Creditor:  o.Creditor,
			Debtor:    o.Debtor,
			Token:     o.Token,
			Principal: o.Principal.String(),
			DueBy:     l.DueBy,
		}
		if err := u.sinkFor(o.CallbackURL, o.CallbackSecret).Notify(ctx, ev); err != nil {
			return nil, fmt.Errorf("acceptance callback: %w", err)
		}
	}
	return l, nil
}

// BatchAccept accepts several offers in sequence. Atomic mode runs the whole
// batch in one transaction and the first failure unwinds everything;
// best-effort mode commits each item independently and records failures.
func (u *Usecase) BatchAccept(ctx context.Context, actor string, items []AcceptInput, atomic bool) ([]BatchAcceptResult, error) {
	out := make([]BatchAcceptResult, 0, len(items))
	if atomic {
		err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
			for _, in := range items {
				l, err := u.AcceptInTx(ctx, r, actor, in)
				if err != nil {
					return fmt.Errorf("offer %s: %w", in.OfferID, err)
				}
				out = append(out, BatchAcceptResult{OfferID: in.OfferID, Loan: toDTO(l)})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	for _, in := range items {
		dto, err := u.Accept(ctx, actor, in)
		if err != nil {
			out = append(out, BatchAcceptResult{OfferID: in.OfferID, Error: err.Error()})
			continue
		}
		out = append(out, BatchAcceptResult{OfferID: in.OfferID, Loan: dto})
	}
	return out, nil
}

// Pay services a loan. The payment is allocated to accrued interest first,
// then principal; the payer is only ever debited what is actually owed, so
// overpayment needs no refund transfer. Impairment does not block payment.
func (u *Usecase) Pay(ctx context.Context, payer, loanID string, amount money.Amount) (*PaymentDTO, error) {
	var dto *PaymentDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		var err error
		dto, err = u.PayInTx(ctx, r, l, payer, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{
		"loan_id":   loanID,
		"payer":     payer,
		"interest":  dto.InterestPaid.String(),
		"principal": dto.PrincipalPaid.String(),
		"status":    dto.Status,
	}).Info("loan payment applied")
	return dto, nil
}

// PayInTx is the transactional core of Pay.
func (u *Usecase) PayInTx(ctx context.Context, r uow.Repos, l *domainLoan.Loan, payer string, amount money.Amount) (*PaymentDTO, error) {
	if amount.Sign() <= 0 {
		return nil, domainLoan.ErrZeroPayment
	}
	if l.Status.Terminal() {
		return nil, domainLoan.ErrNothingDue
	}

	now := u.now().UTC()
	remaining := l.RemainingPrincipal()
	state := interest.Accrue(remaining, l.DueBy, now, l.InterestConfig(), l.InterestState())

	// interest first, then principal, both capped at what is owed
	pay := amount.Big()
	interestPaid := new(big.Int).Set(pay)
	if interestPaid.Cmp(state.Accrued) > 0 {
		interestPaid.Set(state.Accrued)
	}
	principalPaid := new(big.Int).Sub(pay, interestPaid)
	if principalPaid.Cmp(remaining) > 0 {
		principalPaid.Set(remaining)
	}
	totalDebit := new(big.Int).Add(interestPaid, principalPaid)
	if totalDebit.Sign() == 0 {
		return nil, domainLoan.ErrNothingDue
	}
	refunded := new(big.Int).Sub(pay, totalDebit)

	state.Accrued = new(big.Int).Sub(state.Accrued, interestPaid)
	state.TotalGrossInterestPaid = new(big.Int).Add(state.TotalGrossInterestPaid, interestPaid)
	l.SetInterestState(state)
	l.PaidAmount = money.FromBig(new(big.Int).Add(l.PaidAmount.Big(), principalPaid))

	// fee split on the interest portion, at the rate snapshotted on accept
	protocolFee := new(big.Int).Mul(interestPaid, new(big.Int).SetUint64(l.ProtocolFeeBps))
	protocolFee.Quo(protocolFee, big.NewInt(bpsDenominator))
	creditorShare := new(big.Int).Sub(totalDebit, protocolFee)

	if creditorShare.Sign() > 0 {
		if err := r.Tokens.TransferFrom(ctx, l.Token, payer, u.params.ServiceID, l.Creditor, creditorShare); err != nil {
			return nil, err
		}
	}
	if protocolFee.Sign() > 0 {
		if err := r.Tokens.TransferFrom(ctx, l.Token, payer, u.params.ServiceID, u.params.FeeAccount, protocolFee); err != nil {
			return nil, err
		}
		if err := r.Fees.Add(ctx, l.Token, protocolFee); err != nil {
			return nil, err
		}
	}
	if err := r.Ledger.RecordPayment(ctx, l.ClaimRef, totalDebit); err != nil {
		return nil, err
	}

	if l.PaidAmount.Cmp(l.ClaimAmount) == 0 {
		l.Status = domainLoan.StatusPaid
		if err := r.Ledger.TransitionToPaid(ctx, l.ClaimRef); err != nil {
			return nil, err
		}
	} else if l.PaidAmount.Sign() > 0 {
		l.Status = domainLoan.StatusRepaying
	}
	l.StateUpdatedAt = now
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}

	return &PaymentDTO{
		LoanID:        l.LoanID,
		InterestPaid:  money.FromBig(interestPaid),
		PrincipalPaid: money.FromBig(principalPaid),
		ProtocolFee:   money.FromBig(protocolFee),
		Refunded:      money.FromBig(refunded),
		Status:        string(l.Status),
	}, nil
}

// Impair lets the creditor flag a delinquent loan once the grace period past
// the due date has elapsed. Impairment is a classification: accrual keeps
// running and payment stays open.
func (u *Usecase) Impair(ctx context.Context, actor, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		updated, err := u.ImpairInTx(ctx, r, l, actor)
		if err != nil {
			return err
		}
		dto = toDTO(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"loan_id": loanID, "creditor": actor}).Warn("loan impaired")
	return dto, nil
}

// ImpairInTx is the transactional core of Impair.
func (u *Usecase) ImpairInTx(ctx context.Context, r uow.Repos, l *domainLoan.Loan, actor string) (*domainLoan.Loan, error) {
	if actor != l.Creditor {
		return nil, domainLoan.ErrNotCreditor
	}
	if l.Status != domainLoan.StatusPending && l.Status != domainLoan.StatusRepaying {
		return nil, domainLoan.ErrClaimNotPending
	}
	now := u.now().UTC()
	if !now.After(l.DueBy.Add(u.params.ImpairmentGracePeriod)) {
		return nil, domainLoan.ErrGraceNotElapsed
	}
	if err := r.Ledger.TransitionToImpaired(ctx, l.ClaimRef); err != nil {
		return nil, err
	}
	l.Status = domainLoan.StatusImpaired
	l.StateUpdatedAt = now
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// MarkPaid is the creditor's administrative write-off: the loan goes terminal
// without any token movement, even when the principal was never fully repaid.
func (u *Usecase) MarkPaid(ctx context.Context, actor, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domainLoan.Loan) error {
		updated, err := u.MarkPaidInTx(ctx, r, l, actor)
		if err != nil {
			return err
		}
		dto = toDTO(updated)
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.WithFields(logrus.Fields{"loan_id": loanID, "creditor": actor}).Info("loan marked paid")
	return dto, nil
}

// MarkPaidInTx is the transactional core of MarkPaid.
func (u *Usecase) MarkPaidInTx(ctx context.Context, r uow.Repos, l *domainLoan.Loan, actor string) (*domainLoan.Loan, error) {
	if actor != l.Creditor {
		return nil, domainLoan.ErrNotCreditor
	}
	if l.Status.Terminal() {
		return nil, domainLoan.ErrNothingDue
	}
	if err := r.Ledger.TransitionToPaid(ctx, l.ClaimRef); err != nil {
		return nil, err
	}
	l.Status = domainLoan.StatusPaid
	l.StateUpdatedAt = u.now().UTC()
	if err := r.Loans.Save(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	var dto *LoanDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		dto = toDTO(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// TotalDue refreshes interest against a scratch copy of the accrual state and
// reports the outstanding components. Stored state is never touched.
func (u *Usecase) TotalDue(ctx context.Context, loanID string) (*AmountDueDTO, error) {
	var dto *AmountDueDTO
	err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		remaining := l.RemainingPrincipal()
		scratch := interest.Accrue(remaining, l.DueBy, u.now().UTC(), l.InterestConfig(), l.InterestState())
		dto = &AmountDueDTO{
			LoanID:             l.LoanID,
			RemainingPrincipal: money.FromBig(remaining),
			CurrentInterest:    money.FromBig(scratch.Accrued),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func toDTO(l *domainLoan.Loan) *LoanDTO {
	return &LoanDTO{
		LoanID:                 l.LoanID,
		OfferID:                l.OfferID,
		ClaimRef:               l.ClaimRef,
		Creditor:               l.Creditor,
		Debtor:                 l.Debtor,
		Token:                  l.Token,
		ClaimAmount:            l.ClaimAmount,
		PaidAmount:             l.PaidAmount,
		Status:                 string(l.Status),
		AcceptedAt:             l.AcceptedAt,
		DueBy:                  l.DueBy,
		InterestRateBps:        l.InterestRateBps,
		PeriodsPerYear:         l.PeriodsPerYear,
		AccruedInterest:        l.AccruedInterest,
		LatestPeriodNumber:     l.LatestPeriodNumber,
		ProtocolFeeBps:         l.ProtocolFeeBps,
		TotalGrossInterestPaid: l.TotalGrossInterestPaid,
	}
}
