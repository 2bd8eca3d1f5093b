// Package batch groups several loan operations into one call. Sub-operations
// run strictly in sequence; the caller picks all-or-nothing or best-effort
// semantics for the batch as a whole, while each sub-operation stays atomic
// on its own either way.
package batch

import (
	"context"
	"errors"
	"fmt"

	domainLoan "frendlend-backend/internal/domain/loan"
	"frendlend-backend/internal/domain/uow"
	loanuc "frendlend-backend/internal/usecase/loan"
	offeruc "frendlend-backend/internal/usecase/offer"
	"frendlend-backend/pkg/money"
)

var ErrUnknownOp = errors.New("batch: unknown operation")

type Op string

const (
	OpPay      Op = "pay"
	OpImpair   Op = "impair"
	OpMarkPaid Op = "mark_paid"
	OpAccept   Op = "accept"
	OpReject   Op = "reject"
)

// Item is one sub-operation. LoanID applies to pay/impair/mark_paid, OfferID
// to accept/reject, Amount to pay only.
type Item struct {
	Op      Op           `json:"op"`
	LoanID  string       `json:"loan_id,omitempty"`
	OfferID string       `json:"offer_id,omitempty"`
	Amount  money.Amount `json:"amount,omitempty"`
}

type Result struct {
	Op    Op     `json:"op"`
	Ref   string `json:"ref"`
	Error string `json:"error,omitempty"`
}

type Usecase struct {
	uow    uow.UnitOfWork
	loans  *loanuc.Usecase
	offers *offeruc.Usecase
}

func NewUsecase(tx uow.UnitOfWork, loans *loanuc.Usecase, offers *offeruc.Usecase) *Usecase {
	return &Usecase{uow: tx, loans: loans, offers: offers}
}

// Run executes the items in order. Atomic mode shares one transaction and
// aborts the whole batch on the first failure; best-effort mode records each
// item's outcome and keeps going.
func (u *Usecase) Run(ctx context.Context, actor string, items []Item, atomic bool) ([]Result, error) {
	if atomic {
		out := make([]Result, 0, len(items))
		err := u.uow.WithinTx(ctx, func(r uow.Repos) error {
			for _, it := range items {
				if err := u.runOne(ctx, r, actor, it); err != nil {
					return fmt.Errorf("%s %s: %w", it.Op, ref(it), err)
				}
				out = append(out, Result{Op: it.Op, Ref: ref(it)})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	out := make([]Result, 0, len(items))
	for _, it := range items {
		res := Result{Op: it.Op, Ref: ref(it)}
		if err := u.runOneOwnTx(ctx, actor, it); err != nil {
			res.Error = err.Error()
		}
		out = append(out, res)
	}
	return out, nil
}

func (u *Usecase) runOne(ctx context.Context, r uow.Repos, actor string, it Item) error {
	switch it.Op {
	case OpPay, OpImpair, OpMarkPaid:
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, it.LoanID)
		if err != nil {
			return err
		}
		return u.applyLoanOp(ctx, r, l, actor, it)
	case OpAccept:
		_, err := u.loans.AcceptInTx(ctx, r, actor, loanuc.AcceptInput{OfferID: it.OfferID})
		return err
	case OpReject:
		_, err := u.offers.RejectInTx(ctx, r, actor, it.OfferID)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, it.Op)
	}
}

func (u *Usecase) applyLoanOp(ctx context.Context, r uow.Repos, l *domainLoan.Loan, actor string, it Item) error {
	switch it.Op {
	case OpPay:
		_, err := u.loans.PayInTx(ctx, r, l, actor, it.Amount)
		return err
	case OpImpair:
		_, err := u.loans.ImpairInTx(ctx, r, l, actor)
		return err
	case OpMarkPaid:
		_, err := u.loans.MarkPaidInTx(ctx, r, l, actor)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, it.Op)
}

func (u *Usecase) runOneOwnTx(ctx context.Context, actor string, it Item) error {
	switch it.Op {
	case OpPay:
		_, err := u.loans.Pay(ctx, actor, it.LoanID, it.Amount)
		return err
	case OpImpair:
		_, err := u.loans.Impair(ctx, actor, it.LoanID)
		return err
	case OpMarkPaid:
		_, err := u.loans.MarkPaid(ctx, actor, it.LoanID)
		return err
	case OpAccept:
		_, err := u.loans.Accept(ctx, actor, loanuc.AcceptInput{OfferID: it.OfferID})
		return err
	case OpReject:
		_, err := u.offers.Reject(ctx, actor, it.OfferID)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownOp, it.Op)
}

func ref(it Item) string {
	if it.LoanID != "" {
		return it.LoanID
	}
	return it.OfferID
}
