package http

import (
	"encoding/json"
	"math/big"
	stdhttp "net/http"
	"strings"
	"testing"
	"time"

	loanuc "frendlend-backend/internal/usecase/loan"
)

// accept funds and accepts a fresh offer, returning the resulting loan.
func (v *env) accept(t *testing.T, h *LoanHandler) loanuc.LoanDTO {
	t.Helper()
	o := v.seedOffer(t, big1e18(), 1000, 30*24*time.Hour)
	v.fundAccept(t, o)

	c, rec := v.request(stdhttp.MethodPost, "/offers/x/accept", testDebtor, map[string]any{}, "offer_id", o.OfferID)
	if err := h.AcceptOffer(c); err != nil {
		t.Fatalf("accept handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("accept status = %d, want 201; body=%s", rec.Code, rec.Body.String())
	}
	var dto loanuc.LoanDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &dto); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	return dto
}

func TestAcceptOffer_Success(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)

	dto := v.accept(t, h)
	if dto.Status != "pending" {
		t.Fatalf("status = %q, want pending", dto.Status)
	}
	if len(dto.LoanID) != 32 || len(dto.ClaimRef) != 32 {
		t.Fatalf("ids not 32 chars: %+v", dto)
	}
	if dto.ClaimAmount.String() != big1e18().String() {
		t.Fatalf("claim amount = %s", dto.ClaimAmount)
	}
	// Principal landed with the debtor.
	if got := v.store.Balance(testToken, testDebtor); got.Cmp(big1e18()) != 0 {
		t.Fatalf("debtor balance = %s, want principal", got)
	}
}

func TestAcceptOffer_BadPathParam(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)

	c, rec := v.request(stdhttp.MethodPost, "/offers/x/accept", testDebtor, map[string]any{}, "offer_id", "nope")
	if err := h.AcceptOffer(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAcceptOffer_NoAllowance(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	o := v.seedOffer(t, big1e18(), 1000, 30*24*time.Hour)
	// Permit granted but the creditor never approved the spend.
	v.fundAccept(t, o)
	v.store.SetAllowance(testToken, testCreditor, testServiceID, big.NewInt(0))

	c, rec := v.request(stdhttp.MethodPost, "/offers/x/accept", testDebtor, map[string]any{}, "offer_id", o.OfferID)
	if err := h.AcceptOffer(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body=%s", rec.Code, rec.Body.String())
	}
}

func TestPay_FullSettlement(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	l := v.accept(t, h)
	v.fundPay(t, big1e18())

	c, rec := v.request(stdhttp.MethodPost, "/loans/x/pay", testDebtor,
		map[string]any{"amount": big1e18().String()}, "loan_id", l.LoanID)
	if err := h.Pay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var p loanuc.PaymentDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	// No time elapsed, so the whole payment is principal.
	if p.InterestPaid.Sign() != 0 {
		t.Fatalf("interest = %s, want 0", p.InterestPaid)
	}
	if p.PrincipalPaid.String() != big1e18().String() {
		t.Fatalf("principal = %s", p.PrincipalPaid)
	}
	if p.Status != "paid" {
		t.Fatalf("status = %q, want paid", p.Status)
	}
}

func TestPay_ValidationAndGuards(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	l := v.accept(t, h)
	v.fundPay(t, big1e18())

	// Missing amount fails validation.
	c, rec := v.request(stdhttp.MethodPost, "/loans/x/pay", testDebtor, map[string]any{}, "loan_id", l.LoanID)
	if err := h.Pay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("missing amount: status = %d, want 422", rec.Code)
	}

	// Fractional amounts are not representable.
	c, rec = v.request(stdhttp.MethodPost, "/loans/x/pay", testDebtor,
		map[string]any{"amount": "1.5"}, "loan_id", l.LoanID)
	if err := h.Pay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("fractional: status = %d, want 422", rec.Code)
	}

	// Zero passes the format check but the processor refuses it.
	c, rec = v.request(stdhttp.MethodPost, "/loans/x/pay", testDebtor,
		map[string]any{"amount": "0"}, "loan_id", l.LoanID)
	if err := h.Pay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("zero: status = %d, want 400; body=%s", rec.Code, rec.Body.String())
	}

	// Unknown loan.
	c, rec = v.request(stdhttp.MethodPost, "/loans/x/pay", testDebtor,
		map[string]any{"amount": "1"}, "loan_id", strings.Repeat("0", 32))
	if err := h.Pay(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unknown loan: status = %d, want 404", rec.Code)
	}
}

func TestImpair_OnlyCreditor(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	l := v.accept(t, h)

	c, rec := v.request(stdhttp.MethodPost, "/loans/x/impair", testDebtor, nil, "loan_id", l.LoanID)
	if err := h.Impair(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusForbidden {
		t.Fatalf("debtor impair: status = %d, want 403", rec.Code)
	}
}

func TestImpair_GraceNotElapsed(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	l := v.accept(t, h)

	c, rec := v.request(stdhttp.MethodPost, "/loans/x/impair", testCreditor, nil, "loan_id", l.LoanID)
	if err := h.Impair(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("early impair: status = %d, want 409; body=%s", rec.Code, rec.Body.String())
	}
}

func TestGetLoanAndTotalDue(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	l := v.accept(t, h)

	c, rec := v.request(stdhttp.MethodGet, "/loans/x", "", nil, "loan_id", l.LoanID)
	if err := h.GetLoan(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("get: status = %d, want 200", rec.Code)
	}

	c, rec = v.request(stdhttp.MethodGet, "/loans/x/due", "", nil, "loan_id", l.LoanID)
	if err := h.TotalDue(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("due: status = %d, want 200", rec.Code)
	}
	var due loanuc.AmountDueDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &due); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if due.RemainingPrincipal.String() != big1e18().String() {
		t.Fatalf("remaining principal = %s", due.RemainingPrincipal)
	}
	if due.CurrentInterest.Sign() != 0 {
		t.Fatalf("interest = %s, want 0", due.CurrentInterest)
	}

	c, rec = v.request(stdhttp.MethodGet, "/loans/x", "", nil, "loan_id", strings.Repeat("f", 32))
	if err := h.GetLoan(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusNotFound {
		t.Fatalf("unknown loan: status = %d, want 404", rec.Code)
	}
}

func TestBatchAccept_Validation(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)

	c, rec := v.request(stdhttp.MethodPost, "/offers/accept", testDebtor, map[string]any{
		"offers": []map[string]any{{"offer_id": "nope"}},
	})
	if err := h.BatchAccept(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body=%s", rec.Code, rec.Body.String())
	}
}

func TestBatchAccept_BestEffort(t *testing.T) {
	v := newEnv(t)
	h := NewLoanHandler(v.loans)
	o := v.seedOffer(t, big1e18(), 1000, 30*24*time.Hour)
	v.fundAccept(t, o)

	c, rec := v.request(stdhttp.MethodPost, "/offers/accept", testDebtor, map[string]any{
		"offers": []map[string]any{
			{"offer_id": o.OfferID},
			{"offer_id": strings.Repeat("0", 32)}, // unknown
		},
	})
	if err := h.BatchAccept(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Results []loanuc.BatchAcceptResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if len(body.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(body.Results))
	}
	if body.Results[0].Error != "" || body.Results[0].Loan == nil {
		t.Fatalf("first result should have succeeded: %+v", body.Results[0])
	}
	if body.Results[1].Error == "" {
		t.Fatalf("second result should carry an error")
	}
}
