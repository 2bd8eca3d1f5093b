// Package memstore provides in-memory implementations of every store in
// uow.Repos plus a UnitOfWork over them. Usecase tests run real lifecycle
// flows against it without a database; an error inside WithinTx restores
// the pre-transaction snapshot, mirroring a rollback.
package memstore

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"frendlend-backend/internal/domain/fee"
	"frendlend-backend/internal/domain/ledger"
	"frendlend-backend/internal/domain/loan"
	"frendlend-backend/internal/domain/offer"
	"frendlend-backend/internal/domain/uow"
	"frendlend-backend/pkg/id"
	"frendlend-backend/pkg/money"
)

type Store struct {
	mu sync.Mutex

	ServiceID string
	Now       func() time.Time

	loans      map[string]*loan.Loan
	offers     map[string]*offer.Offer
	feeSetting fee.Setting
	feeBals    map[string]*big.Int

	claims  map[string]*ledger.DebtRecord
	permits []ledger.Permit

	balances   map[string]*big.Int // token|account
	allowances map[string]*big.Int // token|owner|spender
}

func New(serviceID string) *Store {
	return &Store{
		ServiceID:  serviceID,
		Now:        func() time.Time { return time.Now().UTC() },
		loans:      map[string]*loan.Loan{},
		offers:     map[string]*offer.Offer{},
		feeBals:    map[string]*big.Int{},
		claims:     map[string]*ledger.DebtRecord{},
		balances:   map[string]*big.Int{},
		allowances: map[string]*big.Int{},
	}
}

func (s *Store) Repos() uow.Repos {
	return uow.Repos{
		Loans:  (*loanRepo)(s),
		Offers: (*offerRepo)(s),
		Fees:   (*feeRepo)(s),
		Ledger: (*ledgerImpl)(s),
		Tokens: (*tokenImpl)(s),
	}
}

// WithinTx snapshots the store, runs fn, and restores the snapshot when fn
// fails.
func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	snap := s.snapshot()
	if err := fn(s.Repos()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	return s.WithinTx(ctx, func(r uow.Repos) error {
		l, err := r.Loans.GetByLoanIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

var _ uow.UnitOfWork = (*Store)(nil)

// ---- seeding helpers ----

func (s *Store) Mint(token, account string, amount *big.Int) {
	s.credit(s.balances, token+"|"+account, amount)
}

func (s *Store) SetAllowance(token, owner, spender string, amount *big.Int) {
	s.allowances[token+"|"+owner+"|"+spender] = new(big.Int).Set(amount)
}

func (s *Store) Balance(token, account string) *big.Int {
	if b, ok := s.balances[token+"|"+account]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (s *Store) FeeBalance(token string) *big.Int {
	if b, ok := s.feeBals[token]; ok {
		return new(big.Int).Set(b)
	}
	return big.NewInt(0)
}

func (s *Store) Claim(ref string) *ledger.DebtRecord {
	if c, ok := s.claims[ref]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (s *Store) SeedOffer(o *offer.Offer) { cp := *o; s.offers[o.OfferID] = &cp }
func (s *Store) SeedLoan(l *loan.Loan)    { cp := *l; s.loans[l.LoanID] = &cp }

func (s *Store) credit(m map[string]*big.Int, key string, amount *big.Int) {
	cur, ok := m[key]
	if !ok {
		cur = big.NewInt(0)
	}
	m[key] = new(big.Int).Add(cur, amount)
}

// ---- snapshot / restore ----

type snap struct {
	loans      map[string]*loan.Loan
	offers     map[string]*offer.Offer
	feeSetting fee.Setting
	feeBals    map[string]*big.Int
	claims     map[string]*ledger.DebtRecord
	permits    []ledger.Permit
	balances   map[string]*big.Int
	allowances map[string]*big.Int
}

func copyBig(m map[string]*big.Int) map[string]*big.Int {
	out := make(map[string]*big.Int, len(m))
	for k, v := range m {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

func (s *Store) snapshot() snap {
	loans := make(map[string]*loan.Loan, len(s.loans))
	for k, v := range s.loans {
		cp := *v
		loans[k] = &cp
	}
	offers := make(map[string]*offer.Offer, len(s.offers))
	for k, v := range s.offers {
		cp := *v
		offers[k] = &cp
	}
	claims := make(map[string]*ledger.DebtRecord, len(s.claims))
	for k, v := range s.claims {
		cp := *v
		claims[k] = &cp
	}
	return snap{
		loans:      loans,
		offers:     offers,
		feeSetting: s.feeSetting,
		feeBals:    copyBig(s.feeBals),
		claims:     claims,
		permits:    append([]ledger.Permit(nil), s.permits...),
		balances:   copyBig(s.balances),
		allowances: copyBig(s.allowances),
	}
}

func (s *Store) restore(sn snap) {
	s.loans = sn.loans
	s.offers = sn.offers
	s.feeSetting = sn.feeSetting
	s.feeBals = sn.feeBals
	s.claims = sn.claims
	s.permits = sn.permits
	s.balances = sn.balances
	s.allowances = sn.allowances
}

// ---- loan.Repository ----

type loanRepo Store

func (r *loanRepo) Create(_ context.Context, l *loan.Loan) error {
	cp := *l
	r.loans[l.LoanID] = &cp
	return nil
}

func (r *loanRepo) GetByLoanID(_ context.Context, loanID string) (*loan.Loan, error) {
	l, ok := r.loans[loanID]
	if !ok {
		return nil, loan.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *loanRepo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return r.GetByLoanID(ctx, loanID)
}

func (r *loanRepo) GetByClaimRef(_ context.Context, claimRef string) (*loan.Loan, error) {
	for _, l := range r.loans {
		if l.ClaimRef == claimRef {
			cp := *l
			return &cp, nil
		}
	}
	return nil, loan.ErrNotFound
}

func (r *loanRepo) Save(_ context.Context, l *loan.Loan) error {
	if _, ok := r.loans[l.LoanID]; !ok {
		return loan.ErrNotFound
	}
	cp := *l
	r.loans[l.LoanID] = &cp
	return nil
}

// ---- offer.Repository ----

type offerRepo Store

func (r *offerRepo) Create(_ context.Context, o *offer.Offer) error {
	cp := *o
	r.offers[o.OfferID] = &cp
	return nil
}

func (r *offerRepo) GetByOfferID(_ context.Context, offerID string) (*offer.Offer, error) {
	o, ok := r.offers[offerID]
	if !ok {
		return nil, offer.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *offerRepo) GetByOfferIDForUpdate(ctx context.Context, offerID string) (*offer.Offer, error) {
	return r.GetByOfferID(ctx, offerID)
}

func (r *offerRepo) Save(_ context.Context, o *offer.Offer) error {
	if _, ok := r.offers[o.OfferID]; !ok {
		return offer.ErrNotFound
	}
	cp := *o
	r.offers[o.OfferID] = &cp
	return nil
}

func (r *offerRepo) NextNonce(_ context.Context, offerer string) (uint64, error) {
	var n uint64
	for _, o := range r.offers {
		if o.Offerer == offerer {
			n++
		}
	}
	return n, nil
}

// ---- fee.Repository ----

type feeRepo Store

func (r *feeRepo) GetSetting(_ context.Context) (*fee.Setting, error) {
	cp := r.feeSetting
	return &cp, nil
}

func (r *feeRepo) SaveSetting(_ context.Context, s *fee.Setting) error {
	r.feeSetting = *s
	return nil
}

func (r *feeRepo) Add(_ context.Context, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	(*Store)(r).credit(r.feeBals, token, amount)
	return nil
}

func (r *feeRepo) ListForUpdate(_ context.Context) ([]fee.Balance, error) {
	tokens := make([]string, 0, len(r.feeBals))
	for t := range r.feeBals {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	out := make([]fee.Balance, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, fee.Balance{Token: t, Amount: money.FromBig(r.feeBals[t])})
	}
	return out, nil
}

func (r *feeRepo) Save(_ context.Context, b *fee.Balance) error {
	r.feeBals[b.Token] = b.Amount.Big()
	return nil
}

// ---- ledger.Ledger ----

type ledgerImpl Store

func (l *ledgerImpl) consumePermit(grantor string, action ledger.PermitAction) error {
	now := l.Now()
	for i := range l.permits {
		p := &l.permits[i]
		if p.Grantor == grantor && p.Grantee == l.ServiceID && p.Action == action &&
			p.RemainingUses > 0 && p.ExpiresAt.After(now) {
			p.RemainingUses--
			return nil
		}
	}
	return ledger.ErrPermitRequired
}

func (l *ledgerImpl) CreateDebtRecord(_ context.Context, creditor, debtor string, amount *big.Int, token, metadata string) (string, error) {
	if err := l.consumePermit(debtor, ledger.PermitCreateClaim); err != nil {
		return "", err
	}
	ref := id.NewID32()
	l.claims[ref] = &ledger.DebtRecord{
		ClaimRef:    ref,
		Creditor:    creditor,
		Debtor:      debtor,
		Token:       token,
		ClaimAmount: money.FromBig(amount),
		PaidAmount:  money.Zero(),
		Status:      ledger.ClaimPending,
	}
	return ref, nil
}

func (l *ledgerImpl) GetDebtRecord(_ context.Context, claimRef string) (*ledger.DebtRecord, error) {
	c, ok := l.claims[claimRef]
	if !ok {
		return nil, ledger.ErrClaimNotFound
	}
	cp := *c
	return &cp, nil
}

func (l *ledgerImpl) RecordPayment(_ context.Context, claimRef string, amount *big.Int) error {
	c, ok := l.claims[claimRef]
	if !ok {
		return ledger.ErrClaimNotFound
	}
	if err := l.consumePermit(c.Debtor, ledger.PermitRecordPayment); err != nil {
		return err
	}
	c.PaidAmount = money.FromBig(new(big.Int).Add(c.PaidAmount.Big(), amount))
	if c.Status == ledger.ClaimPending {
		c.Status = ledger.ClaimRepaying
	}
	return nil
}

func (l *ledgerImpl) transition(claimRef string, to ledger.ClaimStatus) error {
	c, ok := l.claims[claimRef]
	if !ok {
		return ledger.ErrClaimNotFound
	}
	if err := l.consumePermit(c.Creditor, ledger.PermitTransition); err != nil {
		return err
	}
	c.Status = to
	return nil
}

func (l *ledgerImpl) TransitionToPaid(_ context.Context, claimRef string) error {
	return l.transition(claimRef, ledger.ClaimPaid)
}

func (l *ledgerImpl) TransitionToImpaired(_ context.Context, claimRef string) error {
	return l.transition(claimRef, ledger.ClaimImpaired)
}

func (l *ledgerImpl) GrantPermit(_ context.Context, p ledger.Permit) error {
	l.permits = append(l.permits, p)
	return nil
}

// ---- ledger.TokenService ----

type tokenImpl Store

func (t *tokenImpl) BalanceOf(_ context.Context, token, account string) (*big.Int, error) {
	return (*Store)(t).Balance(token, account), nil
}

func (t *tokenImpl) Transfer(_ context.Context, token, from, to string, amount *big.Int) error {
	key := token + "|" + from
	cur, ok := t.balances[key]
	if !ok || cur.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ledger.ErrInsufficientBalance, from, cur, amount)
	}
	t.balances[key] = new(big.Int).Sub(cur, amount)
	(*Store)(t).credit(t.balances, token+"|"+to, amount)
	return nil
}

func (t *tokenImpl) Approve(_ context.Context, token, owner, spender string, amount *big.Int) error {
	t.allowances[token+"|"+owner+"|"+spender] = new(big.Int).Set(amount)
	return nil
}

func (t *tokenImpl) Allowance(_ context.Context, token, owner, spender string) (*big.Int, error) {
	if a, ok := t.allowances[token+"|"+owner+"|"+spender]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (t *tokenImpl) TransferFrom(ctx context.Context, token, owner, spender, to string, amount *big.Int) error {
	key := token + "|" + owner + "|" + spender
	cur, ok := t.allowances[key]
	if !ok || cur.Cmp(amount) < 0 {
		return fmt.Errorf("%w: spender %s", ledger.ErrInsufficientAllowance, spender)
	}
	if err := t.Transfer(ctx, token, owner, to, amount); err != nil {
		return err
	}
	t.allowances[key] = new(big.Int).Sub(cur, amount)
	return nil
}

func (t *tokenImpl) Permit(ctx context.Context, token, owner, spender string, amount *big.Int, deadline time.Time) error {
	if deadline.Before((*Store)(t).Now()) {
		return fmt.Errorf("%w: permit expired", ledger.ErrInsufficientAllowance)
	}
	return t.Approve(ctx, token, owner, spender, amount)
}
