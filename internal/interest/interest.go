package interest

import (
	"errors"
	"math/big"
	"time"
)

var ErrInvalidPeriodsPerYear = errors.New("interest: periods per year must be 0 or within [1, 365]")

const (
	bpsDenominator = 10_000
	daysPerYear    = 365

	secondsPerDay  = 24 * 60 * 60
	secondsPerYear = daysPerYear * secondsPerDay

	maxPeriodsPerYear = 365
)

var bigBps = big.NewInt(bpsDenominator)

// Config is the per-loan interest configuration, immutable once the loan is
// accepted. PeriodsPerYear == 0 selects simple interest; [1, 365] selects
// compound interest with that many compounding periods per year.
type Config struct {
	RateBps        uint64 `json:"interest_rate_bps"`
	PeriodsPerYear uint64 `json:"number_of_periods_per_year"`
}

// ValidateConfig rejects compound configurations with more than 365 periods
// per year. A zero rate never accrues, so its period count is unconstrained.
func ValidateConfig(cfg Config) error {
	if cfg.RateBps == 0 {
		return nil
	}
	if cfg.PeriodsPerYear > maxPeriodsPerYear {
		return ErrInvalidPeriodsPerYear
	}
	return nil
}

// State is the mutable accrual bookkeeping for one loan.
type State struct {
	// Accrued is the unpaid interest computed to date.
	Accrued *big.Int
	// LatestPeriodNumber counts the whole compounding periods already folded
	// into Accrued. Always 0 in simple mode.
	LatestPeriodNumber uint64
	// ProtocolFeeBps is the fee rate snapshotted at acceptance time.
	ProtocolFeeBps uint64
	// TotalGrossInterestPaid is lifetime interest paid by the debtor before
	// the fee split. Never decreases.
	TotalGrossInterestPaid *big.Int
}

// Clone returns an independent copy so read-only callers can refresh interest
// without touching stored state.
func (s State) Clone() State {
	out := State{
		LatestPeriodNumber:     s.LatestPeriodNumber,
		ProtocolFeeBps:         s.ProtocolFeeBps,
		Accrued:                big.NewInt(0),
		TotalGrossInterestPaid: big.NewInt(0),
	}
	if s.Accrued != nil {
		out.Accrued.Set(s.Accrued)
	}
	if s.TotalGrossInterestPaid != nil {
		out.TotalGrossInterestPaid.Set(s.TotalGrossInterestPaid)
	}
	return out
}

// Accrue refreshes the accrual state for a loan with the given remaining
// principal. Interest only accrues on the overdue tail past dueBy; calls at
// or before the due date return the prior state unchanged, as do calls with
// no remaining principal or no newly elapsed whole day/period.
//
// Simple mode recomputes total accrued interest from scratch off the elapsed
// whole days, while compound mode folds newly elapsed periods onto principal
// plus previously accrued unpaid interest. The two modes intentionally do not
// share mechanics; unifying them changes observable behaviour around partial
// payments between refreshes.
func Accrue(remainingPrincipal *big.Int, dueBy, now time.Time, cfg Config, prior State) State {
	state := prior.Clone()
	if remainingPrincipal == nil || remainingPrincipal.Sign() == 0 {
		return state
	}
	if cfg.RateBps == 0 {
		return state
	}
	if !now.After(dueBy) {
		return state
	}
	elapsed := now.Unix() - dueBy.Unix()
	if elapsed <= 0 {
		return state
	}

	if cfg.PeriodsPerYear == 0 {
		return accrueSimple(remainingPrincipal, elapsed, cfg, state)
	}
	return accrueCompound(remainingPrincipal, elapsed, cfg, state)
}

// accrueSimple: interest = principal * rateBps * wholeDays / (365 * 10000),
// recomputed in full each call. No partial-day accrual.
func accrueSimple(principal *big.Int, elapsedSeconds int64, cfg Config, state State) State {
	days := elapsedSeconds / secondsPerDay
	if days == 0 {
		return state
	}
	interest := new(big.Int).Mul(principal, new(big.Int).SetUint64(cfg.RateBps))
	interest.Mul(interest, big.NewInt(days))
	interest.Quo(interest, big.NewInt(daysPerYear*bpsDenominator))
	state.Accrued = interest
	state.LatestPeriodNumber = 0
	return state
}

// accrueCompound folds each newly elapsed whole period onto the running
// balance: delta = (principal + accrued) * rateBps / (10000 * periodsPerYear).
// Unpaid interest itself earns interest in later periods.
func accrueCompound(principal *big.Int, elapsedSeconds int64, cfg Config, state State) State {
	secondsPerPeriod := int64(secondsPerYear / cfg.PeriodsPerYear)
	totalPeriods := uint64(elapsedSeconds / secondsPerPeriod)
	if totalPeriods <= state.LatestPeriodNumber {
		return state
	}
	newPeriods := totalPeriods - state.LatestPeriodNumber

	rate := new(big.Int).SetUint64(cfg.RateBps)
	denom := new(big.Int).Mul(bigBps, new(big.Int).SetUint64(cfg.PeriodsPerYear))
	accrued := new(big.Int).Set(state.Accrued)
	base := new(big.Int)
	delta := new(big.Int)
	for i := uint64(0); i < newPeriods; i++ {
		base.Add(principal, accrued)
		delta.Mul(base, rate)
		delta.Quo(delta, denom)
		accrued.Add(accrued, delta)
	}

	state.Accrued = accrued
	state.LatestPeriodNumber = totalPeriods
	return state
}
