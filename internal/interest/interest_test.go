package interest

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ether(n int64) *big.Int {
	wei := new(big.Int).SetInt64(n)
	return wei.Mul(wei, new(big.Int).SetInt64(1_000_000_000_000_000_000))
}

func freshState() State {
	return State{
		Accrued:                big.NewInt(0),
		TotalGrossInterestPaid: big.NewInt(0),
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"simple mode", Config{RateBps: 1000, PeriodsPerYear: 0}, nil},
		{"monthly compounding", Config{RateBps: 1000, PeriodsPerYear: 12}, nil},
		{"daily compounding", Config{RateBps: 1000, PeriodsPerYear: 365}, nil},
		{"too many periods", Config{RateBps: 1000, PeriodsPerYear: 366}, ErrInvalidPeriodsPerYear},
		{"zero rate ignores periods", Config{RateBps: 0, PeriodsPerYear: 9999}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.cfg)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestAccrue_ShortCircuits(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 12}

	t.Run("zero principal", func(t *testing.T) {
		got := Accrue(big.NewInt(0), dueBy, dueBy.Add(90*24*time.Hour), cfg, freshState())
		require.Zero(t, got.Accrued.Sign())
		require.Zero(t, got.LatestPeriodNumber)
	})

	t.Run("before due date", func(t *testing.T) {
		got := Accrue(ether(1), dueBy, dueBy.Add(-time.Hour), cfg, freshState())
		require.Zero(t, got.Accrued.Sign())
	})

	t.Run("exactly at due date", func(t *testing.T) {
		got := Accrue(ether(1), dueBy, dueBy, cfg, freshState())
		require.Zero(t, got.Accrued.Sign())
	})

	t.Run("simple mode partial day", func(t *testing.T) {
		simple := Config{RateBps: 1000, PeriodsPerYear: 0}
		got := Accrue(ether(1), dueBy, dueBy.Add(23*time.Hour), simple, freshState())
		require.Zero(t, got.Accrued.Sign())
	})

	t.Run("compound mode partial period", func(t *testing.T) {
		got := Accrue(ether(1), dueBy, dueBy.Add(10*24*time.Hour), cfg, freshState())
		require.Zero(t, got.Accrued.Sign())
		require.Zero(t, got.LatestPeriodNumber)
	})

	t.Run("zero rate", func(t *testing.T) {
		got := Accrue(ether(1), dueBy, dueBy.Add(365*24*time.Hour), Config{}, freshState())
		require.Zero(t, got.Accrued.Sign())
	})
}

// Simple interest is linear in elapsed whole days: 10% of 1 ether after 365
// overdue days, 20% after 730, with no compounding.
func TestAccrue_SimpleLinear(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 0}
	principal := ether(1)

	oneYear := Accrue(principal, dueBy, dueBy.Add(365*24*time.Hour), cfg, freshState())
	require.Equal(t, "100000000000000000", oneYear.Accrued.String())
	require.Zero(t, oneYear.LatestPeriodNumber)

	twoYears := Accrue(principal, dueBy, dueBy.Add(730*24*time.Hour), cfg, oneYear)
	require.Equal(t, "200000000000000000", twoYears.Accrued.String())
	require.Zero(t, twoYears.LatestPeriodNumber)
}

// Simple mode recomputes from scratch each call, so the result only depends
// on the current remaining principal and total elapsed days.
func TestAccrue_SimpleRecomputesFromScratch(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 0}

	// A prior state with stale accrued interest is ignored by the formula.
	prior := freshState()
	prior.Accrued = ether(5)

	got := Accrue(ether(1), dueBy, dueBy.Add(365*24*time.Hour), cfg, prior)
	require.Equal(t, "100000000000000000", got.Accrued.String())
}

// 1 ether at 10% annual compounded monthly, due in 30 days, inspected 38 days
// past due and again 30 days later: interest is positive and strictly grows.
func TestAccrue_CompoundPastDue(t *testing.T) {
	accepted := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dueBy := accepted.Add(30 * 24 * time.Hour)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 12}
	principal := ether(1)

	first := Accrue(principal, dueBy, dueBy.Add(38*24*time.Hour), cfg, freshState())
	require.Positive(t, first.Accrued.Sign())
	require.Equal(t, uint64(1), first.LatestPeriodNumber)

	second := Accrue(principal, dueBy, dueBy.Add(68*24*time.Hour), cfg, first)
	require.Greater(t, second.Accrued.Cmp(first.Accrued), 0)
	require.Greater(t, second.LatestPeriodNumber, first.LatestPeriodNumber)
}

// Unpaid interest itself earns interest: after two periods the accrued total
// exceeds twice the first period's interest.
func TestAccrue_CompoundsOnArrears(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 12}
	principal := ether(1)

	// period length = 365d/12; 62 days covers two whole periods
	one := Accrue(principal, dueBy, dueBy.Add(31*24*time.Hour), cfg, freshState())
	require.Equal(t, uint64(1), one.LatestPeriodNumber)
	require.Equal(t, "8333333333333333", one.Accrued.String())

	two := Accrue(principal, dueBy, dueBy.Add(62*24*time.Hour), cfg, one)
	require.Equal(t, uint64(2), two.LatestPeriodNumber)
	require.Equal(t, "16736111111111110", two.Accrued.String())

	linearTwice := new(big.Int).Lsh(one.Accrued, 1)
	require.Greater(t, two.Accrued.Cmp(linearTwice), 0)
}

// Periods already folded into the state do not accrue again.
func TestAccrue_CompoundIncrementalToStoredPeriod(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 12}

	one := Accrue(ether(1), dueBy, dueBy.Add(31*24*time.Hour), cfg, freshState())

	// Re-refreshing within the same period is a no-op.
	again := Accrue(ether(1), dueBy, dueBy.Add(40*24*time.Hour), cfg, one)
	require.Equal(t, one.Accrued.String(), again.Accrued.String())
	require.Equal(t, one.LatestPeriodNumber, again.LatestPeriodNumber)
}

func TestAccrue_Monotonic(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	principal := ether(3)

	for _, cfg := range []Config{
		{RateBps: 875, PeriodsPerYear: 0},
		{RateBps: 875, PeriodsPerYear: 12},
		{RateBps: 875, PeriodsPerYear: 365},
	} {
		state := freshState()
		prevAccrued := big.NewInt(0)
		prevPeriod := uint64(0)
		for day := int64(1); day <= 800; day += 13 {
			state = Accrue(principal, dueBy, dueBy.Add(time.Duration(day)*24*time.Hour), cfg, state)
			require.GreaterOrEqual(t, state.Accrued.Cmp(prevAccrued), 0,
				"accrued decreased at day %d (periods/yr=%d)", day, cfg.PeriodsPerYear)
			require.GreaterOrEqual(t, state.LatestPeriodNumber, prevPeriod)
			prevAccrued = new(big.Int).Set(state.Accrued)
			prevPeriod = state.LatestPeriodNumber
		}
		require.Positive(t, state.Accrued.Sign())
	}
}

func TestAccrue_IdempotentAtSameInstant(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := dueBy.Add(100 * 24 * time.Hour)
	cfg := Config{RateBps: 1200, PeriodsPerYear: 12}
	principal := ether(2)

	first := Accrue(principal, dueBy, now, cfg, freshState())
	second := Accrue(principal, dueBy, now, cfg, first)
	require.Equal(t, first.Accrued.String(), second.Accrued.String())
	require.Equal(t, first.LatestPeriodNumber, second.LatestPeriodNumber)
}

func TestAccrue_DoesNotMutatePrior(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 12}

	prior := freshState()
	prior.ProtocolFeeBps = 50
	_ = Accrue(ether(1), dueBy, dueBy.Add(400*24*time.Hour), cfg, prior)

	require.Zero(t, prior.Accrued.Sign())
	require.Zero(t, prior.LatestPeriodNumber)
}

func TestAccrue_CarriesFeeAndPaidFields(t *testing.T) {
	dueBy := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{RateBps: 1000, PeriodsPerYear: 12}

	prior := freshState()
	prior.ProtocolFeeBps = 125
	prior.TotalGrossInterestPaid = big.NewInt(777)

	got := Accrue(ether(1), dueBy, dueBy.Add(60*24*time.Hour), cfg, prior)
	require.Equal(t, uint64(125), got.ProtocolFeeBps)
	require.Equal(t, "777", got.TotalGrossInterestPaid.String())
}
