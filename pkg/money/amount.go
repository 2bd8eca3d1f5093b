package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var ErrInvalidAmount = errors.New("money: invalid amount")

// Amount is an arbitrary-precision token amount in the token's smallest unit
// (wei for 18-decimal tokens). It persists as a decimal(65,0) string and
// marshals to JSON as a decimal string so no precision is lost in transit.
type Amount struct {
	i big.Int
}

func Zero() Amount { return Amount{} }

func FromBig(v *big.Int) Amount {
	var a Amount
	if v != nil {
		a.i.Set(v)
	}
	return a
}

func FromInt64(v int64) Amount {
	var a Amount
	a.i.SetInt64(v)
	return a
}

func Parse(s string) (Amount, error) {
	var a Amount
	s = strings.TrimSpace(s)
	if s == "" {
		return a, ErrInvalidAmount
	}
	if _, ok := a.i.SetString(s, 10); !ok {
		return a, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return a, nil
}

// Big returns a copy so callers cannot mutate the stored value.
func (a Amount) Big() *big.Int { return new(big.Int).Set(&a.i) }

func (a Amount) String() string { return a.i.String() }

func (a Amount) Sign() int { return a.i.Sign() }

func (a Amount) Cmp(b Amount) int { return a.i.Cmp(&b.i) }

func (a Amount) Add(b Amount) Amount {
	var out Amount
	out.i.Add(&a.i, &b.i)
	return out
}

func (a Amount) Sub(b Amount) Amount {
	var out Amount
	out.i.Sub(&a.i, &b.i)
	return out
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) { return a.i.String(), nil }

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.i.SetInt64(0)
		return nil
	case int64:
		a.i.SetInt64(v)
		return nil
	case string:
		return a.setString(v)
	case []byte:
		return a.setString(string(v))
	default:
		return fmt.Errorf("%w: unsupported scan type %T", ErrInvalidAmount, src)
	}
}

func (a *Amount) setString(s string) error {
	s = strings.TrimSpace(s)
	// mysql DECIMAL may come back with a trailing fraction of zeros
	if i := strings.IndexByte(s, '.'); i >= 0 {
		frac := s[i+1:]
		if strings.Trim(frac, "0") != "" {
			return fmt.Errorf("%w: fractional value %q", ErrInvalidAmount, s)
		}
		s = s[:i]
	}
	if _, ok := a.i.SetString(s, 10); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.i.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		a.i.SetInt64(0)
		return nil
	}
	return a.setString(s)
}

// GormDataType keeps migrations consistent across dialects.
func (Amount) GormDataType() string { return "decimal(65,0)" }
