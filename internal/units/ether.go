// Package units converts raw on-chain integer amounts into display units.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// weiExponent is the power of ten separating wei from ether.
const weiExponent = -18

// Ether is an exact ether-denominated amount.
type Ether struct {
	d decimal.Decimal
}

// FromWei converts an integer wei amount into ether without rounding.
// A nil amount is treated as zero.
func FromWei(wei *big.Int) Ether {
	if wei == nil {
		return Ether{d: decimal.Zero}
	}
	return Ether{d: decimal.NewFromBigInt(wei, weiExponent)}
}

// ParseEther parses a decimal ether string such as "1.5".
func ParseEther(s string) (Ether, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Ether{}, fmt.Errorf("invalid ether amount %q: %w", s, err)
	}
	return Ether{d: d}, nil
}

// Wei converts back to an integer wei amount. Digits below one wei are truncated.
func (e Ether) Wei() *big.Int {
	return e.d.Shift(-weiExponent).BigInt()
}

// Decimal returns the underlying decimal value.
func (e Ether) Decimal() decimal.Decimal {
	return e.d
}

// IsZero reports whether the amount is zero.
func (e Ether) IsZero() bool {
	return e.d.IsZero()
}

// Equal reports whether two amounts are numerically equal.
func (e Ether) Equal(other Ether) bool {
	return e.d.Equal(other.d)
}

// String renders the amount with at least one fractional digit ("1.0", "1.5").
func (e Ether) String() string {
	s := e.d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// MarshalJSON encodes the amount as an unquoted JSON number.
func (e Ether) MarshalJSON() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (e *Ether) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		e.d = decimal.Zero
		return nil
	}
	parsed, err := ParseEther(s)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
