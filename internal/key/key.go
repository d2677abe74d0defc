package key

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Scale is the number of fractional digits every key carries.
const Scale = 18

// precision bounds the total digit count of intermediate results.
// Keys never approach it: top inserts grow by one step at a time.
const precision = 120

// arith is the shared decimal context. Rounding only ever happens when
// quantizing back to Scale.
var arith = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(precision)
	c.Rounding = apd.RoundHalfEven
	return c
}()

var (
	zeroDec = apd.New(0, -Scale)
	halfDec = apd.New(5, -1)
)

// ErrInvalidKey is returned when a textual key cannot be parsed.
var ErrInvalidKey = errors.New("invalid key")

// Key is a signed fixed-point ordering value with exactly Scale fractional digits.
// Higher keys rank as more important.
//
// Key is an immutable value: every operation returns a new Key and the
// underlying decimal is never mutated after construction. The zero value is 0.
type Key struct {
	d *apd.Decimal
}

// Zero returns the key 0.
func Zero() Key {
	return Key{}
}

// FromInt returns the key for an integral value.
func FromInt(n int64) Key {
	return mustQuantize(apd.New(n, 0))
}

// Parse reads a decimal literal such as "1536", "-2.5" or
// "10.000000001000000000". Values with more than Scale fractional digits,
// NaN and infinities are rejected rather than rounded.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrInvalidKey, s, err)
	}
	if d.Form != apd.Finite {
		return Key{}, fmt.Errorf("%w: %q is not finite", ErrInvalidKey, s)
	}

	q, cond, err := quantize(d)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %q: %v", ErrInvalidKey, s, err)
	}
	if cond.Inexact() {
		return Key{}, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidKey, s, Scale)
	}
	return Key{d: q}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for constants.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

func (k Key) dec() *apd.Decimal {
	if k.d == nil {
		return zeroDec
	}
	return k.d
}

// Cmp compares k and o and returns -1, 0 or +1.
func (k Key) Cmp(o Key) int {
	return k.dec().Cmp(o.dec())
}

// Equal reports whether k and o denote the same value.
func (k Key) Equal(o Key) bool {
	return k.Cmp(o) == 0
}

// Sign returns -1, 0 or +1.
func (k Key) Sign() int {
	return k.dec().Sign()
}

// Add returns k + o.
func (k Key) Add(o Key) Key {
	var r apd.Decimal
	mustOp(arith.Add(&r, k.dec(), o.dec()))
	return mustQuantize(&r)
}

// Sub returns k - o.
func (k Key) Sub(o Key) Key {
	var r apd.Decimal
	mustOp(arith.Sub(&r, k.dec(), o.dec()))
	return mustQuantize(&r)
}

// MulInt returns k * n.
func (k Key) MulInt(n int64) Key {
	var r apd.Decimal
	mustOp(arith.Mul(&r, k.dec(), apd.New(n, 0)))
	return mustQuantize(&r)
}

// Abs returns |k|.
func (k Key) Abs() Key {
	var r apd.Decimal
	r.Abs(k.dec())
	return mustQuantize(&r)
}

// mean returns (a + b) / 2 rounded half-even to Scale.
func mean(a, b Key) Key {
	var sum, half apd.Decimal
	mustOp(arith.Add(&sum, a.dec(), b.dec()))
	mustOp(arith.Mul(&half, &sum, halfDec))
	return mustQuantize(&half)
}

// String renders the key in plain fixed-point notation with exactly Scale
// fractional digits. Exponent notation is never produced.
func (k Key) String() string {
	return k.dec().Text('f')
}

// MarshalText implements encoding.TextMarshaler; JSON encodes keys as strings.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value implements driver.Valuer. Keys are persisted in their text form.
func (k Key) Value() (driver.Value, error) {
	return k.String(), nil
}

// Scan implements sql.Scanner.
func (k *Key) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return k.UnmarshalText([]byte(v))
	case []byte:
		return k.UnmarshalText(v)
	case nil:
		return fmt.Errorf("%w: NULL", ErrInvalidKey)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalidKey, src)
	}
}

// SortBytes returns an encoding whose bytewise order matches Cmp, so stores
// can range-scan keys as BLOB/BYTEA.
//
// Layout: one sign byte (0x00 negative, 0x01 zero, 0x02 positive), then for
// non-zero keys a 2-byte big-endian length of the scaled magnitude followed by
// the magnitude itself. Negative keys store the bitwise complement of both, so
// larger magnitudes sort first.
func (k Key) SortBytes() []byte {
	sign := k.Sign()
	if sign == 0 {
		return []byte{0x01}
	}

	mag := k.scaledMagnitude().Bytes()
	out := make([]byte, 3+len(mag))
	binary.BigEndian.PutUint16(out[1:3], uint16(len(mag)))
	copy(out[3:], mag)

	if sign > 0 {
		out[0] = 0x02
		return out
	}
	out[0] = 0x00
	for i := 1; i < len(out); i++ {
		out[i] = ^out[i]
	}
	return out
}

// scaledMagnitude returns |k| * 10^Scale as an integer.
func (k Key) scaledMagnitude() *big.Int {
	digits := strings.TrimPrefix(k.String(), "-")
	digits = strings.Replace(digits, ".", "", 1)
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		panic(fmt.Sprintf("key: unexpected text form %q", k.String()))
	}
	return n
}

func quantize(d *apd.Decimal) (*apd.Decimal, apd.Condition, error) {
	r := new(apd.Decimal)
	cond, err := arith.Quantize(r, d, -Scale)
	if err != nil {
		return nil, cond, err
	}
	if r.IsZero() {
		r.Negative = false
	}
	return r, cond, nil
}

func mustQuantize(d *apd.Decimal) Key {
	r, _, err := quantize(d)
	if err != nil {
		panic(fmt.Sprintf("key: quantize %s: %v", d.Text('f'), err))
	}
	return Key{d: r}
}

func mustOp(_ apd.Condition, err error) {
	if err != nil {
		panic(fmt.Sprintf("key: decimal arithmetic: %v", err))
	}
}
