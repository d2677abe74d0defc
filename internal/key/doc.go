// Package key implements fractional ordering keys.
//
// A key is a signed decimal with a fixed scale of 18 fractional digits,
// backed by exact decimal arithmetic (github.com/cockroachdb/apd/v3). Binary
// floating point is never used: midpoints must round-trip exactly through
// their text form and must land strictly between their neighbors.
//
// # Placement
//
// ComputeInsertKey derives a key from zero, one or two neighbors.
// IsTooDense flags neighbors whose gap has fallen below epsilon; once that
// happens no further midpoint may be placed between them until the list is
// rebalanced. Between combines both and reports ErrPrecisionExhausted.
//
// # Storage
//
// Keys are stored as text (String) for exact round-trips and as SortBytes
// for byte-ordered range scans.
package key
