// Package insertion implements the binary-insertion dialogue used to place a
// new item in a ranked list by asking "is the new item more important than
// this one?" questions.
//
// Search is an immutable value: every answer returns a new Search and the
// receiver stays valid, which makes undo a matter of keeping the old value.
// Nothing here performs I/O.
package insertion

import (
	"fmt"
	"math/bits"
)

// Choice is the answer to one comparison.
type Choice int

const (
	// ChoiceNew means the new item ranks above the item shown.
	ChoiceNew Choice = iota + 1
	// ChoiceExisting means the item shown ranks above the new item.
	ChoiceExisting
)

func (c Choice) String() string {
	switch c {
	case ChoiceNew:
		return "new"
	case ChoiceExisting:
		return "existing"
	default:
		return fmt.Sprintf("Choice(%d)", int(c))
	}
}

type bounds struct {
	low, high int
}

// Search is the state of a binary search for an insertion index in
// [0, total]. The zero value is a finished search over an empty list.
type Search struct {
	low, high int
	total     int
	history   []bounds
}

// New starts a search over a list of n items. Panics if n is negative.
func New(n int) Search {
	if n < 0 {
		panic(fmt.Sprintf("insertion: negative list size %d", n))
	}
	return Search{low: 0, high: n, total: n}
}

// Total is the size of the list being searched.
func (s Search) Total() int { return s.total }

// Bounds returns the insertion indices still possible, low..high inclusive.
func (s Search) Bounds() (low, high int) { return s.low, s.high }

// Done reports whether the insertion index is determined.
func (s Search) Done() bool {
	return s.low >= s.high
}

// Mid is the index of the item to compare against next.
// Panics if the search is done.
func (s Search) Mid() int {
	if s.Done() {
		panic("insertion: Mid on a finished search")
	}
	return (s.low + s.high) / 2
}

// Apply records an answer about the item at Mid and returns the narrowed
// search. Panics if the search is done or the choice is unknown.
func (s Search) Apply(c Choice) Search {
	if s.Done() {
		panic("insertion: Apply on a finished search")
	}
	mid := s.Mid()

	next := Search{
		low:     s.low,
		high:    s.high,
		total:   s.total,
		history: append(s.history[:len(s.history):len(s.history)], bounds{s.low, s.high}),
	}
	switch c {
	case ChoiceNew:
		next.high = mid
	case ChoiceExisting:
		next.low = mid + 1
	default:
		panic(fmt.Sprintf("insertion: unknown choice %d", int(c)))
	}
	return next
}

// Undo returns the search as it was before the last Apply. With no history
// it returns s unchanged.
func (s Search) Undo() Search {
	n := len(s.history)
	if n == 0 {
		return s
	}
	prev := s.history[n-1]
	return Search{
		low:     prev.low,
		high:    prev.high,
		total:   s.total,
		history: s.history[: n-1 : n-1],
	}
}

// Steps is the number of answers applied and not undone.
func (s Search) Steps() int {
	return len(s.history)
}

// Result is the insertion index: 0 places the new item at the top, Total()
// at the bottom. Panics if the search is not done.
func (s Search) Result() int {
	if !s.Done() {
		panic("insertion: Result on an unfinished search")
	}
	return s.low
}

// MaxQuestions is the worst-case number of answers needed for a list of n
// items: ceil(log2(n+1)).
func MaxQuestions(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n))
}
