package insertion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run answers every question by comparing the hidden target index with the
// index asked about, the way a consistent user would.
func run(t *testing.T, n, target int) (Search, int) {
	t.Helper()
	s := New(n)
	asked := 0
	for !s.Done() {
		if target <= s.Mid() {
			s = s.Apply(ChoiceNew)
		} else {
			s = s.Apply(ChoiceExisting)
		}
		asked++
		require.LessOrEqual(t, asked, n+1, "search does not terminate")
	}
	return s, asked
}

func TestMaxQuestions(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{0, 0},
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{7, 3},
		{8, 4},
		{100, 7},
		{1023, 10},
		{1024, 11},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxQuestions(tt.n), "MaxQuestions(%d)", tt.n)
	}
}

func TestNew_EmptyListIsDone(t *testing.T) {
	s := New(0)
	assert.True(t, s.Done())
	assert.Equal(t, 0, s.Result())
}

func TestNew_NegativePanics(t *testing.T) {
	assert.Panics(t, func() { New(-1) })
}

func TestSearch_SingleItem(t *testing.T) {
	s := New(1)
	require.False(t, s.Done())
	assert.Equal(t, 0, s.Mid())

	assert.Equal(t, 0, s.Apply(ChoiceNew).Result(), "above the only item")
	assert.Equal(t, 1, s.Apply(ChoiceExisting).Result(), "below the only item")
}

func TestSearch_FindsEveryIndexWithinBound(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8, 13, 64, 100} {
		for target := 0; target <= n; target++ {
			s, asked := run(t, n, target)
			assert.Equal(t, target, s.Result(), "n=%d target=%d", n, target)
			assert.LessOrEqual(t, asked, MaxQuestions(n), "n=%d target=%d", n, target)
		}
	}
}

func TestSearch_ThreeItemScenario(t *testing.T) {
	// List [A, B, C]: the new item is less important than B but more
	// important than C.
	s := New(3)
	assert.Equal(t, 1, s.Mid(), "first question is about B")

	s = s.Apply(ChoiceExisting)
	require.False(t, s.Done())
	assert.Equal(t, 2, s.Mid(), "second question is about C")

	s = s.Apply(ChoiceNew)
	require.True(t, s.Done())
	assert.Equal(t, 2, s.Result())
}

func TestSearch_UndoRestoresExactBounds(t *testing.T) {
	s0 := New(100)
	s1 := s0.Apply(ChoiceExisting)
	s2 := s1.Apply(ChoiceNew)

	back := s2.Undo()
	lo, hi := back.Bounds()
	wantLo, wantHi := s1.Bounds()
	assert.Equal(t, wantLo, lo)
	assert.Equal(t, wantHi, hi)
	assert.Equal(t, s1.Mid(), back.Mid())
	assert.Equal(t, 1, back.Steps())

	root := back.Undo()
	lo, hi = root.Bounds()
	assert.Equal(t, 0, lo)
	assert.Equal(t, 100, hi)
	assert.Equal(t, 0, root.Steps())
}

func TestSearch_UndoOnFreshSearchIsNoop(t *testing.T) {
	s := New(5)
	u := s.Undo()
	assert.Equal(t, s, u)
}

func TestSearch_UndoAfterDone(t *testing.T) {
	s := New(1).Apply(ChoiceNew)
	require.True(t, s.Done())

	s = s.Undo()
	assert.False(t, s.Done())
	assert.Equal(t, 1, s.Apply(ChoiceExisting).Result())
}

func TestSearch_ValuesAreIndependent(t *testing.T) {
	base := New(10).Apply(ChoiceExisting)

	left := base.Apply(ChoiceNew)
	right := base.Apply(ChoiceExisting)

	// Branching from the same value must not let one branch overwrite the
	// other's history.
	lo, hi := left.Undo().Bounds()
	blo, bhi := base.Bounds()
	assert.Equal(t, blo, lo)
	assert.Equal(t, bhi, hi)

	lo, hi = right.Undo().Bounds()
	assert.Equal(t, blo, lo)
	assert.Equal(t, bhi, hi)
	assert.NotEqual(t, left.Mid(), right.Mid())
}

func TestSearch_HistoryBoundedByMaxQuestions(t *testing.T) {
	s, _ := run(t, 100, 37)
	assert.LessOrEqual(t, s.Steps(), MaxQuestions(100))
}

func TestSearch_PreconditionPanics(t *testing.T) {
	done := New(0)
	assert.Panics(t, func() { done.Apply(ChoiceNew) }, "Apply on a finished search")
	assert.Panics(t, func() { done.Mid() }, "Mid on a finished search")
	assert.Panics(t, func() { New(3).Result() }, "Result on an unfinished search")
	assert.Panics(t, func() { New(3).Apply(Choice(0)) }, "unknown choice")
}

func TestChoiceString(t *testing.T) {
	assert.Equal(t, "new", ChoiceNew.String())
	assert.Equal(t, "existing", ChoiceExisting.String())
	assert.Equal(t, "Choice(7)", Choice(7).String())
}
