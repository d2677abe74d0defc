package key

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(k Key) *Key { return &k }

func TestComputeInsertKey_Boundaries(t *testing.T) {
	step := FromInt(1024)

	tests := []struct {
		name     string
		prev     *Key
		next     *Key
		expected string
	}{
		{"empty list", nil, nil, "0"},
		{"insert at top", nil, ptr(FromInt(2048)), "3072"},
		{"insert at bottom", ptr(FromInt(2048)), nil, "1024"},
		{"midpoint", ptr(FromInt(2048)), ptr(FromInt(1024)), "1536"},
		{"negative neighbors", ptr(MustParse("-1")), ptr(MustParse("-2")), "-1.5"},
		{"straddles zero", ptr(MustParse("1")), ptr(MustParse("-1")), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeInsertKey(tt.prev, tt.next, step)
			assert.True(t, got.Equal(MustParse(tt.expected)), "got %s, want %s", got, tt.expected)
		})
	}
}

func TestComputeInsertKey_StrictlyBetween(t *testing.T) {
	prev := FromInt(1024)
	next := FromInt(0)

	// Repeated subdivision toward next must stay strictly inside until the
	// gap reaches the representable precision.
	for i := 0; i < 55; i++ {
		mid := ComputeInsertKey(&prev, &next, DefaultStep)
		require.Equal(t, 1, prev.Cmp(mid), "iteration %d: %s not below %s", i, mid, prev)
		require.Equal(t, -1, next.Cmp(mid), "iteration %d: %s not above %s", i, mid, next)
		prev = mid
	}
}

func TestComputeInsertKey_OddUnitGap(t *testing.T) {
	prev := MustParse("0.000000000000000003")
	next := Zero()

	mid := ComputeInsertKey(&prev, &next, DefaultStep)

	// 1.5e-18 rounds half-even to 2e-18, still strictly between.
	assert.Equal(t, "0.000000000000000002", mid.String())
}

func TestComputeInsertKey_NonPositiveStepPanics(t *testing.T) {
	assert.Panics(t, func() { ComputeInsertKey(nil, nil, Zero()) })
	assert.Panics(t, func() { ComputeInsertKey(nil, nil, FromInt(-1)) })
}

func TestIsTooDense(t *testing.T) {
	eps := MustParse("0.000000001")

	assert.False(t, IsTooDense(FromInt(2), FromInt(1), eps))
	assert.True(t, IsTooDense(MustParse("10.000000001"), MustParse("10.0000000005"), eps))
	assert.True(t, IsTooDense(FromInt(5), FromInt(5), eps))
	// Symmetric in argument order.
	assert.True(t, IsTooDense(MustParse("10.0000000005"), MustParse("10.000000001"), eps))
	// Exactly epsilon apart is not too dense.
	assert.False(t, IsTooDense(MustParse("1.000000001"), MustParse("1"), eps))
}

func TestIsTooDense_NonPositiveEpsilonPanics(t *testing.T) {
	assert.Panics(t, func() { IsTooDense(FromInt(1), FromInt(0), Zero()) })
	assert.Panics(t, func() { IsTooDense(FromInt(1), FromInt(0), FromInt(-1)) })
}

func TestBetween(t *testing.T) {
	eps := MustParse("0.000000001")

	t.Run("roomy gap", func(t *testing.T) {
		k, err := Between(ptr(FromInt(2048)), ptr(FromInt(1024)), DefaultStep, eps)
		require.NoError(t, err)
		assert.True(t, k.Equal(FromInt(1536)))
	})

	t.Run("boundaries never exhaust", func(t *testing.T) {
		k, err := Between(nil, ptr(FromInt(5)), DefaultStep, eps)
		require.NoError(t, err)
		assert.True(t, k.Equal(FromInt(1029)))

		k, err = Between(ptr(FromInt(5)), nil, DefaultStep, eps)
		require.NoError(t, err)
		assert.True(t, k.Equal(FromInt(-1019)))
	})

	t.Run("equal keys", func(t *testing.T) {
		_, err := Between(ptr(FromInt(7)), ptr(FromInt(7)), DefaultStep, eps)
		require.ErrorIs(t, err, ErrPrecisionExhausted)

		var de *DensityError
		require.ErrorAs(t, err, &de)
		assert.True(t, de.Prev.Equal(FromInt(7)))
	})

	t.Run("below epsilon", func(t *testing.T) {
		_, err := Between(ptr(MustParse("10.000000001")), ptr(MustParse("10.0000000009")), DefaultStep, eps)
		assert.ErrorIs(t, err, ErrPrecisionExhausted)
	})

	t.Run("one unit apart with tiny epsilon", func(t *testing.T) {
		tiny := MustParse("0.000000000000000001")
		_, err := Between(ptr(tiny), ptr(Zero()), DefaultStep, tiny)
		assert.ErrorIs(t, err, ErrPrecisionExhausted)
	})
}

func TestParseAndFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.000000000000000000"},
		{"-0", "0.000000000000000000"},
		{"1536", "1536.000000000000000000"},
		{"-2.5", "-2.500000000000000000"},
		{"10.000000001", "10.000000001000000000"},
		{"1e3", "1000.000000000000000000"},
		{" 42 ", "42.000000000000000000"},
		{"0.000000000000000001", "0.000000000000000001"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			k, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k.String())
			assert.NotContains(t, strings.ToLower(k.String()), "e")

			again, err := Parse(k.String())
			require.NoError(t, err)
			assert.True(t, again.Equal(k))
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "NaN", "Infinity", "-Inf", "0.0000000000000000001", "1.2.3"} {
		t.Run(in, func(t *testing.T) {
			_, err := Parse(in)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestZeroValueIsZero(t *testing.T) {
	var k Key
	assert.Equal(t, 0, k.Sign())
	assert.True(t, k.Equal(FromInt(0)))
	assert.Equal(t, "0.000000000000000000", k.String())
}

func TestArithmetic(t *testing.T) {
	a := MustParse("3.25")
	b := MustParse("1.5")

	assert.Equal(t, "4.750000000000000000", a.Add(b).String())
	assert.Equal(t, "1.750000000000000000", a.Sub(b).String())
	assert.Equal(t, "-1.750000000000000000", b.Sub(a).String())
	assert.Equal(t, "1.750000000000000000", b.Sub(a).Abs().String())
	assert.Equal(t, "3072.000000000000000000", DefaultStep.MulInt(3).String())
}

func TestJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		K Key `json:"k"`
	}

	data, err := json.Marshal(wrapper{K: MustParse("1536.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"1536.500000000000000000"}`, string(data))

	var w wrapper
	require.NoError(t, json.Unmarshal(data, &w))
	assert.True(t, w.K.Equal(MustParse("1536.5")))

	assert.Error(t, json.Unmarshal([]byte(`{"k":"nope"}`), &w))
}

func TestScanAndValue(t *testing.T) {
	k := MustParse("-7.125")

	v, err := k.Value()
	require.NoError(t, err)
	assert.Equal(t, "-7.125000000000000000", v)

	var fromString, fromBytes Key
	require.NoError(t, fromString.Scan("-7.125000000000000000"))
	require.NoError(t, fromBytes.Scan([]byte("-7.125")))
	assert.True(t, fromString.Equal(k))
	assert.True(t, fromBytes.Equal(k))

	var bad Key
	assert.Error(t, bad.Scan(nil))
	assert.Error(t, bad.Scan(12))
}

func TestSortBytesAgreesWithCmp(t *testing.T) {
	inputs := []string{
		"-1000000", "-1024", "-256", "-255", "-3", "-1.5", "-0.000000000000000001",
		"0",
		"0.000000000000000001", "0.5", "1", "9.999999999", "10.000000001", "255", "256",
		"1024", "3072", "123456789012345678901234567890",
	}

	keys := make([]Key, len(inputs))
	for i, s := range inputs {
		keys[i] = MustParse(s)
	}

	for i := range keys {
		for j := range keys {
			want := keys[i].Cmp(keys[j])
			got := bytes.Compare(keys[i].SortBytes(), keys[j].SortBytes())
			require.Equal(t, want, got, "%s vs %s", keys[i], keys[j])
		}
	}
}
