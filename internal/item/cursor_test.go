package item

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	it := mk("0190f1c2-aaaa-7bbb-8ccc-000000000001", "10.000000001", 42)
	c := CursorOf(it)

	token := c.Encode()
	assert.NotContains(t, token, "=")

	decoded, ok := DecodeCursor(token)
	require.True(t, ok)
	assert.True(t, decoded.Key.Equal(it.Key))
	assert.Equal(t, it.CreatedAt.UnixMilli(), decoded.CreatedAt)
	assert.Equal(t, it.ID, decoded.ID)
}

func TestDecodeCursor_MalformedIsAbsent(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tokens := map[string]string{
		"empty":         "",
		"not base64":    "!!!",
		"not json":      enc("hello"),
		"missing key":   enc(`{"t":1,"i":"x"}`),
		"missing time":  enc(`{"k":"1","i":"x"}`),
		"missing id":    enc(`{"k":"1","t":1}`),
		"empty id":      enc(`{"k":"1","t":1,"i":""}`),
		"bad key":       enc(`{"k":"NaN","t":1,"i":"x"}`),
		"wrong types":   enc(`{"k":1,"t":"x","i":2}`),
		"padded base64": base64.URLEncoding.EncodeToString([]byte(`{"k":"1","t":1,"i":"x"}`)) + "==",
	}

	for name, token := range tokens {
		t.Run(name, func(t *testing.T) {
			_, ok := DecodeCursor(token)
			assert.False(t, ok)
		})
	}
}

func TestCursor_Precedes(t *testing.T) {
	pivot := mk("m", "10", 5)
	c := CursorOf(pivot)

	assert.True(t, c.Precedes(mk("a", "9", 99)), "lower key comes after")
	assert.False(t, c.Precedes(mk("a", "11", 0)), "higher key comes before")
	assert.True(t, c.Precedes(mk("z", "10", 4)), "older on equal key comes after")
	assert.False(t, c.Precedes(mk("a", "10", 6)), "newer on equal key comes before")
	assert.True(t, c.Precedes(mk("a", "10", 5)), "lower id on full tie comes after")
	assert.False(t, c.Precedes(mk("z", "10", 5)), "higher id on full tie comes before")
	assert.False(t, c.Precedes(pivot), "cursor item itself is excluded")
}
