package item

import (
	"encoding/base64"
	"encoding/json"

	"github.com/roach88/wishrank/internal/key"
)

// Cursor is the position of the last item of a page: the full
// (key, created_at, id) tuple of the total order.
type Cursor struct {
	Key       key.Key
	CreatedAt int64 // unix milliseconds
	ID        string
}

// CursorOf returns the cursor positioned at it.
func CursorOf(it Item) Cursor {
	return Cursor{Key: it.Key, CreatedAt: it.CreatedAt.UnixMilli(), ID: it.ID}
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	data, err := MarshalCanonical(map[string]any{
		"k": c.Key.String(),
		"t": c.CreatedAt,
		"i": c.ID,
	})
	if err != nil {
		// Only strings and integers are marshaled; this cannot fail.
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by Encode. Any malformed token
// reports ok=false and callers treat it as "no cursor".
func DecodeCursor(token string) (c Cursor, ok bool) {
	if token == "" {
		return Cursor{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}

	var raw struct {
		K *string `json:"k"`
		T *int64  `json:"t"`
		I *string `json:"i"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Cursor{}, false
	}
	if raw.K == nil || raw.T == nil || raw.I == nil || *raw.I == "" {
		return Cursor{}, false
	}

	k, err := key.Parse(*raw.K)
	if err != nil {
		return Cursor{}, false
	}
	return Cursor{Key: k, CreatedAt: *raw.T, ID: *raw.I}, true
}

// Precedes reports whether the cursor position ranks strictly above it,
// i.e. whether it belongs to a page after the cursor.
func (c Cursor) Precedes(it Item) bool {
	if cmp := c.Key.Cmp(it.Key); cmp != 0 {
		return cmp > 0
	}
	if t := it.CreatedAt.UnixMilli(); c.CreatedAt != t {
		return c.CreatedAt > t
	}
	return c.ID > it.ID
}
