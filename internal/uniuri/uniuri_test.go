package uniuri

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenShape(t *testing.T) {
	tok, err := Token()
	require.NoError(t, err)
	assert.Len(t, tok, TokenLen)

	raw, err := hex.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestTokensDoNotCollide(t *testing.T) {
	const n = 10000

	seen := make(map[string]struct{}, n)

	for range n {
		tok, err := Token()
		require.NoError(t, err)
		require.Len(t, tok, TokenLen)

		_, dup := seen[tok]
		require.False(t, dup, "duplicate token %s", tok)

		seen[tok] = struct{}{}
	}
}

func TestNewLenChars(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		chars   []byte
		wantErr error
	}{
		{name: "zero length", length: 0, chars: StdChars},
		{name: "std chars", length: 40, chars: StdChars},
		{name: "binary alphabet", length: 300, chars: []byte("01")},
		{name: "alphabet too short", length: 4, chars: []byte("a"), wantErr: ErrCharsetLength},
		{name: "alphabet too long", length: 4, chars: make([]byte, 257), wantErr: ErrCharsetLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewLenChars(tt.length, tt.chars)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Len(t, out, tt.length)

			for _, c := range []byte(out) {
				assert.Contains(t, string(tt.chars), string(c))
			}
		})
	}
}
