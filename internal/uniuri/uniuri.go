package uniuri

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"
)

const (
	// TokenLen is the length of a session token: 64 hex characters carry 256 bits.
	TokenLen = 64

	// maxBufLen is the maximum length of a temporary buffer for random bytes.
	maxBufLen = 2048

	// minRegenBufLen is the minimum refill size after a short first read.
	minRegenBufLen = 16

	maxByteValue = 255
	byteRange    = 256
)

var (
	// HexChars is the lowercase hex alphabet.
	HexChars = []byte("0123456789abcdef") //nolint:gochecknoglobals

	// StdChars is the alphanumeric alphabet.
	StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789") //nolint:gochecknoglobals

	// ErrCharsetLength is returned for alphabets shorter than 2 or longer than 256.
	ErrCharsetLength = errors.New("uniuri: charset length must be between 2 and 256")
)

// Token returns a new session token of TokenLen lowercase hex characters.
func Token() (string, error) {
	return NewLenChars(TokenLen, HexChars)
}

// estimatedBufLen returns the number of random bytes to request when byte
// values above maxByte are rejected.
func estimatedBufLen(need, maxByte int) int {
	return int(math.Ceil(float64(need) * (maxByteValue / float64(maxByte))))
}

// NewLenChars returns a random string of length characters drawn from chars.
func NewLenChars(length int, chars []byte) (string, error) {
	if length <= 0 {
		return "", nil
	}

	clen := len(chars)
	if clen < 2 || clen > byteRange {
		return "", ErrCharsetLength
	}

	maxRb := maxByteValue - (byteRange % clen)
	bufLen := min(max(estimatedBufLen(length, maxRb), length), maxBufLen)

	buf := make([]byte, bufLen)
	out := make([]byte, 0, length)

	for {
		if _, err := rand.Read(buf[:bufLen]); err != nil {
			return "", fmt.Errorf("uniuri: read random bytes: %w", err)
		}

		for _, rb := range buf[:bufLen] {
			// values above maxRb would bias the modulo
			if int(rb) > maxRb {
				continue
			}

			out = append(out, chars[int(rb)%clen])
			if len(out) == length {
				return string(out), nil
			}
		}

		bufLen = estimatedBufLen(length-len(out), maxRb)
		if bufLen < minRegenBufLen && minRegenBufLen < cap(buf) {
			bufLen = minRegenBufLen
		}

		bufLen = min(bufLen, maxBufLen)
	}
}
