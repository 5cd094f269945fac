// Package uniuri generates random strings from crypto/rand over a fixed alphabet
// without modulo bias. Session tokens use the lowercase hex alphabet.
package uniuri
