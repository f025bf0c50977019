// Package invite implements group invite codes: generation, expiration tracking and the
// protocol that turns a user-entered code into a group membership.
package invite

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeAlphabet describes one kind of invite code.
type CodeAlphabet struct {
	Name    string
	Length  int
	Charset string
}

var (
	// ShortCode is issued when a group is created. It leaves out 0, O, 1 and I.
	ShortCode = CodeAlphabet{Name: "short", Length: 6, Charset: "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"}

	// JoinCode is issued on regeneration and is the only shape the join flow accepts.
	JoinCode = CodeAlphabet{Name: "join", Length: 8, Charset: "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"}
)

// Generate returns a random code of a.Length characters drawn uniformly from a.Charset.
// Codes are not checked for uniqueness against other groups.
func Generate(a CodeAlphabet) (string, error) {
	if a.Length <= 0 || a.Charset == "" {
		return "", fmt.Errorf("invalid code alphabet %q", a.Name)
	}

	size := big.NewInt(int64(len(a.Charset)))
	code := make([]byte, a.Length)
	for i := range code {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		code[i] = a.Charset[n.Int64()]
	}
	return string(code), nil
}
