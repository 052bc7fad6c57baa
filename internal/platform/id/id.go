package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Generator creates opaque identifiers for launch plans.
type Generator interface {
	New() string
}

type RandomHex struct{}

func (RandomHex) New() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

type Static string

func (s Static) New() string {
	return string(s)
}
