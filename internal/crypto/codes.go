package crypto

import (
	"crypto/rand"
	"fmt"
	"io"
)

const base36 = "abcdefghijklmnopqrstuvwxyz0123456789"

// CodeGenerator produces short base36 codes and sids. The random
// source is injectable so tests can be deterministic; the zero source
// means crypto/rand.
type CodeGenerator struct {
	rand io.Reader
}

func NewCodeGenerator(r io.Reader) *CodeGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &CodeGenerator{rand: r}
}

// Code returns n characters drawn from [a-z0-9]. Each random byte is
// reduced modulo 36, so no rejection loop is needed.
func (g *CodeGenerator) Code(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("error reading random bytes: %v", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = base36[int(b)%len(base36)]
	}
	return string(out), nil
}
