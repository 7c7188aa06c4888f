// Package roundid generates identifiers for blackjack rounds: UUIDv7 values
// written as 26 characters of Crockford base32, so ids sort by creation time.
package roundid

import (
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/quartz"
)

const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length is the size of an encoded round id.
const Length = 26

// RandSource supplies random bytes. *math/rand/v2.Rand satisfies it for
// reproducible ids in tests.
type RandSource interface {
	IntN(n int) int
}

// Generator creates round ids. It is safe for concurrent use.
type Generator struct {
	clock quartz.Clock
	mu    sync.Mutex
	rnd   RandSource
}

// NewGenerator returns a generator reading time from clock. A nil rnd uses
// crypto/rand.
func NewGenerator(clock quartz.Clock, rnd RandSource) *Generator {
	return &Generator{clock: clock, rnd: rnd}
}

// New returns a fresh round id
func (g *Generator) New() string {
	var uuid [16]byte

	ms := g.clock.Now().UnixMilli()
	for i := 0; i < 6; i++ {
		uuid[i] = byte(ms >> (40 - 8*i))
	}

	if g.rnd != nil {
		g.mu.Lock()
		for i := 6; i < 16; i++ {
			uuid[i] = byte(g.rnd.IntN(256))
		}
		g.mu.Unlock()
	} else if _, err := rand.Read(uuid[6:]); err != nil {
		panic("roundid: crypto/rand failed: " + err.Error())
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x70 // version 7
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // RFC 4122 variant

	return encode(uuid)
}

// encode writes the 128 bits as 130 bits (two leading zero bits) in groups of five.
func encode(data [16]byte) string {
	bit := func(j int) byte {
		if j < 2 {
			return 0
		}
		j -= 2
		return (data[j/8] >> (7 - j%8)) & 1
	}

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		var v byte
		for k := 0; k < 5; k++ {
			v = v<<1 | bit(i*5+k)
		}
		b.WriteByte(alphabet[v])
	}
	return b.String()
}

// Validate checks that id is a well-formed round id.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("round id must be %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("round id first character must be 0-7, got %c", id[0])
	}
	for i := 0; i < len(id); i++ {
		if !strings.ContainsRune(alphabet, rune(id[i])) {
			return fmt.Errorf("invalid character %c at position %d", id[i], i)
		}
	}
	return nil
}
