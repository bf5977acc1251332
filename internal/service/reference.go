package service

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"
)

const (
	referencePrefix = "CMD"
	referenceLength = 6
)

// ReferenceGenerator builds pickup references such as CMD-7KQ2XA-4821
type ReferenceGenerator struct {
	alphabet string
	mu       sync.Mutex
	rnd      *rand.Rand
}

// NewReferenceGenerator creates a generator drawing from alphabet
func NewReferenceGenerator(alphabet string, src rand.Source) *ReferenceGenerator {
	if alphabet == "" {
		alphabet = AlphabetBase36
	}
	return &ReferenceGenerator{
		alphabet: alphabet,
		rnd:      rand.New(src),
	}
}

// Next returns a new reference. Uniqueness is checked by the caller.
func (g *ReferenceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.WriteString(referencePrefix)
	b.WriteByte('-')
	for i := 0; i < referenceLength; i++ {
		b.WriteByte(g.alphabet[g.rnd.Intn(len(g.alphabet))])
	}
	b.WriteByte('-')
	b.WriteString(strconv.Itoa(1000 + g.rnd.Intn(9000)))
	return b.String()
}
