package service

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceGenerator_Format(t *testing.T) {
	g := NewReferenceGenerator(AlphabetBase36, rand.NewSource(1))

	for i := 0; i < 200; i++ {
		assert.Regexp(t, referencePattern, g.Next())
	}
}

func TestReferenceGenerator_UnambiguousAlphabet(t *testing.T) {
	g := NewReferenceGenerator(AlphabetUnambiguous, rand.NewSource(42))

	for i := 0; i < 500; i++ {
		code := strings.Split(g.Next(), "-")[1]
		assert.NotContainsf(t, code, "O", "reference %s", code)
		assert.NotContainsf(t, code, "I", "reference %s", code)
		assert.NotContainsf(t, code, "0", "reference %s", code)
		assert.NotContainsf(t, code, "1", "reference %s", code)
	}
}

func TestReferenceGenerator_Deterministic(t *testing.T) {
	a := NewReferenceGenerator(AlphabetBase36, rand.NewSource(9))
	b := NewReferenceGenerator(AlphabetBase36, rand.NewSource(9))

	assert.Equal(t, a.Next(), b.Next())
}
