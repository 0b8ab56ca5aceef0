package ami_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpfworks/asterisk-ami/pkg/ami"
)

func TestIdGeneratorTokenShape(t *testing.T) {
	g := ami.NewIdGenerator("ami")
	tok := g.Next()
	parts := strings.Split(tok, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, "ami", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Equal(t, "1", parts[2])
	assert.Equal(t, "1", parts[3])
}

func TestIdGeneratorNeverRepeatsWithinGenerator(t *testing.T) {
	g := ami.NewIdGenerator("ami")
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := g.Next()
		require.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestIdGeneratorConcurrentUseStaysUnique(t *testing.T) {
	g := ami.NewIdGenerator("ami")
	const n = 200
	tokens := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens <- g.Next()
		}()
	}
	wg.Wait()
	close(tokens)

	seen := make(map[string]bool)
	for tok := range tokens {
		require.False(t, seen[tok])
		seen[tok] = true
	}
	assert.Len(t, seen, n)
}

func TestIdGeneratorDistinctInstancesDiffer(t *testing.T) {
	a := ami.NewIdGenerator("ami")
	b := ami.NewIdGenerator("ami")
	assert.NotEqual(t, a.Next(), b.Next())
}
