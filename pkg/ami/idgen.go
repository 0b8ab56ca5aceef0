package ami

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IdGenerator produces unique, per-client action identifiers of the
// form "<prefix>/<uid>/<hi>/<lo>" where uid is a random 128-bit value
// chosen once per generator instance via google/uuid's canonical
// string form, and hi/lo split an ever-increasing counter into two
// bounded components ("counter/10000 + 1", "counter%10000 + 1").
type IdGenerator struct {
	prefix  string
	uid     string
	counter uint64
}

// NewIdGenerator returns a generator unique within the process: the
// uid component is a fresh random UUID, so even two generators with
// the same prefix never collide.
func NewIdGenerator(prefix string) *IdGenerator {
	return &IdGenerator{
		prefix: prefix,
		uid:    uuid.New().String(),
	}
}

// Next returns the next token for this generator. Safe for concurrent
// use; the counter is advanced atomically so a Submit racing a
// Scheduler tick never reuses a value.
func (g *IdGenerator) Next() string {
	n := atomic.AddUint64(&g.counter, 1) - 1
	hi := n/10000 + 1
	lo := n%10000 + 1
	return fmt.Sprintf("%s/%s/%d/%d", g.prefix, g.uid, hi, lo)
}
