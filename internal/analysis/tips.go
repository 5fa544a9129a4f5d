package analysis

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Tips are the saving tips shown on the manage page.
var Tips = []string{
	"Cut down on eating out – cook at home more often.",
	"Cancel unused subscriptions.",
	"Use public transport instead of cabs.",
	"Track daily expenses to spot wasteful spending.",
	"Save at least 20% of income before spending.",
}

// TipPicker draws one tip uniformly at random per call. It is safe for
// concurrent use.
type TipPicker struct {
	mu   sync.Mutex
	rng  *rand.Rand
	tips []string
}

// NewTipPicker returns a picker over Tips. A nil rng is replaced by a
// time-seeded source; tests pass a fixed seed.
func NewTipPicker(rng *rand.Rand) *TipPicker {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &TipPicker{rng: rng, tips: Tips}
}

// Pick returns a random tip.
func (p *TipPicker) Pick() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tips[p.rng.IntN(len(p.tips))]
}
