package alias

import (
	"math/rand"
	"sync"
)

var defaultAdjectives = []string{
	"Amber", "Brisk", "Clever", "Daring", "Eager", "Fuzzy",
	"Gentle", "Hidden", "Jolly", "Keen", "Lively", "Mellow",
	"Nimble", "Quiet", "Swift", "Witty",
}

var defaultNouns = []string{
	"Badger", "Crane", "Dolphin", "Falcon", "Heron", "Lynx",
	"Marmot", "Otter", "Panda", "Puffin", "Raven", "Sparrow",
	"Tapir", "Walrus", "Wombat", "Yak",
}

// Pool generates candidate pseudonyms as adjective+noun combinations.
// The random source is injected so uniqueness tests are reproducible.
type Pool struct {
	mu         sync.Mutex
	adjectives []string
	nouns      []string
	rng        *rand.Rand
}

// NewPool builds a pool over the given word lists with a seeded source.
func NewPool(adjectives, nouns []string, seed int64) *Pool {
	return &Pool{
		adjectives: adjectives,
		nouns:      nouns,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// DefaultPool returns the stock word lists seeded with the given value.
func DefaultPool(seed int64) *Pool {
	return NewPool(defaultAdjectives, defaultNouns, seed)
}

// Size returns the number of distinct names the pool can produce.
func (p *Pool) Size() int {
	return len(p.adjectives) * len(p.nouns)
}

// Candidates returns every name in the pool in a freshly shuffled order.
// Trying candidates in this order guarantees exhaustion is detected after
// exactly Size() failed inserts.
func (p *Pool) Candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, p.Size())
	for _, adj := range p.adjectives {
		for _, noun := range p.nouns {
			names = append(names, adj+noun)
		}
	}
	p.rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})
	return names
}
