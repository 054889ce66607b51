package engine

import (
	"sync"

	"kwintel/internal/classifier"
	"kwintel/internal/dictionary"
)

const maxMatchers = 1024

// matcherCache holds compiled automata per view. Views are shared per
// (snapshot, entity), so the pointer is a stable key until the snapshot is
// evicted upstream.
type matcherCache struct {
	mu       sync.Mutex
	matchers map[*dictionary.View]*classifier.Matcher
}

func newMatcherCache() *matcherCache {
	return &matcherCache{matchers: make(map[*dictionary.View]*classifier.Matcher)}
}

// get returns the matcher for view, compiling it on a miss. A full cache is
// dropped wholesale so views of evicted snapshots do not pile up.
func (c *matcherCache) get(view *dictionary.View) *classifier.Matcher {
	c.mu.Lock()
	m, ok := c.matchers[view]
	c.mu.Unlock()
	if ok {
		return m
	}

	m = classifier.NewMatcher(view)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.matchers[view]; ok {
		return cur
	}
	if len(c.matchers) >= maxMatchers {
		clear(c.matchers)
	}
	c.matchers[view] = m
	return m
}

func (c *matcherCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.matchers)
}
