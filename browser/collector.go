package browser

import "sync"

// Collector is an append-only, deduplicating set of candidate URLs scoped
// to one resolution task. Observer hooks feed it; it is discarded with the
// task, never shared between matches.
type Collector struct {
	mu   sync.Mutex
	seen map[string]bool
	urls []string
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

// Add records a URL, preserving first-seen order.
func (c *Collector) Add(u string) {
	if u == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen[u] {
		return
	}
	c.seen[u] = true
	c.urls = append(c.urls, u)
}

// URLs returns a copy of everything collected so far, in first-seen order.
func (c *Collector) URLs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.urls))
	copy(out, c.urls)
	return out
}

// Len returns the number of distinct URLs collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}

// swappableCollector lets a session's long-lived CDP listeners write into
// whichever task-scoped collector is currently attached. chromedp listener
// registrations last for the context lifetime, so the swap point is what
// gives collectors task scope.
type swappableCollector struct {
	mu      sync.Mutex
	current *Collector
}

func (s *swappableCollector) set(c *Collector) {
	s.mu.Lock()
	s.current = c
	s.mu.Unlock()
}

func (s *swappableCollector) add(u string) {
	s.mu.Lock()
	c := s.current
	s.mu.Unlock()
	if c != nil {
		c.Add(u)
	}
}
