package stats

import "sync"

// Summary holds the counters for one migration run.
type Summary struct {
	Mailboxes int
	Scanned   int
	Skipped   int
	Missing   int
	Appended  int
	Archived  int
	DryRun    int
	Errors    int
	LastError error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"mailboxes", s.Mailboxes,
		"scanned", s.Scanned,
		"skipped", s.Skipped,
		"missing", s.Missing,
		"appended", s.Appended,
		"archived", s.Archived,
		"dryRun", s.DryRun,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector accumulates migration counters. The pipeline is single-threaded,
// but the mutex keeps Snapshot safe to call from anywhere.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Mailbox() { c.add(func(s *Summary) { s.Mailboxes++ }) }

// Scanned records the number of messages found by the search for one mailbox.
func (c *Collector) Scanned(n int) { c.add(func(s *Summary) { s.Scanned += n }) }

func (c *Collector) Skipped()  { c.add(func(s *Summary) { s.Skipped++ }) }
func (c *Collector) Missing()  { c.add(func(s *Summary) { s.Missing++ }) }
func (c *Collector) Appended() { c.add(func(s *Summary) { s.Appended++ }) }
func (c *Collector) Archived() { c.add(func(s *Summary) { s.Archived++ }) }
func (c *Collector) DryRun()   { c.add(func(s *Summary) { s.DryRun++ }) }

func (c *Collector) Error(err error) {
	c.add(func(s *Summary) {
		s.Errors++
		if err != nil {
			s.LastError = err
		}
	})
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

func (c *Collector) add(fn func(*Summary)) {
	c.mu.Lock()
	fn(&c.summary)
	c.mu.Unlock()
}
