// Package queue holds completed reports awaiting moderator review.
package queue

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/modwatch/internal/report"
)

// Entry is a read-only listing row
type Entry struct {
	Index    int
	ID       string
	Severity int
	Date     time.Time
}

// String renders the listing line of an entry
func (e Entry) String() string {
	return fmt.Sprintf("(#%d) -- ID: %s, Sev: %d, Date: %s", e.Index, e.ID, e.Severity, e.Date.Format(report.DateLayout))
}

type item struct {
	report *report.Report
	seq    uint64
}

// Queue orders completed reports by severity, then submission time, both
// descending. Equal keys keep insertion order.
type Queue struct {
	mu    sync.Mutex
	items []item
	seq   uint64
}

// New creates an empty queue
func New() *Queue {
	return &Queue{}
}

// Push adds a completed report. Incomplete reports are rejected.
func (q *Queue) Push(r *report.Report) error {
	if !r.Complete() {
		return fmt.Errorf("queue report %s in state %s: only complete reports are queued", r.ID(), r.State())
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	it := item{report: r, seq: q.seq}
	i := sort.Search(len(q.items), func(i int) bool { return before(it, q.items[i]) })
	q.items = append(q.items, item{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = it
	return nil
}

// PopHighest removes and returns the highest-priority report
func (q *Queue) PopHighest() (*report.Report, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	r := q.items[0].report
	q.items = q.items[1:]
	return r, true
}

// Remove removes and returns the report with id
func (q *Queue) Remove(id string) (*report.Report, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.items {
		if it.report.ID() == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return it.report, true
		}
	}
	return nil, false
}

// Len returns the number of queued reports
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// List enumerates the queue in priority order
func (q *Queue) List() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.items))
	for i, it := range q.items {
		out[i] = Entry{
			Index:    i,
			ID:       it.report.ID(),
			Severity: it.report.Severity(),
			Date:     it.report.SubmittedAt(),
		}
	}
	return out
}

// Format renders List one line per entry
func (q *Queue) Format() string {
	entries := q.List()
	if len(entries) == 0 {
		return "There are no reports awaiting review."
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// before is the strict priority order: severity desc, submission time
// desc, then insertion order.
func before(a, b item) bool {
	as, bs := a.report.Severity(), b.report.Severity()
	if as != bs {
		return as > bs
	}
	at, bt := a.report.SubmittedAt(), b.report.SubmittedAt()
	if !at.Equal(bt) {
		return at.After(bt)
	}
	return a.seq < b.seq
}
