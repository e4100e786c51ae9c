// Package perf keeps recent request and query timings in memory for the
// admin system page.
package perf

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the number of timings kept when no size is given.
const DefaultRingSize = 10000

// EntryKind tells request timings from query timings.
type EntryKind uint8

const (
	KindRequest EntryKind = iota
	KindQuery
)

// Entry is one timing.
type Entry struct {
	Kind       EntryKind
	Path       string // route label for requests, "VERB table" for queries
	StatusCode int    // 0 for queries
	DurationMs float64
	Timestamp  time.Time
}

// Collector holds the most recent timings in a ring. Recording never
// allocates; aggregation happens in Snapshot.
type Collector struct {
	mu    sync.Mutex
	ring  []Entry
	next  int
	total atomic.Int64
}

// NewCollector returns a collector keeping the last size timings.
// PRE: size > 0, otherwise DefaultRingSize is used
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{ring: make([]Entry, size)}
}

// Record stores e, overwriting the oldest timing once the ring is full.
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.ring[c.next] = e
	c.next = (c.next + 1) % len(c.ring)
	c.mu.Unlock()
	c.total.Add(1)
}

// TotalRecorded counts every timing recorded since start, kept or not.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// PathStat is the timing of one route or one query label.
type PathStat struct {
	Path    string
	Count   int
	AvgMs   float64
	MaxMs   float64
	TotalMs float64
}

// Snapshot summarizes the timings of a window.
type Snapshot struct {
	Requests       int // requests in the window
	Queries        int // queries in the window
	ServerErrors   int // requests answered 5xx
	RequestP50Ms   float64
	RequestP95Ms   float64
	RequestP99Ms   float64
	QueryP95Ms     float64
	SlowestPaths   []PathStat
	SlowestQueries []PathStat
}

// series accumulates the timings of one kind.
type series struct {
	durations []float64
	byPath    map[string]*PathStat
}

func (s *series) add(e Entry) {
	s.durations = append(s.durations, e.DurationMs)
	if s.byPath == nil {
		s.byPath = make(map[string]*PathStat)
	}
	st, ok := s.byPath[e.Path]
	if !ok {
		st = &PathStat{Path: e.Path}
		s.byPath[e.Path] = st
	}
	st.Count++
	st.TotalMs += e.DurationMs
	st.MaxMs = max(st.MaxMs, e.DurationMs)
}

// slowest returns up to n stats ordered by average duration, slowest first.
func (s *series) slowest(n int) []PathStat {
	out := make([]PathStat, 0, len(s.byPath))
	for _, st := range s.byPath {
		st.AvgMs = st.TotalMs / float64(st.Count)
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgMs != out[j].AvgMs {
			return out[i].AvgMs > out[j].AvgMs
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Snapshot aggregates the timings recorded at or after since, with the topN
// slowest routes and queries. It sorts, so call it per page view only.
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	kept := make([]Entry, 0, len(c.ring))
	for _, e := range c.ring {
		if !e.Timestamp.IsZero() && !e.Timestamp.Before(since) {
			kept = append(kept, e)
		}
	}
	c.mu.Unlock()

	var requests, queries series
	snap := Snapshot{}
	for _, e := range kept {
		if e.Kind == KindQuery {
			queries.add(e)
			continue
		}
		requests.add(e)
		if e.StatusCode >= 500 {
			snap.ServerErrors++
		}
	}

	snap.Requests = len(requests.durations)
	snap.Queries = len(queries.durations)
	snap.SlowestPaths = requests.slowest(topN)
	snap.SlowestQueries = queries.slowest(topN)

	sort.Float64s(requests.durations)
	sort.Float64s(queries.durations)
	snap.RequestP50Ms = percentile(requests.durations, 50)
	snap.RequestP95Ms = percentile(requests.durations, 95)
	snap.RequestP99Ms = percentile(requests.durations, 99)
	snap.QueryP95Ms = percentile(queries.durations, 95)
	return snap
}

// percentile interpolates the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
