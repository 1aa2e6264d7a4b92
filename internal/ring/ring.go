// Package ring implements the bounded, insertion-ordered demand history and
// the per-node aggregation the scheduler snapshots at the start of a cycle.
package ring

import "sort"

// Record is one immutable demand observation, decoded off the /out link.
type Record struct {
	Timestamp   uint32 // milliseconds, as decoded off the wire
	NodeID      string
	DemandAmps  float64
	Fulfillment float64 // percent, [0,100]
}

// Ring is a fixed-capacity circular buffer of Records. It is not
// goroutine-safe; callers (the scheduler) are expected to guard it with
// their own mutex, matching the single-mutex concurrency model.
type Ring struct {
	buf      []Record
	next     int // write cursor
	count    int // number of valid entries, <= len(buf)
	inserted uint64
}

// New constructs a Ring with the given capacity. Capacity must be >= 1.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Record, capacity)}
}

// Push appends a record, evicting the oldest entry (FIFO) if the ring is
// full.
func (r *Ring) Push(rec Record) {
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	r.inserted++
}

// Len returns the number of records currently held.
func (r *Ring) Len() int {
	return r.count
}

// Inserted returns the total number of records ever pushed, including those
// already evicted.
func (r *Ring) Inserted() uint64 {
	return r.inserted
}

// Snapshot returns all held records, oldest first, in insertion order. The
// returned slice is a copy and safe for the caller to retain.
func (r *Ring) Snapshot() []Record {
	out := make([]Record, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// NodeState is the per-cycle aggregated view of one node's recent history.
type NodeState struct {
	NodeID           string
	History          []Record // sorted by Timestamp, ascending
	LatestDemand     float64
	LatestFulfillment float64
}

// Aggregate groups a ring snapshot by node id, sorting each node's history
// by timestamp and recording its most recent demand/fulfillment. The
// returned map is a fresh snapshot; callers must not mutate the ring
// concurrently with its use.
func Aggregate(records []Record) map[string]*NodeState {
	byNode := make(map[string][]Record)
	for _, rec := range records {
		byNode[rec.NodeID] = append(byNode[rec.NodeID], rec)
	}

	out := make(map[string]*NodeState, len(byNode))
	for id, hist := range byNode {
		sort.Slice(hist, func(i, j int) bool { return hist[i].Timestamp < hist[j].Timestamp })
		latest := hist[len(hist)-1]
		out[id] = &NodeState{
			NodeID:            id,
			History:           hist,
			LatestDemand:      latest.DemandAmps,
			LatestFulfillment: latest.Fulfillment,
		}
	}
	return out
}
