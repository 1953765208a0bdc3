package nametable

import (
	"sync"

	logging "github.com/sirupsen/logrus"

	"github.com/weft-io/weft/pkg/addr"
)

type (
	// subSequence holds all publications bound to one exact instance
	// range of a service type. Within a serviceEntry, sub-sequences are
	// strictly sorted by lower bound and pairwise non-overlapping.
	//
	// The local list is a filtered view over the same publications as
	// all: it holds exactly the entries owned by the local node, and is
	// maintained incrementally on insert and remove.
	subSequence struct {
		lower uint32
		upper uint32
		all   publicationList
		local publicationList
	}

	// serviceEntry holds every sub-sequence and subscription for one
	// service type. All access to the sub-sequence array and the
	// subscription list is explicitly synchronized by the embedded mutex.
	serviceEntry struct {
		svcType       uint32
		subSeqs       []*subSequence
		subscriptions []*Subscription
		publications  int
		log           *logging.Entry
		metrics       serviceMetrics
		sync.Mutex
	}
)

func newServiceEntry(svcType uint32, log *logging.Entry) *serviceEntry {
	return &serviceEntry{
		svcType: svcType,
		subSeqs: make([]*subSequence, 0, 1),
		log: log.WithFields(logging.Fields{
			"component": "service-entry",
			"type":      svcType,
		}),
		metrics: serviceVecs.newServiceMetrics(serviceLabels(svcType)),
	}
}

// Note that serviceEntry methods are NOT thread-safe. Hold the entry's
// mutex before calling them.

// findSubSequence returns the sub-sequence whose range contains the given
// instance, or nil. Lookup-critical, so it binary-searches the sorted
// sub-sequence array.
func (se *serviceEntry) findSubSequence(instance uint32) *subSequence {
	low := 0
	high := len(se.subSeqs) - 1

	for low <= high {
		mid := (low + high) / 2
		ss := se.subSeqs[mid]
		switch {
		case instance < ss.lower:
			high = mid - 1
		case instance > ss.upper:
			low = mid + 1
		default:
			return ss
		}
	}
	return nil
}

// locateSubSequence returns the index of the sub-sequence containing the
// given instance; if none contains it, returns the position where a new
// sub-sequence for it would be inserted. Also used as the start point for
// range scans.
func (se *serviceEntry) locateSubSequence(instance uint32) int {
	low := 0
	high := len(se.subSeqs) - 1

	for low <= high {
		mid := (low + high) / 2
		ss := se.subSeqs[mid]
		switch {
		case instance < ss.lower:
			high = mid - 1
		case instance > ss.upper:
			low = mid + 1
		default:
			return mid
		}
	}
	return low
}

// insertPublication adds a binding for the given range. A range whose
// lower bound lands in an existing sub-sequence must match that
// sub-sequence exactly; a new range must not reach into the next one.
func (se *serviceEntry) insertPublication(r addr.ServiceRange, scope addr.Scope, node addr.NodeID, port addr.Port, key uint32, local bool) (*Publication, error) {
	createdSubSeq := false

	ss := se.findSubSequence(r.Lower)
	if ss != nil {
		// Lower end overlaps an existing entry, so the range must be
		// an exact match.
		if ss.lower != r.Lower || ss.upper != r.Upper {
			return nil, ErrOverlap
		}

		for _, p := range ss.all.publs {
			if p.matches(node, port, key) {
				return nil, ErrDuplicate
			}
		}
	} else {
		pos := se.locateSubSequence(r.Lower)

		// Fail if the upper end reaches into the next entry.
		if pos < len(se.subSeqs) && r.Upper >= se.subSeqs[pos].lower {
			return nil, ErrOverlap
		}

		ss = &subSequence{lower: r.Lower, upper: r.Upper}
		se.subSeqs = append(se.subSeqs, nil)
		copy(se.subSeqs[pos+1:], se.subSeqs[pos:])
		se.subSeqs[pos] = ss
		createdSubSeq = true
	}

	publ := &Publication{Range: r, Scope: scope, Node: node, Port: port, Key: key}
	ss.all.add(publ)
	if local {
		ss.local.add(publ)
	}
	se.publications++

	se.log.Debugf("inserted publication %s", publ)
	se.metrics.setPublications(se.publications)
	se.metrics.setSubSequences(len(se.subSeqs))
	se.metrics.incUpdates()

	se.notifyPublished(publ, createdSubSeq)
	return publ, nil
}

// removePublication withdraws the binding identified by (key, port, node)
// from the sub-sequence containing the given instance. When the last
// publication of a sub-sequence is withdrawn, the sub-sequence is
// compacted out of the array.
func (se *serviceEntry) removePublication(instance uint32, node addr.NodeID, port addr.Port, key uint32) (*Publication, bool) {
	ss := se.findSubSequence(instance)
	if ss == nil {
		return nil, false
	}

	var publ *Publication
	for _, p := range ss.all.publs {
		if p.matches(node, port, key) {
			publ = p
			break
		}
	}
	if publ == nil {
		return nil, false
	}

	ss.all.remove(publ)
	ss.local.remove(publ)
	se.publications--

	removedSubSeq := false
	if ss.all.empty() {
		pos := se.locateSubSequence(ss.lower)
		se.subSeqs = append(se.subSeqs[:pos], se.subSeqs[pos+1:]...)
		removedSubSeq = true
	}

	se.log.Debugf("removed publication %s", publ)
	se.metrics.setPublications(se.publications)
	se.metrics.setSubSequences(len(se.subSeqs))
	se.metrics.incUpdates()

	se.notifyWithdrawn(publ, removedSubSeq)
	return publ, true
}

// subscribe attaches a subscription and, unless it opts out, replays the
// bindings currently overlapping its filter. Only the first event emitted
// per sub-sequence carries the RangeChange mark.
func (se *serviceEntry) subscribe(sub *Subscription) {
	se.subscriptions = append(se.subscriptions, sub)
	se.metrics.setSubscribers(len(se.subscriptions))

	if sub.NoStatus {
		return
	}

	for _, ss := range se.subSeqs {
		lower, upper, ok := sub.Range.Intersection(ss.lower, ss.upper)
		if !ok {
			continue
		}
		mustReport := true
		for _, p := range ss.all.publs {
			sub.Listener.Published(Event{
				Lower:       lower,
				Upper:       upper,
				Node:        p.Node,
				Port:        p.Port,
				Scope:       p.Scope,
				RangeChange: mustReport,
			})
			mustReport = false
		}
	}
}

func (se *serviceEntry) unsubscribe(sub *Subscription) {
	for i, s := range se.subscriptions {
		if s == sub {
			n := len(se.subscriptions)
			se.subscriptions[i] = se.subscriptions[n-1]
			se.subscriptions[n-1] = nil
			se.subscriptions = se.subscriptions[:n-1]
			break
		}
	}
	se.metrics.setSubscribers(len(se.subscriptions))
}

// empty reports whether the entry holds neither ranges nor subscriptions
// and must be evicted from the table index.
func (se *serviceEntry) empty() bool {
	return len(se.subSeqs) == 0 && len(se.subscriptions) == 0
}

// purge drops every binding and subscription without emitting events.
// Teardown is silent.
func (se *serviceEntry) purge() {
	se.subSeqs = nil
	se.subscriptions = nil
	se.publications = 0
}

func (se *serviceEntry) notifyPublished(p *Publication, rangeChange bool) {
	for _, sub := range se.subscriptions {
		lower, upper, ok := sub.Range.Intersection(p.Range.Lower, p.Range.Upper)
		if !ok {
			continue
		}
		sub.Listener.Published(Event{
			Lower:       lower,
			Upper:       upper,
			Node:        p.Node,
			Port:        p.Port,
			Scope:       p.Scope,
			RangeChange: rangeChange,
		})
	}
}

func (se *serviceEntry) notifyWithdrawn(p *Publication, rangeChange bool) {
	for _, sub := range se.subscriptions {
		lower, upper, ok := sub.Range.Intersection(p.Range.Lower, p.Range.Upper)
		if !ok {
			continue
		}
		sub.Listener.Withdrawn(Event{
			Lower:       lower,
			Upper:       upper,
			Node:        p.Node,
			Port:        p.Port,
			Scope:       p.Scope,
			RangeChange: rangeChange,
		})
	}
}
