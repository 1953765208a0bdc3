package nametable

import (
	"fmt"
	"sort"
	"sync"

	logging "github.com/sirupsen/logrus"

	"github.com/weft-io/weft/pkg/addr"
)

// DefaultMaxLocalPublications is the publication ceiling applied when a
// table is created with no explicit limit.
const DefaultMaxLocalPublications = 65535

// Table is the name table: a concurrent directory mapping service address
// ranges to endpoints. The table holds one serviceEntry per service type,
// found through a read-locked map lookup; all range and subscription state
// of a type is guarded by that entry's own lock. Writers take the table
// lock first and an entry lock second, never the reverse.
//
// The table is purely in-memory. After a restart it is reconstructed by
// replaying the publish events received from the distribution layer.
type Table struct {
	node      addr.NodeID
	maxLocal  uint32
	services  map[uint32]*serviceEntry
	localPubl uint32
	stopped   bool
	log       *logging.Entry

	// This mutex protects modification of the map itself, the local
	// publication counter, and the stopped flag.
	sync.RWMutex
}

// New creates an empty name table for the given local node. A
// maxLocalPublications of 0 applies DefaultMaxLocalPublications.
func New(node addr.NodeID, maxLocalPublications uint32, log *logging.Entry) *Table {
	if maxLocalPublications == 0 {
		maxLocalPublications = DefaultMaxLocalPublications
	}
	return &Table{
		node:     node,
		maxLocal: maxLocalPublications,
		services: make(map[uint32]*serviceEntry),
		log: log.WithFields(logging.Fields{
			"component": "name-table",
		}),
	}
}

// Node returns the identifier of the local node.
func (t *Table) Node() addr.NodeID {
	return t.node
}

// Publish binds the given service range to (node, port). The binding is
// rejected with no mutation when the range or scope is invalid, when it
// partially overlaps an existing range, when an identical binding already
// exists, or when a local publish would exceed the publication ceiling.
//
// Announcing the new binding to the rest of the cluster is the caller's
// responsibility, after this call returns.
func (t *Table) Publish(r addr.ServiceRange, scope addr.Scope, node addr.NodeID, port addr.Port, key uint32) (*Publication, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("publish %s: %w", r, ErrInvalidScope)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("publish %s: %w", r, ErrInvalidRange)
	}

	t.Lock()
	defer t.Unlock()

	if t.stopped {
		return nil, fmt.Errorf("publish %s: %w", r, ErrTableStopped)
	}

	local := node == t.node
	if local && t.localPubl >= t.maxLocal {
		t.log.Warnf("Publication failed, local publication limit reached (%d)", t.maxLocal)
		return nil, fmt.Errorf("publish %s: %w", r, ErrQuotaExceeded)
	}

	entry, ok := t.services[r.Type]
	if !ok {
		entry = newServiceEntry(r.Type, t.log)
		t.services[r.Type] = entry
		servicesGauge.Set(float64(len(t.services)))
	}

	entry.Lock()
	publ, err := entry.insertPublication(r, scope, node, port, key, local)
	if err != nil {
		// A rejected publish must not leave behind an entry with no
		// ranges and no subscriptions.
		if entry.empty() {
			t.evict(r.Type)
		}
		entry.Unlock()
		return nil, fmt.Errorf("publish %s: %w", r, err)
	}
	entry.Unlock()

	if local {
		t.localPubl++
		localPublicationsGauge.Set(float64(t.localPubl))
	}
	return publ, nil
}

// Withdraw removes the binding identified by (key, port, node) from the
// sub-sequence of the given type containing lower. It returns the removed
// publication, or false when no such binding is held.
//
// A missing binding is a tolerated condition: a remote publish rejected as
// an overlap conflict never entered the table, yet its later withdraw
// still arrives.
func (t *Table) Withdraw(svcType, lower uint32, node addr.NodeID, port addr.Port, key uint32) (*Publication, bool) {
	t.Lock()
	defer t.Unlock()

	entry, ok := t.services[svcType]
	if !ok {
		t.log.Warnf("Failed to withdraw unknown publication (type=%d, lower=%d, port=%d, key=%d)", svcType, lower, port, key)
		return nil, false
	}

	entry.Lock()
	publ, found := entry.removePublication(lower, node, port, key)
	if !found {
		entry.Unlock()
		t.log.Warnf("Failed to withdraw unknown publication (type=%d, lower=%d, port=%d, key=%d)", svcType, lower, port, key)
		return nil, false
	}
	if entry.empty() {
		t.evict(svcType)
	}
	entry.Unlock()

	if publ.Node == t.node {
		t.localPubl--
		localPublicationsGauge.Set(float64(t.localPubl))
	}
	return publ, true
}

// Translate resolves (svcType, instance) to a single port for directed
// delivery. destNode steers the load-distribution policy:
//
//   - 0: closest-first; prefer a local binding, else the first remote one.
//   - the local node: round-robin over local bindings only.
//   - any other node: the first binding of the full list. This path does
//     not verify the binding's owning node; the caller has already routed
//     toward destNode and only extracts a port.
//
// The chosen binding rotates to the tail of the list it came from so that
// repeated translations cycle fairly. Returns the port and owning node,
// or (0, 0) when nothing matches.
func (t *Table) Translate(svcType, instance uint32, destNode addr.NodeID) (addr.Port, addr.NodeID) {
	entry := t.findService(svcType)
	if entry == nil {
		return 0, 0
	}

	entry.Lock()
	defer entry.Unlock()

	ss := entry.findSubSequence(instance)
	if ss == nil {
		return 0, 0
	}

	var publ *Publication
	switch destNode {
	case 0:
		// Closest-first.
		if p := ss.local.head(); p != nil {
			publ = p
			ss.local.moveToTail(p)
		} else if p := ss.all.head(); p != nil {
			publ = p
			ss.all.moveToTail(p)
		}
	case t.node:
		// Round-robin among local bindings.
		if p := ss.local.head(); p != nil {
			publ = p
			ss.local.moveToTail(p)
		}
	default:
		if p := ss.all.head(); p != nil {
			publ = p
			ss.all.moveToTail(p)
		}
	}
	if publ == nil {
		return 0, 0
	}
	return publ.Port, publ.Node
}

// Lookup resolves (svcType, instance) against bindings of exactly the
// requested scope, excluding the local (excludePort, own node) binding,
// and pushes matches into dsts. When all is false the scan stops at the
// first match, which rotates to the tail for round-robin fairness. It
// returns the number of matches pushed and whether dsts is non-empty.
func (t *Table) Lookup(svcType, instance uint32, scope addr.Scope, excludePort addr.Port, all bool, dsts *DestinationSet) (int, bool) {
	count := 0

	entry := t.findService(svcType)
	if entry == nil {
		return 0, dsts.Len() > 0
	}

	entry.Lock()
	if ss := entry.findSubSequence(instance); ss != nil {
		for _, p := range ss.all.publs {
			if p.Scope != scope {
				continue
			}
			if p.Port == excludePort && p.Node == t.node {
				continue
			}
			dsts.Push(p.Node, p.Port)
			count++
			if all {
				continue
			}
			ss.all.moveToTail(p)
			break
		}
	}
	entry.Unlock()

	return count, dsts.Len() > 0
}

// MulticastLookup collects the ports of local bindings overlapping
// [lower, upper] whose scope equals the requested scope or, when exact is
// false, is broader than it.
func (t *Table) MulticastLookup(svcType, lower, upper uint32, scope addr.Scope, exact bool, dsts *DestinationSet) {
	entry := t.findService(svcType)
	if entry == nil {
		return
	}

	entry.Lock()
	for i := entry.locateSubSequence(lower); i < len(entry.subSeqs); i++ {
		ss := entry.subSeqs[i]
		if ss.lower > upper {
			break
		}
		for _, p := range ss.local.publs {
			if p.Scope == scope || (!exact && p.Scope.Broader(scope)) {
				dsts.Push(0, p.Port)
			}
		}
	}
	entry.Unlock()
}

// LookupDestNodes accumulates the distinct nodes owning any binding that
// overlaps [lower, upper], to compute the fan-out of a multicast send.
func (t *Table) LookupDestNodes(svcType, lower, upper uint32, nodes NodeSet) {
	entry := t.findService(svcType)
	if entry == nil {
		return
	}

	entry.Lock()
	for i := entry.locateSubSequence(lower); i < len(entry.subSeqs); i++ {
		ss := entry.subSeqs[i]
		if ss.lower > upper {
			break
		}
		for _, p := range ss.all.publs {
			nodes.Add(p.Node)
		}
	}
	entry.Unlock()
}

// GroupBuilder receives the membership of a communication group.
type GroupBuilder interface {
	AddMember(node addr.NodeID, port addr.Port, instance uint32)
}

// BuildGroup reports every binding of the given type and scope to the
// group builder.
func (t *Table) BuildGroup(svcType uint32, scope addr.Scope, grp GroupBuilder) {
	entry := t.findService(svcType)
	if entry == nil {
		return
	}

	entry.Lock()
	for _, ss := range entry.subSeqs {
		for _, p := range ss.all.publs {
			if p.Scope != scope {
				continue
			}
			grp.AddMember(p.Node, p.Port, p.Range.Lower)
		}
	}
	entry.Unlock()
}

// Subscribe attaches the subscription to its service type, creating the
// type's entry if needed. Unless the subscription requests no initial
// status, the bindings currently overlapping its filter are replayed
// synchronously as Published events before Subscribe returns.
func (t *Table) Subscribe(sub *Subscription) error {
	t.Lock()
	defer t.Unlock()

	if t.stopped {
		return fmt.Errorf("subscribe %s: %w", sub.Range, ErrTableStopped)
	}

	entry, ok := t.services[sub.Range.Type]
	if !ok {
		entry = newServiceEntry(sub.Range.Type, t.log)
		t.services[sub.Range.Type] = entry
		servicesGauge.Set(float64(len(t.services)))
	}

	entry.Lock()
	entry.subscribe(sub)
	entry.Unlock()
	return nil
}

// Unsubscribe detaches the subscription. An entry left with no ranges and
// no subscriptions is evicted from the table.
func (t *Table) Unsubscribe(sub *Subscription) {
	t.Lock()
	defer t.Unlock()

	entry, ok := t.services[sub.Range.Type]
	if !ok {
		return
	}

	entry.Lock()
	entry.unsubscribe(sub)
	if entry.empty() {
		t.evict(sub.Range.Type)
	}
	entry.Unlock()
}

// Walk visits a snapshot of every binding in the table, ordered by type
// and range, until visit returns false. The snapshot is taken per service
// type; visit runs outside all table locks.
func (t *Table) Walk(visit func(p Publication) bool) {
	t.RLock()
	types := make([]uint32, 0, len(t.services))
	for svcType := range t.services {
		types = append(types, svcType)
	}
	t.RUnlock()
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, svcType := range types {
		entry := t.findService(svcType)
		if entry == nil {
			continue
		}

		var publs []Publication
		entry.Lock()
		for _, ss := range entry.subSeqs {
			for _, p := range ss.all.publs {
				publs = append(publs, *p)
			}
		}
		entry.Unlock()

		for _, p := range publs {
			if !visit(p) {
				return
			}
		}
	}
}

// Stop purges every remaining publication and subscription and marks the
// table stopped. Teardown emits no subscription events. Publishes and
// subscribes after Stop fail with ErrTableStopped; lookups report no
// match and withdraws report not-found.
func (t *Table) Stop() {
	t.Lock()
	defer t.Unlock()

	if t.stopped {
		return
	}
	t.stopped = true

	for svcType, entry := range t.services {
		entry.Lock()
		entry.purge()
		t.evict(svcType)
		entry.Unlock()
	}
	t.localPubl = 0
	localPublicationsGauge.Set(0)
	t.log.Debug("name table stopped")
}

// Stopped reports whether Stop has been called.
func (t *Table) Stopped() bool {
	t.RLock()
	defer t.RUnlock()
	return t.stopped
}

// findService resolves the entry for a service type under the read lock
// only; the caller locks the entry itself before touching its state.
func (t *Table) findService(svcType uint32) *serviceEntry {
	t.RLock()
	defer t.RUnlock()
	return t.services[svcType]
}

// evict removes an entry from the index. Callers hold the table lock and
// the entry lock.
func (t *Table) evict(svcType uint32) {
	delete(t.services, svcType)
	serviceVecs.unregister(serviceLabels(svcType))
	servicesGauge.Set(float64(len(t.services)))
}
