package nametable

import (
	"github.com/weft-io/weft/pkg/addr"
)

// Destination is one (node, port) lookup result.
type Destination struct {
	Node addr.NodeID
	Port addr.Port
}

// DestinationSet is an ordered, deduplicated collection of destinations.
// It is a transient result container: lookups push matches into a set
// owned by the caller, which drains it with Pop. A DestinationSet is not
// safe for concurrent use.
type DestinationSet struct {
	dsts []Destination
}

// Push appends the destination unless an equal one is already present.
func (s *DestinationSet) Push(node addr.NodeID, port addr.Port) bool {
	if s.Contains(node, port) {
		return false
	}
	s.dsts = append(s.dsts, Destination{Node: node, Port: port})
	return true
}

// Pop removes and returns the front destination.
func (s *DestinationSet) Pop() (Destination, bool) {
	if len(s.dsts) == 0 {
		return Destination{}, false
	}
	d := s.dsts[0]
	s.dsts = s.dsts[1:]
	return d, true
}

// Delete removes the destination equal to (node, port), if present.
func (s *DestinationSet) Delete(node addr.NodeID, port addr.Port) bool {
	for i, d := range s.dsts {
		if d.Node == node && d.Port == port {
			s.dsts = append(s.dsts[:i], s.dsts[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether (node, port) is in the set.
func (s *DestinationSet) Contains(node addr.NodeID, port addr.Port) bool {
	for _, d := range s.dsts {
		if d.Node == node && d.Port == port {
			return true
		}
	}
	return false
}

// Purge empties the set.
func (s *DestinationSet) Purge() {
	s.dsts = nil
}

func (s *DestinationSet) Len() int {
	return len(s.dsts)
}

// Destinations returns the set contents in insertion order. The returned
// slice is shared with the set; callers that keep it must not Push.
func (s *DestinationSet) Destinations() []Destination {
	return s.dsts
}

// NodeSet collects distinct node identifiers, typically to compute the
// fan-out of a multicast send.
type NodeSet map[addr.NodeID]struct{}

func (s NodeSet) Add(node addr.NodeID) {
	s[node] = struct{}{}
}

func (s NodeSet) Contains(node addr.NodeID) bool {
	_, ok := s[node]
	return ok
}
