package nametable

import (
	"fmt"

	"github.com/weft-io/weft/pkg/addr"
)

// Publication is one binding of a service address range to an endpoint.
// A publication is identified by its (port, key) pair together with its
// owning node; a publication recorded with node 0 matches any node.
type Publication struct {
	Range addr.ServiceRange
	Scope addr.Scope
	Node  addr.NodeID
	Port  addr.Port
	Key   uint32
}

func (p *Publication) String() string {
	return fmt.Sprintf("%s scope=%s node=%d port=%d key=%d",
		p.Range, p.Scope, p.Node, p.Port, p.Key)
}

// matches reports whether the publication is the one identified by
// (key, port, node). A stored node of 0 acts as a wildcard.
func (p *Publication) matches(node addr.NodeID, port addr.Port, key uint32) bool {
	return p.Port == port && p.Key == key && (p.Node == 0 || p.Node == node)
}

// publicationList is an ordered view over publications. New entries append
// to the tail; round-robin selection rotates the chosen entry to the tail
// so that repeated lookups cycle fairly through the list.
type publicationList struct {
	publs []*Publication
}

func (l *publicationList) add(p *Publication) {
	l.publs = append(l.publs, p)
}

// remove unlinks p from the list. Removing a publication that is not a
// member is a no-op.
func (l *publicationList) remove(p *Publication) bool {
	for i, q := range l.publs {
		if q == p {
			l.publs = append(l.publs[:i], l.publs[i+1:]...)
			return true
		}
	}
	return false
}

func (l *publicationList) head() *Publication {
	if len(l.publs) == 0 {
		return nil
	}
	return l.publs[0]
}

func (l *publicationList) moveToTail(p *Publication) {
	if l.remove(p) {
		l.publs = append(l.publs, p)
	}
}

func (l *publicationList) empty() bool {
	return len(l.publs) == 0
}
