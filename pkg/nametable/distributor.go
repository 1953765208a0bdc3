package nametable

import (
	logging "github.com/sirupsen/logrus"

	"github.com/weft-io/weft/pkg/addr"
)

// Distributor announces local binding changes to the rest of the cluster.
// The name table never calls it directly: announcements are made by the
// owner of the publish or withdraw, after the table call returns and
// outside all table locks.
type Distributor interface {
	PublicationAdded(p *Publication)
	PublicationWithdrawn(p *Publication)
}

// NopDistributor discards announcements. Useful for single-node operation
// and tests.
type NopDistributor struct{}

func (NopDistributor) PublicationAdded(*Publication)     {}
func (NopDistributor) PublicationWithdrawn(*Publication) {}

// Registry is the binding interface offered to local sockets: it applies
// publishes and withdraws to the table on behalf of the local node and
// pairs each successful mutation with a distribution announcement.
type Registry struct {
	table *Table
	dist  Distributor
	log   *logging.Entry
}

func NewRegistry(table *Table, dist Distributor, log *logging.Entry) *Registry {
	return &Registry{
		table: table,
		dist:  dist,
		log: log.WithFields(logging.Fields{
			"component": "registry",
		}),
	}
}

// Publish binds the range to a port of the local node and announces the
// new binding.
func (r *Registry) Publish(rng addr.ServiceRange, scope addr.Scope, port addr.Port, key uint32) (*Publication, error) {
	publ, err := r.table.Publish(rng, scope, r.table.Node(), port, key)
	if err != nil {
		return nil, err
	}
	r.dist.PublicationAdded(publ)
	return publ, nil
}

// Withdraw removes a local binding and announces the withdrawal. A
// withdraw for a binding the table does not hold is logged and reported
// as not found.
func (r *Registry) Withdraw(svcType, lower uint32, port addr.Port, key uint32) bool {
	publ, found := r.table.Withdraw(svcType, lower, r.table.Node(), port, key)
	if !found {
		r.log.Warnf("Unable to withdraw local publication (type=%d, lower=%d, port=%d, key=%d)", svcType, lower, port, key)
		return false
	}
	r.dist.PublicationWithdrawn(publ)
	return true
}
