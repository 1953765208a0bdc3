package nametable

import (
	"github.com/weft-io/weft/pkg/addr"
)

type (
	// Event describes one overlap between a subscription's filter range
	// and a publication that was added to or removed from the table.
	// Lower and Upper carry the overlapping part of the two ranges.
	//
	// RangeChange is set on a publish event when the insertion created a
	// new sub-sequence, and on a withdraw event when the removal destroyed
	// one. On the replay of existing bindings during Subscribe it marks
	// the first event emitted for each sub-sequence.
	Event struct {
		Lower       uint32
		Upper       uint32
		Node        addr.NodeID
		Port        addr.Port
		Scope       addr.Scope
		RangeChange bool
	}

	// EventListener is the interface subscription owners must implement.
	// Both methods are invoked synchronously while the affected service's
	// lock is held, so implementations must not call back into the table.
	EventListener interface {
		Published(ev Event)
		Withdrawn(ev Event)
	}

	// Subscription registers interest in bindings of one service type
	// overlapping the filter range. Unless NoStatus is set, subscribing
	// replays the currently held bindings as Published events before any
	// live updates are delivered.
	//
	// A Subscription is identified by pointer: pass the same value to
	// Unsubscribe that was passed to Subscribe.
	Subscription struct {
		Range    addr.ServiceRange
		NoStatus bool
		Listener EventListener
	}
)
