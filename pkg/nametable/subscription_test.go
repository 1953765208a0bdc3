package nametable

import (
	"testing"

	"github.com/weft-io/weft/pkg/addr"
)

func TestSubscribeReplaysExistingBindings(t *testing.T) {
	table := newTestTable(0)
	defer table.Stop()

	if _, err := table.Publish(addr.ServiceRange{Type: 1, Lower: 10, Upper: 20}, addr.ClusterScope, localNode, 100, 1); err != nil {
		t.Fatalf("publish failed: %s", err)
	}

	listener := NewBufferingEventListener()
	err := table.Subscribe(&Subscription{
		Range:    addr.ServiceRange{Type: 1, Lower: 0, Upper: 100},
		Listener: listener,
	})
	if err != nil {
		t.Fatalf("subscribe failed: %s", err)
	}

	listener.ExpectPublished([]Event{
		{Lower: 10, Upper: 20, Node: localNode, Port: 100, Scope: addr.ClusterScope, RangeChange: true},
	}, t)
}

func TestSubscribeReplayFlagsFirstEventPerSubSequence(t *testing.T) {
	table := newTestTable(0)
	defer table.Stop()

	// Two publications sharing one range, one in a second range.
	r := addr.ServiceRange{Type: 1, Lower: 10, Upper: 20}
	if _, err := table.Publish(r, addr.ClusterScope, localNode, 100, 1); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	if _, err := table.Publish(r, addr.ClusterScope, 2, 101, 2); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	if _, err := table.Publish(addr.ServiceRange{Type: 1, Lower: 30, Upper: 30}, addr.ClusterScope, localNode, 102, 3); err != nil {
		t.Fatalf("publish failed: %s", err)
	}

	listener := NewBufferingEventListener()
	err := table.Subscribe(&Subscription{
		Range:    addr.ServiceRange{Type: 1, Lower: 0, Upper: 100},
		Listener: listener,
	})
	if err != nil {
		t.Fatalf("subscribe failed: %s", err)
	}

	listener.ExpectPublished([]Event{
		{Lower: 10, Upper: 20, Node: localNode, Port: 100, Scope: addr.ClusterScope, RangeChange: true},
		{Lower: 10, Upper: 20, Node: 2, Port: 101, Scope: addr.ClusterScope, RangeChange: false},
		{Lower: 30, Upper: 30, Node: localNode, Port: 102, Scope: addr.ClusterScope, RangeChange: true},
	}, t)
}

func TestSubscribeNoStatusSkipsReplay(t *testing.T) {
	table := newTestTable(0)
	defer table.Stop()

	if _, err := table.Publish(addr.SingleInstance(1, 5), addr.ClusterScope, localNode, 100, 1); err != nil {
		t.Fatalf("publish failed: %s", err)
	}

	listener := NewBufferingEventListener()
	err := table.Subscribe(&Subscription{
		Range:    addr.ServiceRange{Type: 1, Lower: 0, Upper: 100},
		NoStatus: true,
		Listener: listener,
	})
	if err != nil {
		t.Fatalf("subscribe failed: %s", err)
	}

	listener.ExpectPublished([]Event{}, t)

	// Live events still arrive.
	if _, err := table.Publish(addr.SingleInstance(1, 6), addr.ClusterScope, localNode, 101, 2); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	listener.ExpectPublished([]Event{
		{Lower: 6, Upper: 6, Node: localNode, Port: 101, Scope: addr.ClusterScope, RangeChange: true},
	}, t)
}

func TestEventsClampToSubscribedRange(t *testing.T) {
	table := newTestTable(0)
	defer table.Stop()

	listener := NewBufferingEventListener()
	err := table.Subscribe(&Subscription{
		Range:    addr.ServiceRange{Type: 1, Lower: 10, Upper: 20},
		Listener: listener,
	})
	if err != nil {
		t.Fatalf("subscribe failed: %s", err)
	}

	// A wider publication is reported trimmed to the watched window.
	if _, err := table.Publish(addr.ServiceRange{Type: 1, Lower: 0, Upper: 100}, addr.ClusterScope, localNode, 100, 1); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	listener.ExpectPublished([]Event{
		{Lower: 10, Upper: 20, Node: localNode, Port: 100, Scope: addr.ClusterScope, RangeChange: true},
	}, t)

	// A disjoint publication is not reported at all.
	if _, err := table.Publish(addr.ServiceRange{Type: 1, Lower: 200, Upper: 300}, addr.ClusterScope, localNode, 101, 2); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	listener.ExpectPublished([]Event{
		{Lower: 10, Upper: 20, Node: localNode, Port: 100, Scope: addr.ClusterScope, RangeChange: true},
	}, t)
}

func TestWithdrawNotifiesSubscribers(t *testing.T) {
	table := newTestTable(0)
	defer table.Stop()

	r := addr.ServiceRange{Type: 1, Lower: 10, Upper: 20}
	if _, err := table.Publish(r, addr.ClusterScope, localNode, 100, 1); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	if _, err := table.Publish(r, addr.ClusterScope, 2, 101, 2); err != nil {
		t.Fatalf("publish failed: %s", err)
	}

	listener := NewBufferingEventListener()
	err := table.Subscribe(&Subscription{
		Range:    addr.ServiceRange{Type: 1, Lower: 0, Upper: 100},
		NoStatus: true,
		Listener: listener,
	})
	if err != nil {
		t.Fatalf("subscribe failed: %s", err)
	}

	// First withdraw leaves the range populated.
	if _, found := table.Withdraw(1, 10, localNode, 100, 1); !found {
		t.Fatal("withdraw reported not found")
	}
	listener.ExpectWithdrawn([]Event{
		{Lower: 10, Upper: 20, Node: localNode, Port: 100, Scope: addr.ClusterScope, RangeChange: false},
	}, t)

	// Last withdraw removes the range entirely.
	if _, found := table.Withdraw(1, 10, 2, 101, 2); !found {
		t.Fatal("withdraw reported not found")
	}
	listener.ExpectWithdrawn([]Event{
		{Lower: 10, Upper: 20, Node: localNode, Port: 100, Scope: addr.ClusterScope, RangeChange: false},
		{Lower: 10, Upper: 20, Node: 2, Port: 101, Scope: addr.ClusterScope, RangeChange: true},
	}, t)
}

func TestUnsubscribeStopsEventsAndEvictsEmptyEntry(t *testing.T) {
	table := newTestTable(0)
	defer table.Stop()

	listener := NewBufferingEventListener()
	sub := &Subscription{
		Range:    addr.ServiceRange{Type: 4, Lower: 0, Upper: 100},
		Listener: listener,
	}
	if err := table.Subscribe(sub); err != nil {
		t.Fatalf("subscribe failed: %s", err)
	}

	// Subscribing to an unused type materializes an entry.
	if entry := table.findService(4); entry == nil {
		t.Fatal("expected subscription to create a service entry")
	}

	table.Unsubscribe(sub)
	if entry := table.findService(4); entry != nil {
		t.Fatal("expected empty service entry to be evicted on unsubscribe")
	}

	if _, err := table.Publish(addr.SingleInstance(4, 1), addr.ClusterScope, localNode, 100, 1); err != nil {
		t.Fatalf("publish failed: %s", err)
	}
	listener.ExpectPublished([]Event{}, t)
}
