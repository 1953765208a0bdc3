package nametable

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/weft-io/weft/pkg/addr"
)

// BufferingEventListener implements EventListener and stores events in
// slices. Useful for unit tests.
type BufferingEventListener struct {
	published []Event
	withdrawn []Event
	sync.Mutex
}

// NewBufferingEventListener creates a new BufferingEventListener.
func NewBufferingEventListener() *BufferingEventListener {
	return &BufferingEventListener{
		published: []Event{},
		withdrawn: []Event{},
	}
}

// Published stores the event in the internal buffer.
func (bel *BufferingEventListener) Published(ev Event) {
	bel.Lock()
	defer bel.Unlock()
	bel.published = append(bel.published, ev)
}

// Withdrawn stores the event in the internal buffer.
func (bel *BufferingEventListener) Withdrawn(ev Event) {
	bel.Lock()
	defer bel.Unlock()
	bel.withdrawn = append(bel.withdrawn, ev)
}

func (bel *BufferingEventListener) ExpectPublished(expected []Event, t *testing.T) {
	t.Helper()
	bel.Lock()
	defer bel.Unlock()
	testCompare(t, expected, bel.published)
}

func (bel *BufferingEventListener) ExpectWithdrawn(expected []Event, t *testing.T) {
	t.Helper()
	bel.Lock()
	defer bel.Unlock()
	testCompare(t, expected, bel.withdrawn)
}

// CountingGroupBuilder implements GroupBuilder and records members as
// "node:port:instance" strings.
type CountingGroupBuilder struct {
	Members []string
}

// AddMember records one group member.
func (gb *CountingGroupBuilder) AddMember(node addr.NodeID, port addr.Port, instance uint32) {
	gb.Members = append(gb.Members, fmt.Sprintf("%d:%d:%d", node, port, instance))
}

func testCompare(t *testing.T, expected interface{}, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		expectedBytes, _ := json.Marshal(expected)
		actualBytes, _ := json.Marshal(actual)
		t.Fatalf("Expected %s but got %s", string(expectedBytes), string(actualBytes))
	}
}
