package addr

import (
	"fmt"
	"strconv"
	"strings"
)

type (
	// NodeID identifies a node in the cluster. The zero value is a
	// wildcard: a publication recorded with node 0 matches any node when
	// bindings are compared for identity.
	NodeID uint32

	// Port identifies a port on a node. Ports are opaque references
	// assigned by the socket layer; 0 means "no port".
	Port uint32

	// Scope limits the visibility of a publication. Scopes are ordered
	// from broadest to narrowest: a numerically smaller scope is visible
	// to a larger part of the network.
	Scope uint32
)

const (
	// ZoneScope makes a publication visible zone-wide.
	ZoneScope Scope = iota + 1
	// ClusterScope makes a publication visible cluster-wide.
	ClusterScope
	// NodeScope restricts a publication to its own node.
	NodeScope
)

// Valid reports whether s is one of the three defined scope ordinals.
func (s Scope) Valid() bool {
	return s >= ZoneScope && s <= NodeScope
}

// Broader reports whether s is visible to a larger part of the network
// than other.
func (s Scope) Broader(other Scope) bool {
	return s < other
}

func (s Scope) String() string {
	switch s {
	case ZoneScope:
		return "zone"
	case ClusterScope:
		return "cluster"
	case NodeScope:
		return "node"
	default:
		return fmt.Sprintf("scope(%d)", uint32(s))
	}
}

// ServiceRange is a service address range: a type identifier plus an
// inclusive range of instance values within that type.
type ServiceRange struct {
	Type  uint32
	Lower uint32
	Upper uint32
}

// SingleInstance returns the range covering exactly one instance.
func SingleInstance(svcType, instance uint32) ServiceRange {
	return ServiceRange{Type: svcType, Lower: instance, Upper: instance}
}

// Validate checks that the range bounds are ordered.
func (r ServiceRange) Validate() error {
	if r.Lower > r.Upper {
		return fmt.Errorf("service range %s: lower bound exceeds upper bound", r)
	}
	return nil
}

// Contains reports whether the range covers the given instance.
func (r ServiceRange) Contains(instance uint32) bool {
	return instance >= r.Lower && instance <= r.Upper
}

// Overlaps reports whether the range shares any instance with
// [lower, upper].
func (r ServiceRange) Overlaps(lower, upper uint32) bool {
	return r.Lower <= upper && lower <= r.Upper
}

// Intersection clamps [lower, upper] to the range. The returned flag is
// false when the two ranges share no instance.
func (r ServiceRange) Intersection(lower, upper uint32) (uint32, uint32, bool) {
	if !r.Overlaps(lower, upper) {
		return 0, 0, false
	}
	if lower < r.Lower {
		lower = r.Lower
	}
	if upper > r.Upper {
		upper = r.Upper
	}
	return lower, upper, true
}

func (r ServiceRange) String() string {
	return fmt.Sprintf("{%d,%d,%d}", r.Type, r.Lower, r.Upper)
}

// ParseServiceRange parses a service range given as "type:lower-upper" or
// "type:instance".
func ParseServiceRange(s string) (ServiceRange, error) {
	typeAndRange := strings.SplitN(s, ":", 2)
	if len(typeAndRange) != 2 {
		return ServiceRange{}, fmt.Errorf("service range expected as <type>:<lower>-<upper>")
	}
	svcType, err := parseUint32(typeAndRange[0])
	if err != nil {
		return ServiceRange{}, fmt.Errorf("%q is not a valid service type (must be a 32-bit unsigned integer)", typeAndRange[0])
	}
	bounds := strings.Split(typeAndRange[1], "-")
	if len(bounds) > 2 {
		return ServiceRange{}, fmt.Errorf("instance range expected as <lower>-<upper>")
	}
	if len(bounds) == 1 {
		// A single value is both the lower- and upper-bound.
		bounds = append(bounds, bounds[0])
	}
	lower, err := parseUint32(bounds[0])
	if err != nil {
		return ServiceRange{}, fmt.Errorf("%q is not a valid lower-bound (must be a 32-bit unsigned integer)", bounds[0])
	}
	upper, err := parseUint32(bounds[1])
	if err != nil {
		return ServiceRange{}, fmt.Errorf("%q is not a valid upper-bound (must be a 32-bit unsigned integer)", bounds[1])
	}
	if upper < lower {
		return ServiceRange{}, fmt.Errorf("%q: upper-bound must be greater than or equal to lower-bound", s)
	}
	return ServiceRange{Type: svcType, Lower: lower, Upper: upper}, nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
