// Package nametable implements the name table of the cluster interconnect:
// a concurrent directory mapping service address ranges to (node, port)
// endpoints.
//
// Applications bind a service type and an inclusive instance range to a
// port by publishing; peers resolve instances back to endpoints through
// the translation and lookup calls, and observe binding changes through
// subscriptions. Ranges of one type never overlap: a publish either
// matches an existing range exactly or occupies untouched instance space.
//
// The table owns no network I/O and persists nothing. Announcing local
// changes to other nodes and replaying remote announcements into the
// table belong to the distribution layer, reached through the Distributor
// interface.
package nametable
