// Package ws exposes the daemon's status as a local observation feed:
// a WebSocket endpoint pushing state snapshots on every change and a
// plain HTTP endpoint serving the current snapshot on demand.
//
// A hub goroutine owns the client set and fans frames out through
// per-client write pumps, so one stalled observer never blocks the
// daemon or the other clients. Bursty updates are coalesced latest-wins
// before broadcast.
package ws
