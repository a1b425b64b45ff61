// Package state implements persistence for the daemon State.
//
// The FileRepository stores and loads the state as JSON on disk and exposes
// a Repository interface that the daemon, the pairing flow and tests depend
// on. Persistence is best-effort: callers treat in-memory state as
// authoritative and only log Save failures.
package state
