// Package ipc implements the daemon's local control surface: newline
// delimited JSON requests over a unix socket.
//
// dial-ctl uses it to query status and to inject synthetic dial gestures,
// which enter the daemon loop exactly like hardware events and go through
// the same classification and routing.
package ipc
