// Package ctl implements the dial-ctl operations: querying a running
// daemon's status and injecting synthetic gestures over the control
// socket, mainly for trying out bindings without touching the hardware.
package ctl
