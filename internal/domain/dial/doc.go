// Package dial contains the core domain types of the input pipeline:
// raw and interpreted input events, actuator intents, the control mode,
// the multi-click classifier and the command routing table.
//
// Everything here is pure. Timers, I/O and persistence belong to the
// daemon loop that drives these types, which keeps the timing-sensitive
// logic testable with explicit timestamps.
package dial
