// Package input produces raw dial events for the daemon loop.
//
// The evdev source reads the dial's kernel input device: the 2.4G receiver
// presents rotation as volume keys and the push as the mute key, while
// true rotary devices report relative dial detents. The mock source reads
// the same gestures as characters from stdin for hardware-free runs.
//
// A source returning while the daemon is still up means the input is gone,
// which the daemon treats as fatal: a dial controller without a dial has
// nothing left to do.
package input
