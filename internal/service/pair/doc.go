// Package pair implements the one-time Hue bridge pairing flow: find the
// bridge, wait for its link button, store the earned credentials in the
// daemon's state file and report the zones available for cycling.
package pair
