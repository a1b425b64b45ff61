// Package hue drives Philips Hue zones through the bridge HTTP API.
//
// Zones are bridge groups matched by name. Brightness changes follow the
// dial's expectations rather than the raw API: raising a dark zone turns
// it on, and dimming to the floor turns it off, so the rotary ring behaves
// like a power-aware dimmer.
package hue
