// Package daemon turns raw dial gestures into Sonos and Hue commands.
//
// A single event loop owns all interpretation state: it classifies button
// edges into click gestures, toggles the control mode on the configured
// click count, routes gestures to actuator intents and hands them to the
// per-target dispatcher. Everything else (the input source, the sonos
// group poller, the control socket, the observation feed) runs beside the
// loop and talks to it through channels, so no interpretation state is
// ever shared.
//
// State that must survive restarts (mode, hue zone, last speaker, bridge
// credentials) is persisted through the state repository. The in-memory
// copy stays authoritative when a write fails.
package daemon
