// Package actuator defines the device-facing interfaces the dispatcher
// drives and the shared error vocabulary for addressing failures.
//
// Implementations live in the sonos and hue subpackages. Callers address
// devices by human-readable group or zone name; resolving names to network
// endpoints is the implementation's job.
package actuator
