// Package dispatch serializes and rate-limits outbound actuator calls.
//
// Every distinct target gets its own lane: a goroutine that executes calls
// strictly one at a time. Coalescible intents (volume and brightness
// deltas) open a cooldown after each call; anything arriving during the
// cooldown merges into a single pending intent, delivered when the window
// closes. Every accepted intent slides the window, so a continuous twist
// of the dial produces an immediate call, then at most one call per
// cooldown, then one trailing call with the remainder. Discrete intents
// bypass the throttle and are retried once on transient failure.
//
// Lanes never talk to each other, so a slow speaker cannot delay a light.
package dispatch
