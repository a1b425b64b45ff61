// Package sonos drives Sonos players over their UPnP control endpoints.
//
// Players are found with an SSDP multicast search and addressed by the
// room name from their device description. The client keeps a name to
// endpoint cache refreshed by every active-group lookup, so a renamed or
// moved player heals on the next poll.
package sonos
