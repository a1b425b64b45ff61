// Package update keeps a controller host on the latest published release.
//
// A release lives on a plain HTTP server as a YAML manifest next to the
// artifacts it describes. The updater compares the installed daemon's
// version and file checksums against the manifest, downloads what
// changed, swaps the binaries in place and restarts the daemon. A marker
// file guards against two updaters running at once.
package update
