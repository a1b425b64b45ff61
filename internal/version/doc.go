// Package version carries the build identity stamped into every
// smart-dial binary and the cobra subcommand that prints it.
//
// The printed line doubles as an interface: dial-updater parses it to
// learn the installed daemon's version before deciding whether to pull
// a release.
package version
