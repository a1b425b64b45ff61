// Package packager turns a build directory into a publishable release.
//
// It checksums the smart-dial binaries, writes the version manifest the
// updater consumes, and prints what to upload where. Run it from the
// directory that holds the freshly built artifacts.
package packager
