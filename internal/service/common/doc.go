// Package common holds small helpers shared by several services.
//
// The daemon uses it to refuse a second instance on the same machine,
// the updater uses it to stop a running daemon before swapping binaries,
// and pairing uses it to derive the identifier registered on the bridge.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
