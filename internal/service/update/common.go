package update

import (
	"context"
	"crypto"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/smart-dial/internal/logger"
	"github.com/oshokin/smart-dial/internal/service/common"
	"github.com/oshokin/smart-dial/internal/version"
)

const (
	// VersionFilename is the name of the release manifest published
	// next to the artifacts on the update server.
	VersionFilename = "smart-dial-version.yaml"

	// MarkerFilename marks that an updater is running right now,
	// so a second invocation backs off instead of racing it.
	MarkerFilename = "smart-dial-update.marker"

	// DefaultFileMode is the permission set applied to updated binaries.
	DefaultFileMode os.FileMode = 0o755

	// DefaultChecksumFunction hashes release artifacts.
	DefaultChecksumFunction = crypto.SHA512

	// DaemonExecutable is the long-running binary restarted after an update.
	DaemonExecutable = "dial-daemon"

	// UpdaterExecutable is the binary controllers schedule to pull releases.
	UpdaterExecutable = "dial-updater"

	ctlExecutable  = "dial-ctl"
	pairExecutable = "dial-pair"

	// markerLifetime bounds how long a marker file is trusted.
	// An updater that died without cleaning up should not block
	// updates forever.
	markerLifetime = 30 * time.Second
)

// Description is the release manifest: one version number plus the
// checksums of every artifact that belongs to it.
type Description struct {
	// VersionNumber is the semantic version of the release.
	VersionNumber string `yaml:"version"`
	// Files maps artifact filenames to base64-encoded SHA-512 checksums.
	Files map[string]string `yaml:"files"`
	// Executables lists the binaries to start again once the swap is done.
	Executables []string `yaml:"executables"`
}

// ReleaseArtifacts returns the files a release ships to a controller
// host. Settings and saved state stay local and are never replaced.
func ReleaseArtifacts() []string {
	return []string{
		DaemonExecutable,
		ctlExecutable,
		pairExecutable,
		UpdaterExecutable,
	}
}

// NewDescription produces a manifest for the release this binary was
// built from.
func NewDescription() *Description {
	return &Description{
		VersionNumber: version.Short(),
		Files:         make(map[string]string, len(ReleaseArtifacts())),
		Executables:   []string{DaemonExecutable},
	}
}

// GetFileChecksum returns the checksum of the file at path, computed
// with DefaultChecksumFunction. Manifests carry the base64 encoding of
// this value.
func GetFileChecksum(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer file.Close()

	hash := DefaultChecksumFunction.New()
	if _, err = io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("hash %q: %w", path, err)
	}

	return hash.Sum(nil), nil
}

// IsUpdaterRunningNow reports whether another updater holds the marker
// file. A marker older than markerLifetime is treated as a leftover from
// a crashed run: any stray updater processes are terminated and the
// marker is removed.
func IsUpdaterRunningNow(ctx context.Context) (bool, error) {
	info, err := os.Stat(MarkerFilename)
	if os.IsNotExist(err) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("stat marker file: %w", err)
	}

	if time.Since(info.ModTime()) < markerLifetime {
		return true, nil
	}

	logger.Warn(ctx, "Update marker is stale, cleaning up after a crashed run")

	if err = common.TerminateByName(UpdaterExecutable); err != nil {
		logger.Warnf(ctx, "Failed to terminate stray updater processes: %v", err)
	}

	if err = os.Remove(MarkerFilename); err != nil {
		return false, fmt.Errorf("remove stale marker file: %w", err)
	}

	return false, nil
}

// CreateMarkerFile claims the updater lock for this process.
func CreateMarkerFile() error {
	file, err := os.Create(MarkerFilename)
	if err != nil {
		return fmt.Errorf("create marker file: %w", err)
	}

	return file.Close()
}

// RemoveMarkerFile releases the updater lock.
func RemoveMarkerFile(ctx context.Context) {
	if err := os.Remove(MarkerFilename); err != nil && !os.IsNotExist(err) {
		logger.Warnf(ctx, "Failed to remove marker file: %v", err)
	}
}
