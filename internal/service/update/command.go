package update

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	goupdate "github.com/doitdistributed/go-update"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/logger"
	"github.com/oshokin/smart-dial/internal/service/common"
)

var (
	errUpdaterAlreadyRunning = errors.New("the updater is already running")
	errNoUpdateURL           = errors.New("update_url is not set in settings")
	errEmptyDescription      = errors.New("release description is empty")
	errNoChecksum            = errors.New("checksum missing for file")
	errBadHTTPStatus         = errors.New("unexpected http status")
	errUnsupportedOS         = errors.New("os not supported")
	errInvalidVersionOutput  = errors.New("invalid version output format")
)

// versionCommandTimeout bounds the probe of the installed daemon binary.
const versionCommandTimeout = 10 * time.Second

// Options configures a single updater run.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
}

// runner holds the mutable state for a single update execution.
// It is intentionally unexported, call Run(ctx, Options) from callers.
type runner struct {
	cfg                *config.Config    // Settings loaded from YAML.
	description        *Description      // Manifest fetched from the release server.
	localVersion       string            // Version reported by the installed daemon.
	filesOutdated      bool              // Whether local artifacts differ from the manifest.
	temporaryDirectory string            // Where new files land before apply.
	downloadedFiles    map[string]string // Artifact name -> local temp path.
}

// Run performs one update cycle: fetch the manifest, compare, swap,
// restart. It is the entry point the CLI calls.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "dial-updater")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return err
	}

	defer r.cleanup(ctx)

	if err = r.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update failed", "error", err)
		return err
	}

	logger.Info(ctx, "Update finished")

	return nil
}

// newRunner loads settings and claims the marker so two updaters never
// race each other over the same binaries.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	running, err := IsUpdaterRunningNow(ctx)
	if err != nil {
		return nil, err
	}

	if running {
		return nil, errUpdaterAlreadyRunning
	}

	if err = CreateMarkerFile(); err != nil {
		return nil, err
	}

	r := &runner{
		downloadedFiles: make(map[string]string, len(ReleaseArtifacts())),
	}

	r.cfg, err = config.Load(opts.ConfigPath)
	if err != nil {
		r.cleanup(ctx)
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(r.cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if r.cfg.UpdateURL == "" {
		r.cleanup(ctx)
		return nil, errNoUpdateURL
	}

	return r, nil
}

// run executes the workflow for this runner instance:
// 1) Fetch the remote manifest.
// 2) Stop smart-dial processes.
// 3) Detect the installed version.
// 4) Compare versions and checksums.
// 5) Download and apply files if needed.
// 6) Start the daemon again.
func (r *runner) run(ctx context.Context) error {
	logger.Info(ctx, "Downloading the release description")

	if err := r.fetchDescription(ctx); err != nil {
		return fmt.Errorf("download release description: %w", err)
	}

	logger.Info(ctx, "Stopping smart-dial processes")

	if err := r.terminateSmartDialProcesses(); err != nil {
		return fmt.Errorf("terminate smart-dial processes: %w", err)
	}

	logger.Info(ctx, "Detecting the installed version")

	r.localVersion = r.detectLocalVersion(ctx)

	versionOutdated := r.compareVersions(ctx)

	if err := r.validateChecksums(); err != nil {
		return fmt.Errorf("validate checksums: %w", err)
	}

	if err := r.applyIfNeeded(ctx, versionOutdated); err != nil {
		return err
	}

	logger.Info(ctx, "Starting the release executables")

	if err := r.startReleaseExecutables(ctx); err != nil {
		return fmt.Errorf("start release executables: %w", err)
	}

	return nil
}

// applyIfNeeded downloads and swaps the artifacts when either the version
// or any checksum says the host is behind.
func (r *runner) applyIfNeeded(ctx context.Context, versionOutdated bool) error {
	if !versionOutdated && !r.filesOutdated {
		logger.Info(ctx, "No update required, version and files are current")
		return nil
	}

	if versionOutdated {
		logger.InfoKV(ctx, "Update required", "reason", "version_mismatch")
	}

	if r.filesOutdated {
		logger.InfoKV(ctx, "Update required", "reason", "checksum_mismatch")
	}

	logger.Info(ctx, "Downloading the release to a temporary folder")

	if err := r.downloadFiles(ctx); err != nil {
		return fmt.Errorf("download release files: %w", err)
	}

	logger.Info(ctx, "Swapping files in place")

	if err := r.updateFiles(ctx); err != nil {
		return fmt.Errorf("update files: %w", err)
	}

	return nil
}

// terminateSmartDialProcesses stops every smart-dial binary before the
// swap. The daemon holds the control socket and the input device, it must
// be down while its file is replaced.
func (r *runner) terminateSmartDialProcesses() error {
	for _, name := range ReleaseArtifacts() {
		if err := common.TerminateByName(name); err != nil {
			return err
		}
	}

	return nil
}

// detectLocalVersion asks the installed daemon binary for its version.
// A missing or broken binary is not an error, it means first install.
func (r *runner) detectLocalVersion(ctx context.Context) string {
	cmdCtx, cancel := context.WithTimeout(ctx, versionCommandTimeout)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, DaemonExecutable, "version").Output()
	if err != nil {
		logger.Warnf(ctx, "Could not get local version from %s: %v", DaemonExecutable, err)
		return ""
	}

	version, err := parseVersionFromOutput(string(output))
	if err != nil {
		logger.Warnf(ctx, "Could not parse version output from %s: %v", DaemonExecutable, err)
		return ""
	}

	return version
}

// parseVersionFromOutput extracts the semantic version from the
// "version: 1.0.0, commit: abc123, built at: ..." line the binaries print.
func parseVersionFromOutput(output string) (string, error) {
	output = strings.TrimSpace(output)
	if strings.HasPrefix(output, "version: ") {
		parts := strings.Split(output, ",")
		if len(parts) > 0 {
			version := strings.TrimSpace(strings.TrimPrefix(parts[0], "version: "))
			if version != "" {
				return version, nil
			}
		}
	}

	return "", errInvalidVersionOutput
}

// compareVersions reports whether the manifest carries a different
// version than the installed daemon.
func (r *runner) compareVersions(ctx context.Context) bool {
	remoteVersion := r.description.VersionNumber

	if r.localVersion == "" {
		logger.Info(ctx, "No installed version found, pulling the release")
		return true
	}

	if r.localVersion != remoteVersion {
		logger.InfoKV(ctx, "Installed version differs",
			"local", r.localVersion, "remote", remoteVersion)

		return true
	}

	logger.InfoKV(ctx, "Version is current, comparing checksums",
		"version", r.localVersion)

	return false
}

// fetchDescription downloads and parses the remote release manifest.
// This doubles as the reachability probe, a dead update server fails
// the run before any process has been stopped.
func (r *runner) fetchDescription(ctx context.Context) error {
	response, err := r.getFileFromServer(ctx, VersionFilename)
	if response != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}

	if err != nil {
		return err
	}

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	var desc Description
	if err = yaml.Unmarshal(data, &desc); err != nil {
		return err
	}

	if desc.VersionNumber == "" || len(desc.Files) == 0 {
		return errEmptyDescription
	}

	r.description = &desc

	return nil
}

// getFileFromServer fetches a file from the release folder on the update server.
func (r *runner) getFileFromServer(ctx context.Context, fileName string) (*http.Response, error) {
	releaseURL, err := url.Parse(r.cfg.UpdateURL)
	if err != nil {
		return nil, err
	}

	// path.Join normalizes duplicate slashes when composing the URL path.
	releaseURL.Path = path.Join(releaseURL.Path, fileName)
	finalURL := releaseURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, http.NoBody)
	if err != nil {
		return nil, err
	}

	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return response, err
	}

	if response.StatusCode != http.StatusOK {
		return response, fmt.Errorf("%s, %s: %w", finalURL, response.Status, errBadHTTPStatus)
	}

	return response, nil
}

// validateChecksums compares local artifacts against the manifest and
// returns early on the first mismatch, one stale file is enough to know
// an update is due.
func (r *runner) validateChecksums() error {
	if r.description == nil {
		return errEmptyDescription
	}

	for _, fileName := range ReleaseArtifacts() {
		outdated, err := r.validateFileChecksum(fileName)
		if err != nil {
			return err
		}

		if outdated {
			r.filesOutdated = true
			return nil
		}
	}

	return nil
}

// validateFileChecksum reports whether a single artifact differs from the manifest.
func (r *runner) validateFileChecksum(fileName string) (bool, error) {
	remoteChecksum, err := r.remoteChecksum(fileName)
	if err != nil {
		return false, err
	}

	localChecksum, err := localChecksum(fileName)
	if err != nil {
		return false, err
	}

	return !bytes.Equal(remoteChecksum, localChecksum), nil
}

// remoteChecksum decodes the manifest checksum for a file.
func (r *runner) remoteChecksum(fileName string) ([]byte, error) {
	encoded, ok := r.description.Files[fileName]
	if !ok {
		return nil, fmt.Errorf("checksum for %s: %w", fileName, errNoChecksum)
	}

	checksum, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	return checksum, nil
}

// localChecksum hashes the installed artifact.
// A missing file yields a nil checksum, which never matches the manifest.
func localChecksum(fileName string) ([]byte, error) {
	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	return GetFileChecksum(fileName)
}

// downloadFiles fetches every release artifact into a temporary directory.
func (r *runner) downloadFiles(ctx context.Context) error {
	temporaryDirectory, err := os.MkdirTemp("", "smart-dial-update-")
	if err != nil {
		return err
	}

	r.temporaryDirectory = temporaryDirectory

	for _, fileName := range ReleaseArtifacts() {
		if err = r.downloadFile(ctx, fileName); err != nil {
			return err
		}
	}

	return nil
}

// downloadFile fetches a single artifact into the temporary directory.
func (r *runner) downloadFile(ctx context.Context, fileName string) error {
	response, err := r.getFileFromServer(ctx, fileName)
	if err != nil {
		if response != nil {
			_ = response.Body.Close()
		}

		return err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	outputFileName := filepath.Clean(filepath.Join(r.temporaryDirectory, fileName))

	outputFile, err := os.Create(outputFileName)
	if err != nil {
		return err
	}

	_, err = io.Copy(outputFile, response.Body)
	if closeErr := outputFile.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return err
	}

	r.downloadedFiles[fileName] = outputFileName
	logger.InfoKV(ctx, "Downloaded file", "path", outputFileName)

	return nil
}

// updateFiles swaps each downloaded artifact into place with go-update,
// which verifies the manifest checksum during apply.
func (r *runner) updateFiles(ctx context.Context) error {
	for fileName, downloadedFileName := range r.downloadedFiles {
		logger.InfoKV(ctx, "Swapping file", "file", fileName)

		data, err := os.ReadFile(downloadedFileName)
		if err != nil {
			return err
		}

		var checksum []byte

		checksum, err = r.remoteChecksum(fileName)
		if err != nil {
			return err
		}

		// go-update needs an existing target to swap.
		if _, err = os.Stat(fileName); err != nil && os.IsNotExist(err) {
			var placeholder *os.File

			if placeholder, err = os.Create(fileName); err != nil {
				return err
			}

			if err = placeholder.Close(); err != nil {
				return err
			}
		}

		err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
			TargetPath: fileName,
			TargetMode: DefaultFileMode,
			Checksum:   checksum,
			Hash:       DefaultChecksumFunction,
		})
		if err != nil {
			return err
		}

		oldFileName := fileName + ".old"
		if _, err = os.Stat(oldFileName); err == nil {
			_ = os.Remove(oldFileName)
		}
	}

	return nil
}

// startReleaseExecutables launches the binaries the manifest marks as
// long-running, normally just the daemon.
func (r *runner) startReleaseExecutables(ctx context.Context) error {
	if r.description == nil {
		return errEmptyDescription
	}

	executables := r.description.Executables
	if len(executables) == 0 {
		executables = []string{DaemonExecutable}
	}

	for _, executable := range executables {
		logger.InfoKV(ctx, "Starting executable", "executable", executable)

		switch osName := strings.ToLower(runtime.GOOS); {
		case strings.Contains(osName, "linux") || strings.Contains(osName, "darwin"):
			if err := exec.CommandContext(ctx, executable).Start(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: %w", runtime.GOOS, errUnsupportedOS)
		}
	}

	return nil
}

// cleanup drops the marker and the download directory.
func (r *runner) cleanup(ctx context.Context) {
	RemoveMarkerFile(ctx)

	if r.temporaryDirectory != "" {
		if _, err := os.Stat(r.temporaryDirectory); err == nil {
			_ = os.RemoveAll(r.temporaryDirectory)
		}
	}

	logger.Info(ctx, "Updater exited")
}
