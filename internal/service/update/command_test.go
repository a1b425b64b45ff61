package update

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/smart-dial/internal/config"
)

func checksumOf(data []byte) string {
	sum := sha512.Sum512(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// newReleaseServer serves a manifest and artifact bodies the way a plain
// HTTP file server hosting a release folder would.
func newReleaseServer(t *testing.T, version string, files map[string][]byte, executables []string) *httptest.Server {
	t.Helper()

	desc := &Description{
		VersionNumber: version,
		Files:         make(map[string]string, len(files)),
		Executables:   executables,
	}
	for name, data := range files {
		desc.Files[name] = checksumOf(data)
	}

	manifest, err := yaml.Marshal(desc)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/releases/", func(w http.ResponseWriter, r *http.Request) {
		name := path.Base(r.URL.Path)
		if name == VersionFilename {
			_, _ = w.Write(manifest)
			return
		}

		data, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write(data)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func releaseFiles() map[string][]byte {
	files := make(map[string][]byte, len(ReleaseArtifacts()))
	for _, name := range ReleaseArtifacts() {
		files[name] = []byte("#!/bin/sh\n# " + name + " v2\n")
	}

	return files
}

func writeSettings(t *testing.T, updateURL string) string {
	t.Helper()

	cfg := &config.Config{UpdateURL: updateURL}
	require.NoError(t, config.Validate(cfg))

	configPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(configPath, cfg))

	return configPath
}

func TestParseVersionFromOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{
			name:   "full build line",
			output: "version: 1.2.3, commit: abc123, built at: 2026-08-25T10:00:00Z\n",
			want:   "1.2.3",
		},
		{
			name:   "version only",
			output: "version: 2.0.0",
			want:   "2.0.0",
		},
		{
			name:    "garbage",
			output:  "dial-daemon: unknown command",
			wantErr: true,
		},
		{
			name:    "empty version",
			output:  "version: , commit: none",
			wantErr: true,
		},
		{
			name:    "empty output",
			output:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseVersionFromOutput(tt.output)
			if tt.wantErr {
				require.ErrorIs(t, err, errInvalidVersionOutput)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGetFileChecksum(t *testing.T) {
	t.Parallel()

	data := []byte("release artifact body")
	filePath := filepath.Join(t.TempDir(), "artifact")
	require.NoError(t, os.WriteFile(filePath, data, 0o600))

	sum, err := GetFileChecksum(filePath)
	require.NoError(t, err)

	expected := sha512.Sum512(data)
	require.Equal(t, expected[:], sum)

	_, err = GetFileChecksum(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestValidateChecksums(t *testing.T) {
	t.Chdir(t.TempDir())

	files := releaseFiles()
	desc := &Description{
		VersionNumber: "2.0.0",
		Files:         make(map[string]string, len(files)),
	}

	for name, data := range files {
		require.NoError(t, os.WriteFile(name, data, 0o755))

		desc.Files[name] = checksumOf(data)
	}

	r := &runner{description: desc}
	require.NoError(t, r.validateChecksums())
	require.False(t, r.filesOutdated)

	// One stale artifact is enough to demand an update.
	require.NoError(t, os.WriteFile("dial-ctl", []byte("older build"), 0o755))

	r = &runner{description: desc}
	require.NoError(t, r.validateChecksums())
	require.True(t, r.filesOutdated)

	// A manifest that forgot an artifact is broken, not merely stale.
	delete(desc.Files, "dial-pair")

	r = &runner{description: desc}
	err := r.validateChecksums()
	require.ErrorIs(t, err, errNoChecksum)
	require.Contains(t, err.Error(), "dial-pair")
}

func TestFetchDescription(t *testing.T) {
	t.Parallel()

	files := releaseFiles()
	server := newReleaseServer(t, "3.1.4", files, []string{DaemonExecutable})

	r := &runner{cfg: &config.Config{UpdateURL: server.URL + "/releases"}}
	require.NoError(t, r.fetchDescription(context.Background()))
	require.Equal(t, "3.1.4", r.description.VersionNumber)
	require.Len(t, r.description.Files, len(files))
	require.Equal(t, []string{DaemonExecutable}, r.description.Executables)
}

func TestFetchDescriptionFailures(t *testing.T) {
	t.Parallel()

	notFound := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(notFound.Close)

	r := &runner{cfg: &config.Config{UpdateURL: notFound.URL + "/releases"}}
	require.ErrorIs(t, r.fetchDescription(context.Background()), errBadHTTPStatus)

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("version: \"\"\n"))
	}))
	t.Cleanup(empty.Close)

	r = &runner{cfg: &config.Config{UpdateURL: empty.URL + "/releases"}}
	require.ErrorIs(t, r.fetchDescription(context.Background()), errEmptyDescription)
}

func TestRunAppliesRelease(t *testing.T) {
	t.Chdir(t.TempDir())

	files := releaseFiles()

	// "true" stands in for the daemon so the restart step has something
	// harmless to launch.
	server := newReleaseServer(t, "2.0.0", files, []string{"true"})
	configPath := writeSettings(t, server.URL+"/releases")

	// An installed daemon from a previous release must be swapped out.
	require.NoError(t, os.WriteFile(DaemonExecutable, []byte("stale build"), 0o755))

	require.NoError(t, Run(context.Background(), &Options{ConfigPath: configPath}))

	for name, data := range files {
		got, err := os.ReadFile(name)
		require.NoError(t, err)
		require.Equal(t, data, got, "artifact %s", name)

		info, err := os.Stat(name)
		require.NoError(t, err)
		require.Equal(t, DefaultFileMode, info.Mode().Perm(), "artifact %s", name)

		_, err = os.Stat(name + ".old")
		require.True(t, os.IsNotExist(err), "leftover backup for %s", name)
	}

	_, err := os.Stat(MarkerFilename)
	require.True(t, os.IsNotExist(err), "marker file should be cleaned up")
}

func TestRunSkipsWhenCurrent(t *testing.T) {
	t.Chdir(t.TempDir())

	files := releaseFiles()
	server := newReleaseServer(t, "2.0.0", files, []string{"true"})

	for name, data := range files {
		require.NoError(t, os.WriteFile(name, data, 0o755))
	}

	r := &runner{
		cfg:             &config.Config{UpdateURL: server.URL + "/releases"},
		localVersion:    "2.0.0",
		downloadedFiles: map[string]string{},
	}
	require.NoError(t, r.fetchDescription(context.Background()))
	require.False(t, r.compareVersions(context.Background()))
	require.NoError(t, r.validateChecksums())
	require.False(t, r.filesOutdated)
	require.NoError(t, r.applyIfNeeded(context.Background(), false))

	// Nothing was downloaded, so nothing should have been staged.
	require.Empty(t, r.downloadedFiles)
	require.Empty(t, r.temporaryDirectory)
}

func TestRunBlocksConcurrentUpdaters(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, CreateMarkerFile())

	err := Run(context.Background(), &Options{ConfigPath: "unused.yaml"})
	require.ErrorIs(t, err, errUpdaterAlreadyRunning)

	// The other updater's marker must not be stolen.
	_, err = os.Stat(MarkerFilename)
	require.NoError(t, err)
}

func TestIsUpdaterRunningNowRecoversStaleMarker(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx := context.Background()

	running, err := IsUpdaterRunningNow(ctx)
	require.NoError(t, err)
	require.False(t, running)

	require.NoError(t, CreateMarkerFile())

	running, err = IsUpdaterRunningNow(ctx)
	require.NoError(t, err)
	require.True(t, running)

	stale := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(MarkerFilename, stale, stale))

	running, err = IsUpdaterRunningNow(ctx)
	require.NoError(t, err)
	require.False(t, running)

	_, err = os.Stat(MarkerFilename)
	require.True(t, os.IsNotExist(err), "stale marker should be removed")
}
