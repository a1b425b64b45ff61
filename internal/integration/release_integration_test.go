package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smart-dial/internal/config"
	"github.com/oshokin/smart-dial/internal/service/packager"
	"github.com/oshokin/smart-dial/internal/service/update"
)

// TestRelease_PackageThenUpdate drives a release end to end: the
// packager checksums a build directory, a plain file server hosts it,
// and a fresh controller host pulls and applies it.
func TestRelease_PackageThenUpdate(t *testing.T) {
	buildDir := t.TempDir()
	t.Chdir(buildDir)

	// Build outputs the packager will checksum. The shebang keeps the
	// restart step happy once the fake daemon lands on the PATH.
	for _, name := range update.ReleaseArtifacts() {
		body := []byte("#!/bin/sh\n# " + name + " release\n")
		require.NoError(t, os.WriteFile(name, body, 0o755))
	}

	server := httptest.NewServer(http.FileServer(http.Dir(buildDir)))
	t.Cleanup(server.Close)

	require.NoError(t, packager.Run(context.Background(), &packager.Options{
		ConfigPath: config.DefaultConfigFilename,
		UpdateURL:  server.URL,
	}))

	_, err := os.Stat(update.VersionFilename)
	require.NoError(t, err)

	// Switch to an empty controller host and pull the release.
	installDir := t.TempDir()
	t.Chdir(installDir)
	t.Setenv("PATH", installDir+string(os.PathListSeparator)+os.Getenv("PATH"))

	cfgPath := filepath.Join(installDir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(cfgPath, &config.Config{UpdateURL: server.URL}))

	require.NoError(t, update.Run(context.Background(), &update.Options{ConfigPath: cfgPath}))

	for _, name := range update.ReleaseArtifacts() {
		data, err := os.ReadFile(name)
		require.NoError(t, err)
		require.Contains(t, string(data), name, "artifact %s should carry the released body", name)

		info, err := os.Stat(name)
		require.NoError(t, err)
		require.Equal(t, update.DefaultFileMode, info.Mode().Perm(), "artifact %s", name)
	}

	_, err = os.Stat(update.MarkerFilename)
	require.True(t, os.IsNotExist(err), "marker file should be cleaned up")
}
