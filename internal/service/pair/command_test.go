package pair

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smart-dial/internal/config"
	repo "github.com/oshokin/smart-dial/internal/repository/state"
)

// fakeBridge answers the two bridge endpoints pairing touches: user
// creation (refused until the configured number of attempts is burned,
// like a link button nobody has pressed yet) and group listing.
type fakeBridge struct {
	server   *httptest.Server
	refusals atomic.Int32
}

func newFakeBridge(t *testing.T, refusals int32) *fakeBridge {
	t.Helper()

	bridge := &fakeBridge{}
	bridge.refusals.Store(refusals)

	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, _ *http.Request) {
		if bridge.refusals.Add(-1) >= 0 {
			w.Write([]byte(`[{"error":{"type":101,"address":"/","description":"link button not pressed"}}]`))

			return
		}

		w.Write([]byte(`[{"success":{"username":"secret-user"}}]`))
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/groups") {
			w.Write([]byte(`{"1":{"name":"Office"},"2":{"name":"Bedroom"}}`))

			return
		}

		http.NotFound(w, r)
	})

	bridge.server = httptest.NewServer(mux)
	t.Cleanup(bridge.server.Close)

	return bridge
}

func writeSettings(t *testing.T, cfg *config.Config) (configPath, stateFile string) {
	t.Helper()

	dir := t.TempDir()
	configPath = filepath.Join(dir, config.DefaultConfigFilename)
	stateFile = filepath.Join(dir, config.DefaultStateFilename)

	require.NoError(t, config.Save(configPath, cfg))

	return configPath, stateFile
}

func TestRunPairsAndStoresCredentials(t *testing.T) {
	t.Parallel()

	bridge := newFakeBridge(t, 0)
	configPath, stateFile := writeSettings(t, &config.Config{})

	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &Options{
		ConfigPath:    configPath,
		BridgeAddress: bridge.server.URL,
		StateFile:     stateFile,
		Output:        &out,
	}))

	require.Contains(t, out.String(), "paired successfully")
	require.Contains(t, out.String(), "Office")
	require.Contains(t, out.String(), "Bedroom")

	state, err := repo.NewFileRepository(stateFile).Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.HueCredentials)
	require.Equal(t, bridge.server.URL, state.HueCredentials.Host)
	require.Equal(t, "secret-user", state.HueCredentials.Username)
	require.Equal(t, "Office", state.HueZone)
}

func TestRunWaitsForLinkButton(t *testing.T) {
	t.Parallel()

	// The first attempt is refused, the retry a second later succeeds.
	bridge := newFakeBridge(t, 1)
	configPath, stateFile := writeSettings(t, &config.Config{})

	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), &Options{
		ConfigPath:    configPath,
		BridgeAddress: bridge.server.URL,
		StateFile:     stateFile,
		Output:        &out,
	}))

	require.Contains(t, out.String(), "press the link button")
	require.Contains(t, out.String(), "paired successfully")
	require.Equal(t, int32(-1), bridge.refusals.Load())
}

func TestRunTimesOutWithoutLinkButton(t *testing.T) {
	t.Parallel()

	bridge := newFakeBridge(t, 1000)
	configPath, stateFile := writeSettings(t, &config.Config{
		Hue: config.Hue{PairingTimeoutMS: 200},
	})

	err := Run(context.Background(), &Options{
		ConfigPath:    configPath,
		BridgeAddress: bridge.server.URL,
		StateFile:     stateFile,
		Output:        &bytes.Buffer{},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "pairing")

	// No credentials may be written on failure.
	_, err = repo.NewFileRepository(stateFile).Load(context.Background())
	require.ErrorIs(t, err, repo.ErrNotFound)
}
