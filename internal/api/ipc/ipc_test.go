package ipc

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/smart-dial/internal/domain/dial"
)

type fakeHandler struct {
	mu       sync.Mutex
	injected [][]dial.InputEvent
	status   dial.Status
}

func (h *fakeHandler) InjectInput(_ context.Context, events []dial.InputEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.injected = append(h.injected, events)

	return nil
}

func (h *fakeHandler) Status(_ context.Context) (dial.Status, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.status, nil
}

func (h *fakeHandler) batches() [][]dial.InputEvent {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([][]dial.InputEvent(nil), h.injected...)
}

// startServer runs a control server on a throwaway socket and waits for it
// to accept connections.
func startServer(t *testing.T, handler Handler) (string, context.CancelFunc, <-chan error) {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "ctl.sock")
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)

	go func() {
		errCh <- NewServer(socketPath, handler).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", socketPath)
		if err != nil {
			return false
		}

		conn.Close()

		return true
	}, 2*time.Second, 10*time.Millisecond)

	return socketPath, cancel, errCh
}

func TestClientStatus(t *testing.T) {
	t.Parallel()

	handler := &fakeHandler{
		status: dial.Status{
			Mode:       dial.ModeHue,
			HueZone:    "Office",
			SonosGroup: "Kitchen",
			Paired:     true,
		},
	}

	socketPath, cancel, errCh := startServer(t, handler)
	defer cancel()

	client, err := Dial(context.Background(), socketPath)
	require.NoError(t, err)

	defer client.Close()

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, dial.ModeHue, status.Mode)
	require.Equal(t, "Office", status.HueZone)
	require.True(t, status.Paired)

	cancel()
	require.NoError(t, <-errCh)
}

func TestClientInjectsGestures(t *testing.T) {
	t.Parallel()

	handler := &fakeHandler{}

	socketPath, cancel, errCh := startServer(t, handler)
	defer cancel()

	client, err := Dial(context.Background(), socketPath)
	require.NoError(t, err)

	defer client.Close()

	require.NoError(t, client.Rotate(context.Background(), dial.CounterClockwise, 3))
	require.NoError(t, client.Press(context.Background(), 2))

	batches := handler.batches()
	require.Len(t, batches, 2)

	require.Len(t, batches[0], 3)
	for _, event := range batches[0] {
		rotate, ok := event.(dial.Rotate)
		require.True(t, ok)
		require.Equal(t, dial.CounterClockwise, rotate.Direction)
	}

	require.Len(t, batches[1], 4)

	edges := make([]dial.EdgeState, 0, len(batches[1]))
	for _, event := range batches[1] {
		edge, ok := event.(dial.ButtonEdge)
		require.True(t, ok)

		edges = append(edges, edge.State)
	}

	require.Equal(t,
		[]dial.EdgeState{dial.ButtonDown, dial.ButtonUp, dial.ButtonDown, dial.ButtonUp},
		edges)

	cancel()
	require.NoError(t, <-errCh)
}

func TestServerRejectsGarbage(t *testing.T) {
	t.Parallel()

	socketPath, cancel, _ := startServer(t, &fakeHandler{})
	defer cancel()

	conn, err := net.Dial("unix", socketPath)
	require.NoError(t, err)

	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write([]byte("not json at all\n"))
	require.NoError(t, err)

	decoder := json.NewDecoder(conn)

	var resp Response
	require.NoError(t, decoder.Decode(&resp))
	require.False(t, resp.OK())
	require.Equal(t, "malformed request", resp.Error)

	_, err = conn.Write([]byte(`{"type":"reboot"}` + "\n"))
	require.NoError(t, err)

	require.NoError(t, decoder.Decode(&resp))
	require.False(t, resp.OK())
	require.Contains(t, resp.Error, "unknown request type")
}

func TestExpandRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)

	tests := []struct {
		name    string
		request Request
		want    []dial.InputEvent
		wantErr bool
	}{
		{
			name:    "rotate defaults to one clockwise step",
			request: Request{Type: TypeRotate},
			want:    []dial.InputEvent{dial.Rotate{Direction: dial.Clockwise, At: now}},
		},
		{
			name:    "rotate expands count",
			request: Request{Type: TypeRotate, Direction: "ccw", Count: 2},
			want: []dial.InputEvent{
				dial.Rotate{Direction: dial.CounterClockwise, At: now},
				dial.Rotate{Direction: dial.CounterClockwise, At: now},
			},
		},
		{
			name:    "press expands to edge pairs",
			request: Request{Type: TypePress, Count: 2},
			want: []dial.InputEvent{
				dial.ButtonEdge{State: dial.ButtonDown, At: now},
				dial.ButtonEdge{State: dial.ButtonUp, At: now},
				dial.ButtonEdge{State: dial.ButtonDown, At: now},
				dial.ButtonEdge{State: dial.ButtonUp, At: now},
			},
		},
		{
			name:    "unknown direction fails",
			request: Request{Type: TypeRotate, Direction: "sideways"},
			wantErr: true,
		},
		{
			name:    "unknown type fails",
			request: Request{Type: "reboot"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := expandRequest(tt.request, now)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
