package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oshokin/smart-dial/internal/domain/dial"
	"github.com/oshokin/smart-dial/internal/logger"
)

// Frame types pushed over the feed.
const (
	frameStatusInit = "status_init"
	frameStatus     = "status"
)

// statusCoalesceWindow is the shortest interval between status frames.
// Bursts inside the window collapse to the freshest snapshot,
// which is flushed when the window elapses.
const statusCoalesceWindow = 100 * time.Millisecond

const shutdownTimeout = 2 * time.Second

// envelope is the wire format of every feed frame.
type envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data dial.Status `json:"data"`
}

// Feed serves the observation endpoints and owns the hub behind them.
type Feed struct {
	hub      *Hub
	snapshot func() dial.Status
	upgrader websocket.Upgrader
}

// NewFeed returns a feed that answers snapshot requests with the given
// function. The function must be safe to call from any goroutine.
func NewFeed(snapshot func() dial.Status) *Feed {
	return &Feed{
		hub:      NewHub(),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			// The feed binds to loopback, any local origin may read it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the feed's HTTP surface:
// /ws for the push stream and /status for a one-shot snapshot.
func (f *Feed) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleWS)
	mux.HandleFunc("/status", f.handleStatus)

	return mux
}

// Run serves the feed on address until the context ends,
// broadcasting snapshots arriving on updates to every observer.
func (f *Feed) Run(ctx context.Context, address string, updates <-chan dial.Status) error {
	go f.hub.Run(ctx)
	go f.publish(ctx, updates)

	server := &http.Server{
		Addr:              address,
		Handler:           f.Handler(),
		ReadHeaderTimeout: writeWait,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		server.Shutdown(shutdownCtx)
	}()

	logger.Infof(ctx, "observation feed is listening on %s", address)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("observation feed: %w", err)
	}

	return nil
}

// publish forwards status updates to the hub, at most one frame per
// coalesce window.
func (f *Feed) publish(ctx context.Context, updates <-chan dial.Status) {
	runCoalescer(ctx, updates, statusCoalesceWindow, func(status dial.Status) {
		if frame := marshalFrame(ctx, frameStatus, status); frame != nil {
			f.hub.Broadcast(ctx, frame)
		}
	})
}

// runCoalescer forwards updates to sink, at most one per window.
// The freshest pending snapshot is flushed when the window elapses and
// on shutdown, observers always converge on the true state.
func runCoalescer(ctx context.Context, updates <-chan dial.Status, window time.Duration, sink func(dial.Status)) {
	if updates == nil {
		return
	}

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}

	defer timer.Stop()

	var (
		pending    *dial.Status
		inCooldown bool
	)

	emit := func(status dial.Status) {
		sink(status)

		inCooldown = true

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}

		timer.Reset(window)
	}

	flushPending := func() {
		if pending == nil {
			return
		}

		status := *pending
		pending = nil

		emit(status)
	}

	for {
		select {
		case <-ctx.Done():
			flushPending()

			return
		case status, ok := <-updates:
			if !ok {
				flushPending()

				return
			}

			if inCooldown {
				pending = &status

				continue
			}

			emit(status)
		case <-timer.C:
			inCooldown = false

			flushPending()
		}
	}
}

// handleWS upgrades an observer and hands the connection to the hub.
func (f *Feed) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf(r.Context(), "observer upgrade failed: %v", err)

		return
	}

	c := newClient(f.hub, conn, r.RemoteAddr)
	f.hub.register <- c

	// The pumps outlive this handler: net/http cancels the request
	// context on return, the hub owns the connection from here.
	go c.writePump()
	go c.readPump()

	if frame := marshalFrame(r.Context(), frameStatusInit, f.snapshot()); frame != nil {
		select {
		case c.send <- frame:
		default:
			f.hub.unregister <- c
		}
	}
}

func (f *Feed) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(f.snapshot()); err != nil {
		logger.Debugf(r.Context(), "failed to write status snapshot: %v", err)
	}
}

func marshalFrame(ctx context.Context, frameType string, status dial.Status) []byte {
	frame, err := json.Marshal(envelope{
		Type: frameType,
		Ts:   time.Now().UTC(),
		Data: status,
	})
	if err != nil {
		logger.Warnf(ctx, "failed to marshal %s frame: %v", frameType, err)

		return nil
	}

	return frame
}
