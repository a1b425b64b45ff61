package sonos

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oshokin/smart-dial/internal/actuator"
)

// soapService identifies one UPnP control endpoint on a player.
type soapService struct {
	urn  string
	path string
}

var (
	avTransport = soapService{
		urn:  "urn:schemas-upnp-org:service:AVTransport:1",
		path: "/MediaRenderer/AVTransport/Control",
	}
	groupRendering = soapService{
		urn:  "urn:schemas-upnp-org:service:GroupRenderingControl:1",
		path: "/MediaRenderer/GroupRenderingControl/Control",
	}
)

const (
	// statePlaying is the transport state of an actively playing group.
	statePlaying = "PLAYING"

	// instanceArg addresses the single AV instance every Sonos player has.
	instanceArg = "<InstanceID>0</InstanceID>"

	envelopeFormat = `<?xml version="1.0" encoding="utf-8"?>` +
		`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" ` +
		`s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">` +
		`<s:Body><u:%[1]s xmlns:u="%[2]s">%[3]s</u:%[1]s></s:Body></s:Envelope>`
)

// player is one discovered device.
type player struct {
	room    string
	baseURL string
}

// Client drives Sonos players, addressing them by room name.
type Client struct {
	httpClient       *http.Client
	discoveryTimeout time.Duration
	searchAddress    string

	mu      sync.Mutex
	players map[string]player // lower-cased room name -> device
}

// NewClient returns a client whose SSDP discovery rounds are bounded by
// the provided timeout.
func NewClient(discoveryTimeout time.Duration) *Client {
	return &Client{
		httpClient:       &http.Client{},
		discoveryTimeout: discoveryTimeout,
		searchAddress:    ssdpAddress,
		players:          make(map[string]player),
	}
}

// AdjustVolume changes the group volume by delta. The device clamps the
// result to its 0-100 range.
func (c *Client) AdjustVolume(ctx context.Context, group string, delta int) error {
	p, err := c.endpoint(ctx, group)
	if err != nil {
		return err
	}

	args := fmt.Sprintf("%s<Adjustment>%d</Adjustment>", instanceArg, delta)
	if _, err = c.call(ctx, p.baseURL, groupRendering, "SetRelativeGroupVolume", args); err != nil {
		return fmt.Errorf("adjust volume on %q: %w", group, err)
	}

	return nil
}

// PlayPause toggles playback: a playing group pauses, anything else plays.
func (c *Client) PlayPause(ctx context.Context, group string) error {
	p, err := c.endpoint(ctx, group)
	if err != nil {
		return err
	}

	state, err := c.transportState(ctx, p)
	if err != nil {
		return fmt.Errorf("query transport on %q: %w", group, err)
	}

	action, args := "Play", instanceArg+"<Speed>1</Speed>"
	if state == statePlaying {
		action, args = "Pause", instanceArg
	}

	if _, err = c.call(ctx, p.baseURL, avTransport, action, args); err != nil {
		return fmt.Errorf("%s on %q: %w", strings.ToLower(action), group, err)
	}

	return nil
}

// Skip moves to the next or previous track.
func (c *Client) Skip(ctx context.Context, group string, direction int) error {
	p, err := c.endpoint(ctx, group)
	if err != nil {
		return err
	}

	action := "Next"
	if direction < 0 {
		action = "Previous"
	}

	if _, err = c.call(ctx, p.baseURL, avTransport, action, instanceArg); err != nil {
		return fmt.Errorf("%s on %q: %w", strings.ToLower(action), group, err)
	}

	return nil
}

// FindActiveGroup rediscovers players and returns the room name of the
// first one that is playing. Every call refreshes the name cache, which is
// what keeps endpoint resolution current between polls.
func (c *Client) FindActiveGroup(ctx context.Context) (string, error) {
	if err := c.refresh(ctx); err != nil {
		return "", err
	}

	for _, p := range c.snapshot() {
		state, err := c.transportState(ctx, p)
		if err != nil {
			continue
		}

		if state == statePlaying {
			return p.room, nil
		}
	}

	return "", actuator.ErrTargetNotFound
}

// transportInfoResponse is the part of the GetTransportInfo SOAP response
// we need. Field paths match local names, so namespaces do not matter.
type transportInfoResponse struct {
	State string `xml:"Body>GetTransportInfoResponse>CurrentTransportState"`
}

// transportState queries the current transport state of a device.
func (c *Client) transportState(ctx context.Context, p player) (string, error) {
	body, err := c.call(ctx, p.baseURL, avTransport, "GetTransportInfo", instanceArg)
	if err != nil {
		return "", err
	}

	var info transportInfoResponse
	if err = xml.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode transport info: %w", err)
	}

	return info.State, nil
}

// call performs one SOAP action against a player and returns the raw
// response body.
func (c *Client) call(ctx context.Context, baseURL string, svc soapService, action, args string) ([]byte, error) {
	envelope := fmt.Sprintf(envelopeFormat, action, svc.urn, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+svc.path, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPACTION", fmt.Sprintf("%q", svc.urn+"#"+action))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", action, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", action, resp.Status)
	}

	return body, nil
}

// endpoint resolves a room name to a device, refreshing the discovery
// cache once on a miss.
func (c *Client) endpoint(ctx context.Context, group string) (player, error) {
	if p, ok := c.lookup(group); ok {
		return p, nil
	}

	if err := c.refresh(ctx); err != nil {
		return player{}, err
	}

	p, ok := c.lookup(group)
	if !ok {
		return player{}, actuator.ErrTargetNotFound
	}

	return p, nil
}

func (c *Client) lookup(group string) (player, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.players[strings.ToLower(group)]

	return p, ok
}

func (c *Client) setPlayers(players map[string]player) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.players = players
}

// snapshot returns the cached players in stable room-name order, so the
// "first playing" pick is deterministic.
func (c *Client) snapshot() []player {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.players))
	for name := range c.players {
		names = append(names, name)
	}

	sort.Strings(names)

	players := make([]player, 0, len(names))
	for _, name := range names {
		players = append(players, c.players[name])
	}

	return players
}
