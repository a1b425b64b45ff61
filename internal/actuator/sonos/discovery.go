package sonos

import (
	"bufio"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	ssdpAddress  = "239.255.255.250:1900"
	searchTarget = "urn:schemas-upnp-org:device:ZonePlayer:1"

	// readBufferSize fits any SSDP response datagram.
	readBufferSize = 2048
)

var errNoRoomName = errors.New("device description has no room name")

// refresh broadcasts an SSDP search, fetches each responder's device
// description and swaps the room-name cache.
func (c *Client) refresh(ctx context.Context) error {
	locations, err := c.search(ctx)
	if err != nil {
		return err
	}

	players := make(map[string]player, len(locations))

	for _, location := range locations {
		p, err := c.describe(ctx, location)
		if err != nil {
			// A device that answered the search but cannot be
			// described is skipped, not fatal.
			continue
		}

		players[strings.ToLower(p.room)] = p
	}

	c.setPlayers(players)

	return nil
}

// search sends an M-SEARCH and collects unique response locations until
// the discovery timeout elapses.
func (c *Client) search(ctx context.Context) ([]string, error) {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()

	addr, err := net.ResolveUDPAddr("udp4", c.searchAddress)
	if err != nil {
		return nil, fmt.Errorf("resolve discovery address: %w", err)
	}

	request := "M-SEARCH * HTTP/1.1\r\n" +
		"HOST: " + c.searchAddress + "\r\n" +
		"MAN: \"ssdp:discover\"\r\n" +
		"MX: 1\r\n" +
		"ST: " + searchTarget + "\r\n\r\n"

	if _, err = conn.WriteTo([]byte(request), addr); err != nil {
		return nil, fmt.Errorf("send discovery request: %w", err)
	}

	deadline := time.Now().Add(c.discoveryTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err = conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set discovery deadline: %w", err)
	}

	var (
		locations []string
		seen      = make(map[string]struct{})
		buf       = make([]byte, readBufferSize)
	)

	for {
		n, _, readErr := conn.ReadFrom(buf)
		if readErr != nil {
			// The deadline ends collection.
			break
		}

		location, ok := parseSearchResponse(buf[:n])
		if !ok {
			continue
		}

		if _, dup := seen[location]; dup {
			continue
		}

		seen[location] = struct{}{}

		locations = append(locations, location)
	}

	return locations, nil
}

// parseSearchResponse extracts the device description location from one
// SSDP response datagram.
func parseSearchResponse(datagram []byte) (string, bool) {
	resp, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(datagram)), nil)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")

	return location, location != ""
}

// deviceDescription is the part of the UPnP device document we need.
type deviceDescription struct {
	RoomName string `xml:"device>roomName"`
}

// describe fetches a device description and extracts the room name and
// the control base URL.
func (c *Client) describe(ctx context.Context, location string) (player, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return player{}, fmt.Errorf("build description request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return player{}, fmt.Errorf("fetch description: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return player{}, fmt.Errorf("fetch description: %s", resp.Status)
	}

	var description deviceDescription
	if err = xml.NewDecoder(resp.Body).Decode(&description); err != nil {
		return player{}, fmt.Errorf("decode description: %w", err)
	}

	if description.RoomName == "" {
		return player{}, errNoRoomName
	}

	base, err := baseURL(location)
	if err != nil {
		return player{}, err
	}

	return player{room: description.RoomName, baseURL: base}, nil
}

// baseURL strips the path from a description location, leaving the scheme
// and authority the control endpoints hang off.
func baseURL(location string) (string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse description location: %w", err)
	}

	return u.Scheme + "://" + u.Host, nil
}
