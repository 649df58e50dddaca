// Package checker wraps the Minecraft Java Edition server list ping exchange
// behind a small capability interface. The scan engine depends only on the
// interface so tests can substitute fakes and the wire protocol stays out of
// the engine.
package checker

import (
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Tnze/go-mc/bot"
	"github.com/Tnze/go-mc/chat"
)

// PlayerSample is one entry of the status response player sample.
type PlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Status is the parsed outcome of a successful server list ping.
type Status struct {
	Version       string
	Protocol      int
	PlayersOnline int
	PlayersMax    int
	Description   string
	Players       []PlayerSample
	// Latency is the ping measurement reported by the exchange itself.
	// Zero means the server skipped the ping phase and the caller should
	// time the call instead.
	Latency time.Duration
}

// Checker resolves the live status of a single game server endpoint.
type Checker interface {
	Check(host string, port uint16, timeout time.Duration) (*Status, error)
}

// statusResponse mirrors the JSON payload of the server list ping. The
// description field is full chat component JSON, which may be a bare string
// or a nested object; chat.Message handles both.
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Online int            `json:"online"`
		Max    int            `json:"max"`
		Sample []PlayerSample `json:"sample"`
	} `json:"players"`
	Description chat.Message `json:"description"`
}

// JavaChecker performs the real network exchange against Java Edition servers.
type JavaChecker struct{}

// NewJavaChecker returns a checker speaking the modern server list ping.
func NewJavaChecker() *JavaChecker {
	return &JavaChecker{}
}

// Check connects to host:port, performs the status handshake, and parses the
// response. The timeout covers the whole exchange including the trailing
// ping round-trip.
func (c *JavaChecker) Check(host string, port uint16, timeout time.Duration) (*Status, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(int(port)))

	data, delay, err := bot.PingAndListTimeout(addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("status exchange with %s failed: %w", addr, err)
	}

	status, err := parseStatus(data, delay)
	if err != nil {
		return nil, fmt.Errorf("malformed status payload from %s: %w", addr, err)
	}
	return status, nil
}

// parseStatus decodes the raw status JSON. An empty version name falls back
// to the protocol number, then to "Unknown".
func parseStatus(data []byte, delay time.Duration) (*Status, error) {
	var resp statusResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	status := &Status{
		Version:       resp.Version.Name,
		Protocol:      resp.Version.Protocol,
		PlayersOnline: resp.Players.Online,
		PlayersMax:    resp.Players.Max,
		Description:   strings.TrimSpace(resp.Description.ClearString()),
		Players:       resp.Players.Sample,
		Latency:       delay,
	}
	if status.Version == "" && status.Protocol > 0 {
		status.Version = fmt.Sprintf("Protocol %d", status.Protocol)
	}
	if status.Version == "" {
		status.Version = "Unknown"
	}
	return status, nil
}
