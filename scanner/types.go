package scanner

import (
	"net/netip"
	"time"
)

// Target is a single endpoint to probe. It is produced by a target source
// and consumed by exactly one probe invocation.
type Target struct {
	Addr netip.Addr
	Port uint16
}

// PlayerSample is a sampled online player name attached to a found server.
type PlayerSample struct {
	Name string `json:"name"`
}

// ServerRecord describes a discovered game server. It is immutable once
// built and travels from the prober through the coordinator to the sink.
type ServerRecord struct {
	IP                string         `json:"ip"`
	Port              uint16         `json:"port"`
	Version           string         `json:"version"`
	PlayersOnline     int            `json:"players_online"`
	PlayersMax        int            `json:"players_max"`
	LatencyMs         float64        `json:"latency_ms"`
	Description       string         `json:"description"`
	PossibleWhitelist bool           `json:"possible_whitelist"`
	PlayerSamples     []PlayerSample `json:"player_samples,omitempty"`
}

// OutcomeKind classifies a single probe result.
type OutcomeKind int

const (
	// OutcomeFound means the endpoint answered the status exchange.
	OutcomeFound OutcomeKind = iota
	// OutcomeNotFound means a pre-probe gate established the endpoint is down
	// or the port is closed, without running the full exchange.
	OutcomeNotFound
	// OutcomeError means the exchange failed (refused, unreachable, protocol error).
	OutcomeError
	// OutcomeTimeout means the exchange did not finish inside the probe budget.
	OutcomeTimeout
	// OutcomeSkipped means the pre-probe phase consumed too much of the budget
	// and the status exchange was never attempted.
	OutcomeSkipped
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeError:
		return "error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is the result of probing one target. Server is set only for
// OutcomeFound, Err only for OutcomeError.
type Outcome struct {
	Target Target
	Kind   OutcomeKind
	Server *ServerRecord
	Err    error
}

// Stats aggregates progress counters for one scan invocation. It is owned
// by the coordinator's collection loop; readers get copies.
type Stats struct {
	StartTime    time.Time
	IPsScanned   uint64
	ServersFound uint64
	Errors       uint64
	LastAddr     netip.Addr
}

// Rate returns scanned addresses per second since the scan started.
func (s Stats) Rate() float64 {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(s.IPsScanned) / elapsed
}

// ResultSink receives found servers as the coordinator observes them, in
// completion order. Implementations decide between synchronous and queued
// delivery.
type ResultSink interface {
	Deliver(rec ServerRecord)
}
