package api

import (
	"time"

	"github.com/kdltmhl/mc-ip-scanner/scanner"
)

// Sweep modes accepted by the API.
const (
	ModeCIDR   = "cidr"
	ModeHost   = "host"
	ModeRandom = "random"
)

// SweepTask represents one asynchronous address sweep managed by the API
// service.
type SweepTask struct {
	// ID is the immutable UUIDv4 identifier assigned when the task is accepted.
	ID string `json:"id"`
	// Status is the lifecycle state: pending, running, completed or failed.
	Status string `json:"status"`
	// Mode selects the enumeration strategy.
	Mode string `json:"mode"`
	// Target is the CIDR block or address to sweep; unused in random mode.
	Target string `json:"target,omitempty"`
	// Port is the game port probed on every address.
	Port uint16 `json:"port"`
	// Count bounds a random sweep. Required in random mode.
	Count uint64 `json:"count,omitempty"`
	// Found holds the discovered servers once the task completes.
	Found []scanner.ServerRecord `json:"found,omitempty"`
	// Stats carries the aggregate counters of the finished sweep.
	Stats       *SweepStats `json:"stats,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	// Error explains why the task failed. Present only for failed status.
	Error string `json:"error,omitempty"`
}

// SweepStats is the JSON shape of the scan counters attached to a task.
type SweepStats struct {
	IPsScanned   uint64 `json:"ips_scanned"`
	ServersFound uint64 `json:"servers_found"`
	Errors       uint64 `json:"errors"`
	LastIP       string `json:"last_ip,omitempty"`
}

// CreateSweepRequest is the payload for submitting a sweep.
type CreateSweepRequest struct {
	// Mode is one of cidr, host, random.
	Mode string `json:"mode" binding:"required,oneof=cidr host random"`
	// Target is the CIDR block (cidr mode) or single address (host mode).
	Target string `json:"target"`
	// Port defaults to 25565.
	Port uint16 `json:"port"`
	// Count bounds a random sweep; required for random mode, capped server-side.
	Count uint64 `json:"count"`
}

// SweepAcceptedResponse acknowledges an accepted task.
type SweepAcceptedResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
