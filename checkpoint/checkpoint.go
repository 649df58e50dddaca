// Package checkpoint persists scan progress to a single JSON file so a long
// randomized sweep can resume after interruption.
package checkpoint

import (
	"encoding/json"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"time"
)

const fileName = "scan_checkpoint.json"

// Stats is the aggregate counter snapshot stored alongside the resume point.
type Stats struct {
	StartTime    time.Time `json:"start_time"`
	IPsScanned   uint64    `json:"ips_scanned"`
	ServersFound uint64    `json:"servers_found"`
	Errors       uint64    `json:"errors"`
}

// Checkpoint is one durable progress snapshot. LastIP determines the resume
// point of a randomized scan.
type Checkpoint struct {
	Timestamp time.Time `json:"timestamp"`
	Stats     Stats     `json:"stats"`
	LastIP    string    `json:"last_ip"`
}

// LastAddr parses the stored resume address. The second return is false when
// the checkpoint carries no usable address.
func (c *Checkpoint) LastAddr() (netip.Addr, bool) {
	if c == nil || c.LastIP == "" {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(c.LastIP)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}

// Store reads and writes the checkpoint file under a fixed directory.
type Store struct {
	dir string
	log *slog.Logger
}

// NewStore returns a store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string, log *slog.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, fileName)
}

// Load returns the stored checkpoint, or nil when the file is absent,
// unreadable or malformed. A broken checkpoint only disables resumption;
// it never aborts a scan.
func (s *Store) Load() *Checkpoint {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("checkpoint unreadable, resuming disabled", "path", s.Path(), "error", err)
		}
		return nil
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.log.Warn("checkpoint malformed, resuming disabled", "path", s.Path(), "error", err)
		return nil
	}
	return &cp
}

// Save overwrites the checkpoint atomically: the snapshot is written to a
// temp file in the same directory and renamed into place, so a crash
// mid-write cannot leave a half-written file that Load would accept.
func (s *Store) Save(cp Checkpoint) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, fileName+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
