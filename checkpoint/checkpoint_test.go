package checkpoint

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), testLogger())
	in := Checkpoint{
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Stats: Stats{
			StartTime:    time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
			IPsScanned:   123456,
			ServersFound: 7,
			Errors:       42,
		},
		LastIP: "203.0.113.99",
	}
	if err := store.Save(in); err != nil {
		t.Fatal(err)
	}

	out := store.Load()
	if out == nil {
		t.Fatal("load returned nil after save")
	}
	if out.Stats.IPsScanned != in.Stats.IPsScanned ||
		out.Stats.ServersFound != in.Stats.ServersFound ||
		out.Stats.Errors != in.Stats.Errors {
		t.Errorf("stats round-trip = %+v want %+v", out.Stats, in.Stats)
	}
	if out.LastIP != in.LastIP {
		t.Errorf("last ip = %q want %q", out.LastIP, in.LastIP)
	}
	addr, ok := out.LastAddr()
	if !ok || addr.String() != "203.0.113.99" {
		t.Errorf("last addr = %v ok=%v", addr, ok)
	}
}

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nowhere"), testLogger())
	if cp := store.Load(); cp != nil {
		t.Fatalf("load of missing file = %+v want nil", cp)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, testLogger())
	if err := os.WriteFile(store.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if cp := store.Load(); cp != nil {
		t.Fatalf("load of malformed file = %+v want nil", cp)
	}
}

func TestSaveOverwritesWithoutTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, testLogger())

	for i := uint64(1); i <= 3; i++ {
		if err := store.Save(Checkpoint{Stats: Stats{IPsScanned: i * 100}, LastIP: "11.0.0.1"}); err != nil {
			t.Fatal(err)
		}
	}

	cp := store.Load()
	if cp == nil || cp.Stats.IPsScanned != 300 {
		t.Fatalf("final checkpoint = %+v, want the last save to win", cp)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want just the checkpoint file", len(entries))
	}
}

func TestLastAddrRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"empty":    "",
		"garbage":  "not-an-ip",
		"ipv6":     "2001:db8::1",
		"trailing": "11.0.0.1 ",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			cp := &Checkpoint{LastIP: raw}
			if addr, ok := cp.LastAddr(); ok {
				t.Fatalf("LastAddr(%q) = %v, want rejection", raw, addr)
			}
		})
	}
}

func TestSaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	store := NewStore(dir, testLogger())
	if err := store.Save(Checkpoint{LastIP: "11.0.0.1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("checkpoint file missing after save: %v", err)
	}
}
